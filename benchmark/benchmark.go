// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package benchmark measures the wall-clock latency of a callable without
// requiring the caller to guess an iteration count in advance.
//
// Run keeps timing the callable until both a minimum cumulative measured
// time and a minimum number of trials have been reached, then reports the
// mean and sample standard deviation of the per-call latency as a Result.
package benchmark

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Defaults used by the harness when the caller doesn't override them.
const (
	DefaultMinTotal      = time.Second
	DefaultMinIterations = 2
)

// Result holds the latency statistics of one benchmark run, in seconds.
// It is a plain value: construct it once, never mutate it.
type Result struct {
	Mean float64
	Std  float64
}

// String formats the result as "(mean ± std) s".
func (r Result) String() string {
	return fmt.Sprintf("(%.3e ± %.3e) s", r.Mean, r.Std)
}

// Run times fn repeatedly and returns the mean and sample standard deviation
// of its per-call wall-clock duration.
//
// One untimed warm-up call is made first, to keep first-call overhead (lazy
// initialization, cache warming) out of the statistics. Then fn is run in
// batches of timed trials: the first batch has minIterations trials, and
// while the cumulative measured time is below minTotal the batch size is
// re-estimated from the average trial duration observed so far. The
// estimate is a lower bound, so the final trial count may overshoot; the
// returned statistics always cover at least minIterations trials and at
// least minTotal of measured time.
//
// minIterations must be at least 2, otherwise the standard deviation is
// meaningless and Run returns an error before fn is ever invoked.
//
// Execution is strictly sequential. Any error returned by fn, warm-up
// included, aborts the run immediately with no partial result.
func Run(fn func() error, minTotal time.Duration, minIterations int) (Result, error) {
	if minIterations < 2 {
		return Result{}, errors.Errorf("benchmark.Run: minIterations must be >= 2, got %d", minIterations)
	}

	// Warm-up call, excluded from the statistics.
	if err := fn(); err != nil {
		return Result{}, err
	}

	durations := make([]time.Duration, 0, minIterations)
	var elapsed time.Duration
	batch := minIterations
	for {
		for range batch {
			start := time.Now()
			err := fn()
			duration := time.Since(start)
			if err != nil {
				return Result{}, err
			}
			durations = append(durations, duration)
			elapsed += duration
		}
		if elapsed >= minTotal {
			break
		}
		// Estimate how many more trials are needed to fill the remaining
		// budget, from the average duration over all trials so far.
		avg := elapsed / time.Duration(len(durations))
		if avg < time.Nanosecond {
			avg = time.Nanosecond
		}
		batch = int(math.Ceil(float64(minTotal-elapsed) / float64(avg)))
		if batch < 1 {
			batch = 1
		}
	}
	return newResult(durations), nil
}

// newResult aggregates timed trials into a Result: arithmetic mean and
// sample (N-1) standard deviation, in seconds. Requires len(durations) >= 2,
// which Run guarantees.
func newResult(durations []time.Duration) Result {
	n := float64(len(durations))
	var sum float64
	for _, d := range durations {
		sum += d.Seconds()
	}
	mean := sum / n
	var sumSquares float64
	for _, d := range durations {
		diff := d.Seconds() - mean
		sumSquares += diff * diff
	}
	return Result{Mean: mean, Std: math.Sqrt(sumSquares / (n - 1))}
}
