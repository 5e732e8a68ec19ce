// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRejectsTooFewIterations(t *testing.T) {
	calls := 0
	fn := func() error {
		calls++
		return nil
	}
	for _, minIterations := range []int{1, 0, -5} {
		_, err := Run(fn, time.Second, minIterations)
		require.Error(t, err, "minIterations=%d", minIterations)
		require.Contains(t, err.Error(), "minIterations")
	}
	// The callable must never have been invoked, not even for warm-up.
	require.Equal(t, 0, calls)
}

func TestRunWarmUpExcluded(t *testing.T) {
	calls := 0
	fn := func() error {
		calls++
		return nil
	}
	// With a zero time budget the loop stops right after the first batch,
	// so exactly minIterations trials run, plus the one warm-up call.
	_, err := Run(fn, 0, 5)
	require.NoError(t, err)
	require.Equal(t, 6, calls)
}

func TestRunMeetsBudget(t *testing.T) {
	const minTotal = 50 * time.Millisecond
	calls := 0
	fn := func() error {
		calls++
		time.Sleep(time.Millisecond)
		return nil
	}
	result, err := Run(fn, minTotal, 2)
	require.NoError(t, err)

	trials := calls - 1 // Discount the warm-up call.
	require.GreaterOrEqual(t, trials, 2)
	// The loop only exits once the cumulative measured time reached the
	// budget; mean*trials reconstructs that total (modulo float rounding).
	assert.GreaterOrEqual(t, result.Mean*float64(trials), 0.999*minTotal.Seconds())
	assert.Greater(t, result.Mean, 0.0)
	assert.GreaterOrEqual(t, result.Std, 0.0)
}

func TestRunLowVariance(t *testing.T) {
	fn := func() error { return nil }
	result, err := Run(fn, 0, 10)
	require.NoError(t, err)
	// A no-op callable takes nanoseconds; its spread stays far below 1ms.
	assert.Less(t, result.Std, 1e-3)
	assert.GreaterOrEqual(t, result.Std, 0.0)
}

func TestRunPropagatesCallableError(t *testing.T) {
	sentinel := errors.New("device exploded")
	calls := 0
	fn := func() error {
		calls++
		if calls == 2 {
			return sentinel
		}
		return nil
	}
	result, err := Run(fn, time.Second, 2)
	require.ErrorIs(t, err, sentinel)
	// 1 warm-up + 1 timed trial, aborted on the second invocation.
	require.Equal(t, 2, calls)
	require.Equal(t, Result{}, result)
}

func TestRunPropagatesWarmUpError(t *testing.T) {
	sentinel := errors.New("warm-up failed")
	calls := 0
	fn := func() error {
		calls++
		return sentinel
	}
	_, err := Run(fn, time.Second, 2)
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestResultAggregation(t *testing.T) {
	durations := []time.Duration{
		1 * time.Millisecond,
		2 * time.Millisecond,
		3 * time.Millisecond,
		4 * time.Millisecond,
	}
	result := newResult(durations)
	assert.InDelta(t, 2.5e-3, result.Mean, 1e-12)
	// Sample standard deviation (divide by N-1): sqrt(5/3) ms.
	assert.InDelta(t, 1.2909944487358056e-3, result.Std, 1e-12)
}

func TestResultAggregationConstant(t *testing.T) {
	durations := []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	result := newResult(durations)
	assert.InDelta(t, 1e-3, result.Mean, 1e-12)
	assert.InDelta(t, 0.0, result.Std, 1e-12)
}

func TestResultString(t *testing.T) {
	r := Result{Mean: 1.234e-3, Std: 5.678e-5}
	require.Equal(t, "(1.234e-03 ± 5.678e-05) s", r.String())
}
