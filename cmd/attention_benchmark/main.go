// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// attention_benchmark measures the wall-clock latency of the standard fused
// attention kernel against the dilated (LongNet-style) variant over a range
// of sequence lengths at a fixed total token count, and writes a log-log
// comparison plot with error bars.
//
// The attention computation itself runs inside the GoMLX backend kernels;
// select the backend with the GOMLX_BACKEND environment variable as usual.
// The total token count is kept constant across the sweep, so the batch
// size shrinks as the sequence length grows.
package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/gomlx/dilated-attention/benchmark"
	"github.com/gomlx/dilated-attention/kernels"
	"github.com/gomlx/dilated-attention/plots"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagTotalTokens = flag.Int("total_tokens", 1<<26,
		"Total tokens per forward pass; the batch size is total_tokens/seq_length.")
	flagNumHeads = flag.Int("num_heads", 4, "Number of attention heads.")
	flagHeadDim  = flag.Int("head_dim", 8, "Dimension of each attention head.")
	flagDType    = flag.String("dtype", "float16",
		"Element type of the attention inputs: float16, bfloat16 or float32.")
	flagMinTime = flag.Duration("min_time", benchmark.DefaultMinTotal,
		"Minimum total measured time per configuration.")
	flagMinIterations = flag.Int("min_iterations", benchmark.DefaultMinIterations,
		"Minimum number of timed trials per configuration.")
	flagOutput = flag.String("output", "",
		"Path of the HTML plot to write. Defaults to benchmark-<tokens>-tokens-<date>.html in the current directory.")
)

// Sweep ranges from the LongNet single-device setup: vanilla attention stops
// at 128k tokens per example, the dilated variant goes to the full 64M.
var (
	vanillaSeqLengths = seqLengthRange(13, 17) // 8k .. 128k
	dilatedSeqLengths = seqLengthRange(13, 26) // 8k .. 64M
)

func seqLengthRange(minExp, maxExp int) []int {
	lengths := make([]int, 0, maxExp-minExp+1)
	for exp := minExp; exp <= maxExp; exp++ {
		lengths = append(lengths, 1<<exp)
	}
	return lengths
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if err := exceptions.TryCatch[error](run); err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

func run() {
	backend := backends.MustNew()
	defer backend.Finalize()

	dtype := must.M1(dtypeFromFlag(*flagDType))
	tokenCount := tokenCountLabel(*flagTotalTokens)
	date := time.Now().Format("2006-01-02")

	klog.Infof("Benchmarking vanilla attention against %s tokens on %q...", tokenCount, backend.Name())
	vanillaPoints := sweep(backend, "vanilla", vanillaSeqLengths, dtype)

	klog.Infof("Benchmarking dilated attention against %s tokens on %q...", tokenCount, backend.Name())
	dilatedPoints := sweep(backend, "dilated", dilatedSeqLengths, dtype)

	title := fmt.Sprintf("Attention Benchmark on %s (Total Tokens = %s)", date, tokenCount)
	fig := plots.LatencyFigure(title,
		toSeries("Vanilla Attention", vanillaPoints),
		toSeries("Dilated Attention", dilatedPoints))

	output := *flagOutput
	if output == "" {
		output = fmt.Sprintf("benchmark-%s-tokens-%s.html", tokenCount, date)
	}
	must.M(plots.WriteHTMLFile(output, fig))
	klog.Infof("Plot written to %s", output)
}

// sweepPoint pairs one swept sequence length with its measured latency.
type sweepPoint struct {
	seqLen int
	result benchmark.Result
}

// sweep benchmarks the given attention variant at every sequence length,
// keeping the total token count constant. Sequence lengths that don't fit
// even one example within the token budget are skipped.
func sweep(backend backends.Backend, name string, seqLengths []int, dtype dtypes.DType) []sweepPoint {
	bar := newProgressBar(name, len(seqLengths))
	points := make([]sweepPoint, 0, len(seqLengths))
	for _, seqLen := range seqLengths {
		batchSize := *flagTotalTokens / seqLen
		if batchSize == 0 {
			_ = bar.Add(1)
			continue
		}
		params := kernels.Params{
			BatchSize: batchSize,
			SeqLen:    seqLen,
			NumHeads:  *flagNumHeads,
			HeadDim:   *flagHeadDim,
			DType:     dtype,
		}
		kernel := must.M1(newKernel(backend, name, params))
		result := must.M1(benchmark.Run(kernel.Step, *flagMinTime, *flagMinIterations))
		kernel.Finalize()

		points = append(points, sweepPoint{seqLen: seqLen, result: result})
		klog.Infof("%s: sequence length %s: %s", name, humanize.Comma(int64(seqLen)), result)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return points
}

func newKernel(backend backends.Backend, name string, params kernels.Params) (*kernels.Kernel, error) {
	if name == "dilated" {
		segmentLengths, dilationRates := kernels.SegmentSchedule(params.SeqLen, kernels.DefaultSegmentLengths)
		return kernels.NewDilated(backend, params, segmentLengths, dilationRates)
	}
	return kernels.NewVanilla(backend, params)
}

func toSeries(name string, points []sweepPoint) plots.Series {
	return plots.Series{
		Name: name,
		X:    xslices.Map(points, func(p sweepPoint) float64 { return float64(p.seqLen) }),
		Y:    xslices.Map(points, func(p sweepPoint) float64 { return p.result.Mean }),
		YErr: xslices.Map(points, func(p sweepPoint) float64 { return p.result.Std }),
	}
}

// tokenCountLabel formats a token count the way the plot title wants it,
// e.g. 1<<26 -> "64M".
func tokenCountLabel(totalTokens int) string {
	return fmt.Sprintf("%dM", (totalTokens+(1<<20)-1)>>20)
}

func dtypeFromFlag(name string) (dtypes.DType, error) {
	switch strings.ToLower(name) {
	case "float16", "f16":
		return dtypes.Float16, nil
	case "bfloat16", "bf16":
		return dtypes.BFloat16, nil
	case "float32", "f32":
		return dtypes.Float32, nil
	}
	return dtypes.InvalidDType, errors.Errorf("unknown -dtype %q: must be float16, bfloat16 or float32", name)
}

func newProgressBar(name string, numSteps int) *progressbar.ProgressBar {
	return progressbar.NewOptions(numSteps,
		progressbar.OptionSetDescription(name),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("configs"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
	)
}
