// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"

	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/layers/attention"
	"github.com/pkg/errors"
)

// DefaultSegmentLengths is the base LongNet segment schedule, 8k to 64k
// tokens, from which SegmentSchedule derives the per-sequence-length
// configuration.
var DefaultSegmentLengths = []int{8192, 16384, 32768, 65536}

// SegmentSchedule derives the (segment length, dilation rate) pairs for a
// given sequence length, following LongNet (arxiv.org/pdf/2307.02486.pdf,
// section 3.1) on a single device: each base segment length is clamped to
// the sequence length, and the dilation rate grows geometrically with the
// ratio of the segment length to the smallest base segment.
func SegmentSchedule(seqLen int, baseSegments []int) (segmentLengths, dilationRates []int) {
	segmentLengths = make([]int, 0, len(baseSegments))
	dilationRates = make([]int, 0, len(baseSegments))
	for _, base := range baseSegments {
		w := min(base, seqLen)
		exponent := max(w/baseSegments[0]-1, 0)
		segmentLengths = append(segmentLengths, w)
		dilationRates = append(dilationRates, 1<<exponent)
	}
	return
}

// NewDilated builds the dilated (sparse) attention forward pass: for every
// (segment length, dilation rate) pair, attention runs over the dilated
// token selection of each segment, and the per-group outputs are scattered
// back to their full-sequence positions and averaged.
//
// Like the vanilla variant, all computation is delegated to GoMLX kernels:
// the dilation is expressed as reshapes and strided selections around the
// same fused scaled-dot-product attention call.
func NewDilated(backend backends.Backend, p Params, segmentLengths, dilationRates []int) (*Kernel, error) {
	if err := validateSchedule(p.SeqLen, segmentLengths, dilationRates); err != nil {
		return nil, err
	}
	return newKernel(backend, "dilated", p, func(x *Node) *Node {
		return dilatedForward(x, segmentLengths, dilationRates)
	})
}

func validateSchedule(seqLen int, segmentLengths, dilationRates []int) error {
	if len(segmentLengths) == 0 || len(segmentLengths) != len(dilationRates) {
		return errors.Errorf("kernels: need matching non-empty segment lengths and dilation rates, got %d and %d",
			len(segmentLengths), len(dilationRates))
	}
	for i, w := range segmentLengths {
		r := dilationRates[i]
		if w <= 0 || r <= 0 {
			return errors.Errorf("kernels: segment length and dilation rate must be positive, got (%d, %d)", w, r)
		}
		if seqLen%w != 0 {
			return errors.Errorf("kernels: sequence length %d is not divisible by segment length %d", seqLen, w)
		}
		if w%r != 0 {
			return errors.Errorf("kernels: segment length %d is not divisible by dilation rate %d", w, r)
		}
	}
	return nil
}

// dilatedForward computes one dilated attention pass over x, shaped
// [batch, seq, heads, dim].
//
// Each group i selects every dilationRates[i]-th token within segments of
// segmentLengths[i] tokens (group index staggers the selection offset, so
// different groups cover different positions), folds the segments into the
// batch axis and runs the fused attention kernel over them. The group output
// is scattered back to the full sequence by multiplying with a one-hot over
// the dilation axis, and groups are averaged with equal weights.
func dilatedForward(x *Node, segmentLengths, dilationRates []int) *Node {
	g := x.Graph()
	dims := x.Shape().Dimensions
	batchSize, seqLen, numHeads, headDim := dims[0], dims[1], dims[2], dims[3]
	scale := 1.0 / math.Sqrt(float64(headDim))

	var combined *Node
	for i, w := range segmentLengths {
		r := dilationRates[i]
		offset := i % r
		numSegments := seqLen / w
		numSparse := w / r // Tokens attended to per segment.

		// View each segment's w tokens as (numSparse, r): picking one index
		// on the r axis selects tokens offset, offset+r, offset+2r, ...
		segments := Reshape(x, batchSize, numSegments, numSparse, r, numHeads, headDim)
		sparse := Slice(segments, AxisRange(), AxisRange(), AxisRange(), AxisElem(offset))

		// Fold segments into the batch axis and attend within each segment.
		folded := Reshape(sparse, batchSize*numSegments, numSparse, numHeads, headDim)
		output, _ := attention.Core(nil, folded, folded, folded, scale, nil, nil,
			attention.LayoutBSHD, false, false)

		// Scatter the group output back to its full-sequence positions.
		expanded := Reshape(output, batchSize, numSegments, numSparse, 1, numHeads, headDim)
		oneHot := Reshape(OneHot(Const(g, int32(offset)), r, x.DType()), 1, 1, 1, r, 1, 1)
		full := Reshape(Mul(expanded, oneHot), batchSize, seqLen, numHeads, headDim)

		if combined == nil {
			combined = full
		} else {
			combined = Add(combined, full)
		}
	}
	return MulScalar(combined, 1.0/float64(len(segmentLengths)))
}
