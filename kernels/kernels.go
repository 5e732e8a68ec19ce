// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels assembles the attention forward passes measured by the
// benchmark harness.
//
// The attention kernels themselves live in GoMLX: everything here is a graph
// op compiled and executed by the configured backend, this package only
// wires them together. A Kernel owns one compiled graph plus its on-device
// input tensor, and exposes a Step closure in the shape the benchmark runner
// expects.
package kernels

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/layers/attention"
	"github.com/pkg/errors"
)

// inputSeed fixes the random input generation, so repeated runs of the
// harness time the same data.
const inputSeed = 42

// Params configures the attention input: a single tensor of shape
// [BatchSize, SeqLen, NumHeads, HeadDim] used as query, key and value.
type Params struct {
	BatchSize int
	SeqLen    int
	NumHeads  int
	HeadDim   int
	DType     dtypes.DType
}

// Validate returns an error if any dimension is not positive or the dtype
// is not a float type.
func (p Params) Validate() error {
	if p.BatchSize <= 0 || p.SeqLen <= 0 || p.NumHeads <= 0 || p.HeadDim <= 0 {
		return errors.Errorf("kernels: all dimensions must be positive, got %+v", p)
	}
	if !p.DType.IsFloat() {
		return errors.Errorf("kernels: dtype must be a float type, got %s", p.DType)
	}
	return nil
}

// Kernel is one compiled attention forward pass bound to its input tensor.
type Kernel struct {
	name string
	exec *Exec
	x    *tensors.Tensor
}

// NewVanilla builds the standard full-sequence attention forward pass,
// delegated to GoMLX's fused scaled-dot-product attention kernel.
func NewVanilla(backend backends.Backend, p Params) (*Kernel, error) {
	return newKernel(backend, "vanilla", p, vanillaForward)
}

// newKernel generates the random input tensor on device and compiles the
// forward graph. The graph reduces the attention output to a float32 scalar
// probe (float16 accumulation would overflow at these sizes), which Step
// fetches to host so that timing covers the full backend execution.
func newKernel(backend backends.Backend, name string, p Params, forward func(x *Node) *Node) (kernel *Kernel, err error) {
	if err = p.Validate(); err != nil {
		return nil, err
	}
	err = exceptions.TryCatch[error](func() {
		x, inputErr := newInput(backend, p)
		if inputErr != nil {
			panic(errors.WithMessagef(inputErr, "failed to create %s attention input for %+v", name, p))
		}
		exec := MustNewExec(backend, func(x *Node) *Node {
			return ReduceAllSum(ConvertDType(forward(x), dtypes.Float32))
		})
		kernel = &Kernel{name: name, exec: exec, x: x}
	})
	if err != nil {
		return nil, err
	}
	return kernel, nil
}

// newInput creates the [batch, seq, heads, dim] input tensor with normally
// distributed values, generated on device and converted to the target dtype.
func newInput(backend backends.Backend, p Params) (*tensors.Tensor, error) {
	return ExecOnce(backend, func(g *Graph) *Node {
		state := RNGStateFromSeedForGraph(g, inputSeed)
		_, values := RandomNormal(state, shapes.Make(dtypes.Float32, p.BatchSize, p.SeqLen, p.NumHeads, p.HeadDim))
		return ConvertDType(values, p.DType)
	})
}

// Name identifies the kernel variant in logs and plots.
func (k *Kernel) Name() string { return k.name }

// Step runs one forward pass and blocks until the scalar probe value is
// materialized on host -- the synchronization point that makes the wall-clock
// sample cover the backend's (possibly asynchronous) execution.
func (k *Kernel) Step() error {
	results, err := k.exec.Exec(k.x)
	if err != nil {
		return err
	}
	probe := results[0]
	err = exceptions.TryCatch[error](func() { _ = probe.Value() })
	if err != nil {
		return err
	}
	return probe.FinalizeAll()
}

// Finalize frees the compiled graph and the input buffers. The kernel must
// not be used afterward.
func (k *Kernel) Finalize() {
	if k.exec != nil {
		k.exec.Finalize()
		k.exec = nil
	}
	if k.x != nil {
		_ = k.x.FinalizeAll()
		k.x = nil
	}
}

// vanillaForward computes fused scaled-dot-product attention of x with
// itself over the full sequence.
func vanillaForward(x *Node) *Node {
	headDim := x.Shape().Dimensions[3]
	scale := 1.0 / math.Sqrt(float64(headDim))
	output, _ := attention.Core(nil, x, x, x, scale, nil, nil, attention.LayoutBSHD, false, false)
	return output
}
