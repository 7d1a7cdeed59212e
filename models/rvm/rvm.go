// Package rvm - Adapter for Robust Video Matting (MobileNetV3).
//
// RVM is recurrent: besides the frame it takes four hidden-state tensors r1..r4 and a
// downsample ratio, and returns updated hidden states next to the alpha matte. The
// foreground output is not bound.
package rvm

import (
	"image"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/models/layout"
	"github.com/nvr-ai/go-bgseg/models/model"
)

const (
	// InputSize is the fixed spatial input size.
	InputSize = 192
	// RatioInput is the index of the downsample-ratio input.
	RatioInput = 5
	// states is the number of recurrent tensors.
	states = 4
)

// StateChannels is the channel count of r1..r4.
var StateChannels = [states]int64{16, 20, 40, 64}

// Adapter is the RVM adapter.
type Adapter struct {
	layout.BCHW
}

// New creates an RVM adapter.
func New() *Adapter {
	a := &Adapter{BCHW: *layout.NewBCHW()}
	a.ID = model.NameRVM
	return a
}

// stateSize returns the spatial size of recurrent state i (1-based).
func stateSize(i int) int64 {
	return InputSize / int64(2<<(i-1))
}

// Bind binds every input and every output except the first (foreground) one, fixing the
// spatial dims to a 192x192 frame.
//
// Arguments:
//   - inputs: src, r1i..r4i, downsample_ratio.
//   - outputs: fgr, pha, r1o..r4o.
//
// Returns:
//   - model.Binding: Six inputs and five outputs.
//   - error: An invariant error if the network has fewer tensors.
func (a *Adapter) Bind(inputs, outputs []model.TensorInfo) (model.Binding, error) {
	if len(inputs) < RatioInput+1 || len(outputs) < states+2 {
		return model.Binding{}, errs.Invariantf("rvm.bind", "need %d inputs and %d outputs, got %d/%d",
			RatioInput+1, states+2, len(inputs), len(outputs))
	}

	b := model.Binding{}
	for i, in := range inputs {
		shape := model.NormalizeDims(in.Shape)
		switch {
		case i == 0:
			if len(shape) != 4 {
				return model.Binding{}, errs.Invariantf("rvm.bind", "src has rank %d", len(shape))
			}
			shape[0], shape[2], shape[3] = 1, InputSize, InputSize
		case i <= states:
			shape = []int64{1, StateChannels[i-1], stateSize(i), stateSize(i)}
		}
		b.Inputs = append(b.Inputs, model.TensorInfo{Name: in.Name, Shape: shape})
	}

	for i, out := range outputs[1:] {
		shape := model.NormalizeDims(out.Shape)
		if len(shape) != 4 {
			return model.Binding{}, errs.Invariantf("rvm.bind", "output %q has rank %d", out.Name, len(shape))
		}
		if i == 0 {
			shape[0], shape[2], shape[3] = 1, InputSize, InputSize
		} else {
			shape = []int64{1, StateChannels[i-1], stateSize(i), stateSize(i)}
		}
		b.Outputs = append(b.Outputs, model.TensorInfo{Name: out.Name, Shape: shape})
	}
	return b, nil
}

// LoadInput copies the frame into src and sets the downsample ratio to 1.
func (a *Adapter) LoadInput(prepared []float32, size image.Point, inputs []model.Buffer) error {
	if len(inputs) <= RatioInput || len(inputs[RatioInput].Data) == 0 {
		return errs.Dataf("rvm.load", "expected %d input buffers, got %d", RatioInput+1, len(inputs))
	}
	if err := a.BCHW.LoadInput(prepared, size, inputs); err != nil {
		return err
	}
	inputs[RatioInput].Data[0] = 1
	return nil
}

// AssignOutputToInput copies r1o..r4o into r1i..r4i for the next frame.
func (a *Adapter) AssignOutputToInput(outputs, inputs []model.Buffer) {
	for i := 1; i <= states && i < len(outputs) && i < len(inputs); i++ {
		copy(inputs[i].Data, outputs[i].Data)
	}
}

var _ model.Adapter = (*Adapter)(nil)
