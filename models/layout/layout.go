// Package layout - BHWC and BCHW reference adapters.
//
// Concrete models embed one of these and override only what differs.
package layout

import (
	"image"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/models/model"
)

// Base holds the behaviour shared by both layouts.
type Base struct {
	ID model.Name
}

// Name returns the model identifier.
func (b *Base) Name() model.Name {
	return b.ID
}

// Bind selects the first input and the first output.
//
// Arguments:
//   - inputs: The network inputs.
//   - outputs: The network outputs.
//
// Returns:
//   - model.Binding: One input and one output with dynamic dims set to 1.
//   - error: An invariant error if either tensor has fewer than three dims.
func (b *Base) Bind(inputs, outputs []model.TensorInfo) (model.Binding, error) {
	if len(inputs) == 0 || len(outputs) == 0 {
		return model.Binding{}, errs.Invariantf("layout.bind", "%s needs an input and an output, got %d/%d",
			b.ID, len(inputs), len(outputs))
	}
	in := model.TensorInfo{Name: inputs[0].Name, Shape: model.NormalizeDims(inputs[0].Shape)}
	out := model.TensorInfo{Name: outputs[0].Name, Shape: model.NormalizeDims(outputs[0].Shape)}
	if len(in.Shape) < 3 || len(out.Shape) < 3 {
		return model.Binding{}, errs.Invariantf("layout.bind", "input or output rank below 3: input=%v output=%v",
			in.Shape, out.Shape)
	}
	return model.Binding{Inputs: []model.TensorInfo{in}, Outputs: []model.TensorInfo{out}}, nil
}

// LoadInput copies prepared into the first input buffer.
func (b *Base) LoadInput(prepared []float32, _ image.Point, inputs []model.Buffer) error {
	return load(prepared, inputs)
}

// RunInference runs one forward pass on r.
//
// Arguments:
//   - r: The engine runner.
//   - inputs, outputs: The bound buffers.
//
// Returns:
//   - error: An engine error if r is nil, a buffer list is empty or the run fails.
func (b *Base) RunInference(r model.Runner, inputs, outputs []model.Buffer) error {
	return Run(r, inputs, outputs)
}

// AssignOutputToInput is a no-op for stateless networks.
func (b *Base) AssignOutputToInput(_, _ []model.Buffer) {}

// FloatActivation returns model.ActivationNone.
func (b *Base) FloatActivation() model.Activation {
	return model.ActivationNone
}

// Run checks the buffers and runs r. Adapters with custom bindings use it directly.
func Run(r model.Runner, inputs, outputs []model.Buffer) error {
	if r == nil {
		return errs.Enginef("layout.run", "runner is nil")
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return errs.Enginef("layout.run", "inputs or outputs are empty (%d/%d)", len(inputs), len(outputs))
	}
	if err := r.Run(); err != nil {
		if errs.KindOf(err) != errs.KindUnknown {
			return err
		}
		return errs.Engine("layout.run", err)
	}
	return nil
}

func load(prepared []float32, inputs []model.Buffer) error {
	if len(inputs) == 0 {
		return errs.Dataf("layout.load", "no input buffers")
	}
	if len(prepared) != len(inputs[0].Data) {
		return errs.Dataf("layout.load", "prepared input has %d values, tensor %q holds %d",
			len(prepared), inputs[0].Name, len(inputs[0].Data))
	}
	copy(inputs[0].Data, prepared)
	return nil
}

func output(outputs []model.Buffer) (model.Buffer, error) {
	if len(outputs) == 0 {
		return model.Buffer{}, errs.Invariantf("layout.output", "no output buffers")
	}
	if len(outputs[0].Shape) < 3 {
		return model.Buffer{}, errs.Invariantf("layout.output", "output %q has rank %d",
			outputs[0].Name, len(outputs[0].Shape))
	}
	return outputs[0], nil
}

var (
	_ model.Adapter = (*BHWC)(nil)
	_ model.Adapter = (*BCHW)(nil)
)
