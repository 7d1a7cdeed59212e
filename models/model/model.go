// Package model - Contract shared by the segmentation model adapters.
//
// An Adapter hides the tensor layout, normalization and recurrent-state handling of one
// network family behind the same six operations, so the mask filter can drive any of them.
package model

import (
	"image"
)

// Name is the unique identifier of a model.
type Name string

const (
	// NameDefault is a generic BHWC network with a single-channel output.
	NameDefault Name = "default"
	// NameBCHW is a generic BCHW network with a single-channel output.
	NameBCHW Name = "bchw"
	// NameMediapipe is the Mediapipe selfie segmenter (two-channel BHWC output).
	NameMediapipe Name = "mediapipe"
	// NameSelfie is the selfie_segmentation network.
	NameSelfie Name = "selfie_segmentation"
	// NameSINet is the SINet_Softmax_simple network.
	NameSINet Name = "SINet_Softmax_simple"
	// NameRVM is the Robust Video Matting MobileNetV3 network.
	NameRVM Name = "rvm_mobilenetv3_fp32"
	// NamePPHumanSeg is the PaddlePaddle PP-HumanSeg network.
	NamePPHumanSeg Name = "pphumanseg_fp32"
)

// TensorInfo describes one named tensor of a network.
type TensorInfo struct {
	Name  string
	Shape []int64
}

// Size returns the number of elements described by Shape.
func (t TensorInfo) Size() int {
	return int(VectorProduct(t.Shape))
}

// Buffer is a float32 tensor bound to an engine input or output.
//
// Data may alias memory owned by the engine. It stays valid until the engine is closed.
type Buffer struct {
	Name  string
	Shape []int64
	Data  []float32
}

// Binding is the set of tensors an adapter wants the engine to allocate.
type Binding struct {
	Inputs  []TensorInfo
	Outputs []TensorInfo
}

// InputNames returns the names of the bound inputs.
func (b Binding) InputNames() []string {
	return names(b.Inputs)
}

// OutputNames returns the names of the bound outputs.
func (b Binding) OutputNames() []string {
	return names(b.Outputs)
}

func names(infos []TensorInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Name
	}
	return out
}

// Runner executes a single forward pass over buffers it already holds.
type Runner interface {
	Run() error
}

// Engine is a loaded network with allocated input and output buffers.
type Engine interface {
	Runner
	// Binding returns the tensors the engine was created with.
	Binding() Binding
	// Inputs returns the input buffers in binding order.
	Inputs() []Buffer
	// Outputs returns the output buffers in binding order.
	Outputs() []Buffer
	// Close releases the engine and its buffers.
	Close() error
}

// EngineOptions selects where and how an engine runs.
type EngineOptions struct {
	// Backend is the opaque accelerator identifier, e.g. "cpu" or "cuda".
	Backend string
	// Threads is the CPU thread count.
	Threads int
}

// EngineFactory creates an engine for an adapter.
type EngineFactory func(adapter Adapter, opts EngineOptions) (Engine, error)

// Adapter is the strategy every segmentation model implements.
type Adapter interface {
	// Name returns the model identifier.
	Name() Name

	// Bind picks the network tensors to allocate and normalizes their dims.
	//
	// Arguments:
	//   - inputs: The network inputs as reported by the model file.
	//   - outputs: The network outputs as reported by the model file.
	//
	// Returns:
	//   - Binding: The tensors to allocate.
	//   - error: An invariant error if the network does not fit the adapter.
	Bind(inputs, outputs []TensorInfo) (Binding, error)

	// NetworkInputSize returns the spatial input size (X=width, Y=height).
	NetworkInputSize(b Binding) image.Point

	// PrepareInput normalizes an HWC RGB float image (0..255) and converts it to the
	// layout the network consumes.
	PrepareInput(rgb []float32, size image.Point) ([]float32, error)

	// LoadInput copies the prepared image into the input buffers. Recurrent state in the
	// other inputs is left untouched.
	LoadInput(prepared []float32, size image.Point, inputs []Buffer) error

	// RunInference runs one synchronous forward pass.
	RunInference(r Runner, inputs, outputs []Buffer) error

	// MapOutput wraps the primary output as an HWC map, applying the activation.
	MapOutput(act Activation, outputs []Buffer) (Map, error)

	// PostProcess reduces a mapped output to a single-channel [0,1] map.
	PostProcess(m Map) (Map, error)

	// AssignOutputToInput feeds recurrent outputs back into the inputs.
	AssignOutputToInput(outputs, inputs []Buffer)

	// FloatActivation is the activation used in float-mask mode.
	FloatActivation() Activation
}
