package test

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/models/model"
)

// FillFunc writes the outputs of run number n (starting at 1).
type FillFunc func(n int, inputs, outputs []model.Buffer) error

// Constant fills the first output with v.
func Constant(v float32) FillFunc {
	return func(_ int, _, outputs []model.Buffer) error {
		for i := range outputs[0].Data {
			outputs[0].Data[i] = v
		}
		return nil
	}
}

// Interleaved fills the first output with a repeating per-channel pattern, e.g.
// Interleaved(0, 0) for a two-channel map of equal logits.
func Interleaved(values ...float32) FillFunc {
	return func(_ int, _, outputs []model.Buffer) error {
		for i := range outputs[0].Data {
			outputs[0].Data[i] = values[i%len(values)]
		}
		return nil
	}
}

// Sequence uses fills[n-1] on run n and repeats the last one afterwards.
func Sequence(fills ...FillFunc) FillFunc {
	return func(n int, inputs, outputs []model.Buffer) error {
		i := n - 1
		if i >= len(fills) {
			i = len(fills) - 1
		}
		return fills[i](n, inputs, outputs)
	}
}

// FailOn returns err on the given runs and delegates to fill otherwise.
func FailOn(fill FillFunc, err error, runs ...int) FillFunc {
	return func(n int, inputs, outputs []model.Buffer) error {
		for _, r := range runs {
			if r == n {
				return err
			}
		}
		return fill(n, inputs, outputs)
	}
}

// FakeEngine is an in-memory model.Engine whose outputs are produced by a FillFunc.
type FakeEngine struct {
	mu      sync.Mutex
	binding model.Binding
	inputs  []model.Buffer
	outputs []model.Buffer
	fill    FillFunc
	runs    int
	closed  bool
}

// NewFakeEngine binds adapter to the given network tensors and allocates buffers.
//
// Arguments:
//   - adapter: The adapter whose Bind selects the tensors.
//   - inputs, outputs: The network tensors as a model file would report them.
//   - fill: Produces outputs on each Run.
//
// Returns:
//   - *FakeEngine: The engine.
//   - error: The adapter's Bind error.
func NewFakeEngine(adapter model.Adapter, inputs, outputs []model.TensorInfo, fill FillFunc) (*FakeEngine, error) {
	b, err := adapter.Bind(inputs, outputs)
	if err != nil {
		return nil, err
	}
	return &FakeEngine{
		binding: b,
		inputs:  allocate(b.Inputs),
		outputs: allocate(b.Outputs),
		fill:    fill,
	}, nil
}

func allocate(infos []model.TensorInfo) []model.Buffer {
	out := make([]model.Buffer, len(infos))
	for i, info := range infos {
		out[i] = model.Buffer{Name: info.Name, Shape: model.CopyShape(info.Shape), Data: make([]float32, info.Size())}
	}
	return out
}

// Run calls the fill function.
func (e *FakeEngine) Run() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errs.Enginef("test.run", "engine is closed")
	}
	e.runs++
	if e.fill == nil {
		return nil
	}
	return e.fill(e.runs, e.inputs, e.outputs)
}

// Runs returns the number of Run calls.
func (e *FakeEngine) Runs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}

// Closed reports whether Close was called.
func (e *FakeEngine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Binding implements model.Engine.
func (e *FakeEngine) Binding() model.Binding { return e.binding }

// Inputs implements model.Engine.
func (e *FakeEngine) Inputs() []model.Buffer { return e.inputs }

// Outputs implements model.Engine.
func (e *FakeEngine) Outputs() []model.Buffer { return e.outputs }

// Close implements model.Engine.
func (e *FakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ model.Engine = (*FakeEngine)(nil)

// FakeFactory builds FakeEngines and remembers every engine and option it was asked for.
type FakeFactory struct {
	Inputs  []model.TensorInfo
	Outputs []model.TensorInfo
	Fill    FillFunc
	// Err, when set, is returned instead of creating an engine.
	Err error

	mu      sync.Mutex
	engines []*FakeEngine
	options []model.EngineOptions
}

// Factory returns the model.EngineFactory.
func (f *FakeFactory) Factory() model.EngineFactory {
	return func(adapter model.Adapter, opts model.EngineOptions) (model.Engine, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.options = append(f.options, opts)
		if f.Err != nil {
			return nil, f.Err
		}
		e, err := NewFakeEngine(adapter, f.Inputs, f.Outputs, f.Fill)
		if err != nil {
			return nil, errors.Wrap(err, "error binding fake engine")
		}
		f.engines = append(f.engines, e)
		return e, nil
	}
}

// Engines returns the engines created so far.
func (f *FakeFactory) Engines() []*FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeEngine(nil), f.engines...)
}

// Last returns the most recent engine, or nil.
func (f *FakeFactory) Last() *FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

// Options returns the engine options of every factory call.
func (f *FakeFactory) Options() []model.EngineOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.EngineOptions(nil), f.options...)
}

// BHWC returns tensor infos for an NHWC network with an h x w x 3 input and an
// h x w x c output.
func BHWC(h, w, c int64) (inputs, outputs []model.TensorInfo) {
	return []model.TensorInfo{{Name: "input", Shape: []int64{1, h, w, 3}}},
		[]model.TensorInfo{{Name: "output", Shape: []int64{1, h, w, c}}}
}
