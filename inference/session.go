// Package inference - ONNX Runtime sessions bound to a segmentation model adapter.
package inference

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/inference/providers"
	"github.com/nvr-ai/go-bgseg/models/model"
)

// SessionArgs represents the arguments for creating a new session.
type SessionArgs struct {
	// ModelData is the serialized ONNX model.
	ModelData []byte
	// Backend selects the execution provider.
	Backend providers.ProviderBackend
	// Threads is the CPU thread count.
	Threads int
	// Adapter decides which tensors are bound and their shapes.
	Adapter model.Adapter
	// Logger defaults to zap's global logger.
	Logger *zap.Logger
}

// Stats holds run timings of a session.
type Stats struct {
	Runs  int64
	Total time.Duration
	Last  time.Duration
}

// Average returns the mean run duration.
func (s Stats) Average() time.Duration {
	if s.Runs == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Runs)
}

// Session is an ONNX Runtime session with preallocated float32 tensors.
//
// The buffers returned by Inputs and Outputs alias the tensor memory, so adapters write
// inputs and read outputs in place.
type Session struct {
	session *ort.AdvancedSession
	binding model.Binding
	tensors []*ort.Tensor[float32]
	inputs  []model.Buffer
	outputs []model.Buffer
	backend providers.ProviderBackend

	mu    sync.Mutex
	stats Stats
}

// NewSession creates a session for args.Adapter from model bytes.
//
// Order of operations:
//  1. Provider selection from the backend identifier.
//  2. Tensor discovery from the model file, then Adapter.Bind.
//  3. Tensor allocation for every bound input and output.
//  4. Session options and execution provider registration.
//  5. Session creation. Tensors are destroyed again if it fails.
//
// The ONNX Runtime environment must already be initialized.
//
// Arguments:
//   - args: The session arguments.
//
// Returns:
//   - *Session: The session.
//   - error: A configuration error for bad arguments, an invariant error if the adapter
//     rejects the network, or an engine error if ONNX Runtime fails.
func NewSession(args SessionArgs) (*Session, error) {
	if args.Adapter == nil {
		return nil, errs.Configurationf("inference.new_session", "adapter is required")
	}
	if len(args.ModelData) == 0 {
		return nil, errs.Configurationf("inference.new_session", "model %s has no data", args.Adapter.Name())
	}
	log := args.Logger
	if log == nil {
		log = zap.L()
	}

	provider, err := providers.NewProvider(args.Backend)
	if err != nil {
		return nil, err
	}

	ins, outs, err := ort.GetInputOutputInfoWithONNXData(args.ModelData)
	if err != nil {
		return nil, errs.Engine("inference.new_session", errors.Wrap(err, "error reading model inputs and outputs"))
	}
	binding, err := args.Adapter.Bind(tensorInfos(ins), tensorInfos(outs))
	if err != nil {
		return nil, err
	}

	s := &Session{binding: binding, backend: args.Backend}
	inputValues, err := s.allocate(binding.Inputs, &s.inputs)
	if err != nil {
		return nil, multierr.Append(err, s.destroyTensors())
	}
	outputValues, err := s.allocate(binding.Outputs, &s.outputs)
	if err != nil {
		return nil, multierr.Append(err, s.destroyTensors())
	}

	options, err := providers.NewSessionOptions(provider, args.Threads)
	if err != nil {
		return nil, multierr.Append(errs.Engine("inference.new_session", err), s.destroyTensors())
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSessionWithONNXData(
		args.ModelData,
		binding.InputNames(),
		binding.OutputNames(),
		inputValues,
		outputValues,
		options,
	)
	if err != nil {
		err = errs.Engine("inference.new_session", errors.Wrap(err, "error creating ORT session"))
		return nil, multierr.Append(err, s.destroyTensors())
	}
	s.session = session

	log.Info("inference session created",
		zap.String("model", string(args.Adapter.Name())),
		zap.String("backend", string(args.Backend)),
		zap.Int("threads", args.Threads),
		zap.Strings("inputs", binding.InputNames()),
		zap.Strings("outputs", binding.OutputNames()),
	)
	return s, nil
}

func tensorInfos(infos []ort.InputOutputInfo) []model.TensorInfo {
	out := make([]model.TensorInfo, len(infos))
	for i, info := range infos {
		out[i] = model.TensorInfo{Name: info.Name, Shape: model.CopyShape(info.Dimensions)}
	}
	return out
}

func (s *Session) allocate(infos []model.TensorInfo, buffers *[]model.Buffer) ([]ort.Value, error) {
	values := make([]ort.Value, 0, len(infos))
	for _, info := range infos {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(info.Shape...))
		if err != nil {
			return nil, errs.Engine("inference.allocate", errors.Wrapf(err, "error creating tensor %q %v", info.Name, info.Shape))
		}
		s.tensors = append(s.tensors, t)
		values = append(values, t)
		*buffers = append(*buffers, model.Buffer{Name: info.Name, Shape: model.CopyShape(info.Shape), Data: t.GetData()})
	}
	return values, nil
}

// Run executes one forward pass with run timing.
//
// Returns:
//   - error: An engine error if the session is closed or the run fails.
func (s *Session) Run() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return errs.Enginef("inference.run", "session is closed")
	}

	start := time.Now()
	err := s.session.Run()
	d := time.Since(start)

	s.stats.Runs++
	s.stats.Total += d
	s.stats.Last = d

	if err != nil {
		return errs.Engine("inference.run", errors.Wrap(err, "error running ORT session"))
	}
	return nil
}

// Stats returns the run timings.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Backend returns the backend the session runs on.
func (s *Session) Backend() providers.ProviderBackend {
	return s.backend
}

// Binding returns the bound tensors.
func (s *Session) Binding() model.Binding { return s.binding }

// Inputs returns the input buffers.
func (s *Session) Inputs() []model.Buffer { return s.inputs }

// Outputs returns the output buffers.
func (s *Session) Outputs() []model.Buffer { return s.outputs }

// Close releases the session and its tensors.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.session != nil {
		if destroyErr := s.session.Destroy(); destroyErr != nil {
			err = multierr.Append(err, errors.Wrap(destroyErr, "error destroying ORT session"))
		}
		s.session = nil
	}
	return multierr.Append(err, s.destroyTensors())
}

func (s *Session) destroyTensors() error {
	var err error
	for _, t := range s.tensors {
		if destroyErr := t.Destroy(); destroyErr != nil {
			err = multierr.Append(err, destroyErr)
		}
	}
	s.tensors = nil
	s.inputs = nil
	s.outputs = nil
	return err
}

var _ model.Engine = (*Session)(nil)
