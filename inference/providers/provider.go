// Package providers - Execution provider selection for ONNX Runtime sessions.
package providers

import (
	"strings"

	"github.com/samber/lo"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-bgseg/errs"
)

// ProviderBackend is the opaque accelerator identifier carried in settings.
type ProviderBackend string

const (
	// CPUProviderBackend runs on the default CPU execution provider.
	CPUProviderBackend ProviderBackend = "cpu"
	// DirectMLProviderBackend uses DirectML on Windows.
	DirectMLProviderBackend ProviderBackend = "dml"
)

// Backends lists every accepted backend identifier.
var Backends = []ProviderBackend{
	CPUProviderBackend,
	DirectMLProviderBackend,
	CUDAProviderBackend,
	TensorRTProviderBackend,
	CoreMLProviderBackend,
	OpenVINOProviderBackend,
}

// IsGPU reports whether the backend offloads work from the CPU.
func (b ProviderBackend) IsGPU() bool {
	return b != CPUProviderBackend
}

// ParseBackend validates a backend identifier. Matching is case-insensitive.
//
// Arguments:
//   - s: The backend identifier, e.g. "cuda".
//
// Returns:
//   - ProviderBackend: The backend.
//   - error: A configuration error if s is unknown.
func ParseBackend(s string) (ProviderBackend, error) {
	b := ProviderBackend(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(Backends, b) {
		return "", errs.Configurationf("providers.parse", "unsupported backend %q", s)
	}
	return b, nil
}

// ExecutionProvider registers itself on a set of session options.
type ExecutionProvider interface {
	Backend() ProviderBackend
	// Append adds the provider to opts.
	Append(opts *ort.SessionOptions) error
}

// NewProvider creates the provider for backend with default options.
//
// Arguments:
//   - backend: The backend.
//
// Returns:
//   - ExecutionProvider: The provider.
//   - error: A configuration error for unknown backends.
func NewProvider(backend ProviderBackend) (ExecutionProvider, error) {
	switch backend {
	case CPUProviderBackend:
		return cpuProvider{}, nil
	case DirectMLProviderBackend:
		return NewDirectMLProvider(0), nil
	case CUDAProviderBackend:
		return NewCUDAProvider(CUDAOptions{}), nil
	case TensorRTProviderBackend:
		return NewTensorRTProvider(TensorRTOptions{}), nil
	case CoreMLProviderBackend:
		return NewCoreMLProvider(CoreMLOptions{Flags: CoreMLFlagEnableOnSubgraph}), nil
	case OpenVINOProviderBackend:
		return NewOpenVINOProvider(OpenVINOOptions{DeviceType: "CPU", Precision: PrecisionFP32}), nil
	default:
		return nil, errs.Configurationf("providers.new", "no provider registered for backend %q", backend)
	}
}

// cpuProvider needs no registration; ONNX Runtime always falls back to CPU.
type cpuProvider struct{}

func (cpuProvider) Backend() ProviderBackend { return CPUProviderBackend }

func (cpuProvider) Append(*ort.SessionOptions) error { return nil }

// DirectMLProvider runs on a DirectML device.
type DirectMLProvider struct {
	DeviceID int
}

// NewDirectMLProvider creates a DirectML provider for the given adapter index.
func NewDirectMLProvider(deviceID int) *DirectMLProvider {
	return &DirectMLProvider{DeviceID: deviceID}
}

// Backend returns DirectMLProviderBackend.
func (p *DirectMLProvider) Backend() ProviderBackend { return DirectMLProviderBackend }

// Append enables DirectML on opts.
func (p *DirectMLProvider) Append(opts *ort.SessionOptions) error {
	return opts.AppendExecutionProviderDirectML(p.DeviceID)
}
