package providers

import (
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
)

// CoreML provider flags.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
const (
	CoreMLFlagUseCPUOnly       uint32 = 0x001
	CoreMLFlagEnableOnSubgraph uint32 = 0x002
	CoreMLFlagOnlyANEDevice    uint32 = 0x004
)

// CoreMLOptions contains arguments for the CoreML provider.
type CoreMLOptions struct {
	// Flags is a bitwise OR of the CoreMLFlag constants.
	Flags uint32 `json:"flags" yaml:"flags"`
}

// CoreMLProvider implements ExecutionProvider for CoreML.
type CoreMLProvider struct {
	options CoreMLOptions
}

// NewCoreMLProvider creates a new CoreML provider.
func NewCoreMLProvider(options CoreMLOptions) *CoreMLProvider {
	return &CoreMLProvider{options: options}
}

// Backend returns CoreMLProviderBackend.
func (p *CoreMLProvider) Backend() ProviderBackend {
	return CoreMLProviderBackend
}

// Append enables CoreML on opts.
func (p *CoreMLProvider) Append(opts *ort.SessionOptions) error {
	return opts.AppendExecutionProviderCoreML(p.options.Flags)
}
