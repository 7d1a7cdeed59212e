package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// OpenVINOProviderBackend uses Intel OpenVINO.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// Precision is the OpenVINO inference precision.
type Precision string

const (
	// PrecisionAccuracy keeps the model's own input precision.
	PrecisionAccuracy Precision = "ACCURACY"
	// PrecisionFP32 represents 32-bit floating point precision.
	PrecisionFP32 Precision = "FP32"
	// PrecisionFP16 represents 16-bit floating point precision.
	PrecisionFP16 Precision = "FP16"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Accelerator type, e.g. CPU, GPU or NPU.
	DeviceType string `json:"deviceType"   yaml:"deviceType"`
	// Supported precisions for HW {CPU:FP32, GPU:[FP32, FP16, ACCURACY], NPU:FP16}.
	Precision Precision `json:"precision"    yaml:"precision"`
	// Overrides the accelerator default thread count when positive.
	NumOfThreads int `json:"numOfThreads" yaml:"numOfThreads"`
}

func (o OpenVINOOptions) settings() map[string]string {
	m := map[string]string{
		"device_type": o.DeviceType,
		"precision":   string(o.Precision),
	}
	if o.NumOfThreads > 0 {
		m["num_of_threads"] = fmt.Sprintf("%d", o.NumOfThreads)
	}
	return m
}

// OpenVINOProvider implements ExecutionProvider for OpenVINO.
type OpenVINOProvider struct {
	options OpenVINOOptions
}

// NewOpenVINOProvider creates a new OpenVINO provider.
func NewOpenVINOProvider(args OpenVINOOptions) *OpenVINOProvider {
	return &OpenVINOProvider{options: args}
}

// Backend returns OpenVINOProviderBackend.
func (p *OpenVINOProvider) Backend() ProviderBackend {
	return OpenVINOProviderBackend
}

// Append enables OpenVINO on opts.
func (p *OpenVINOProvider) Append(opts *ort.SessionOptions) error {
	return opts.AppendExecutionProviderOpenVINO(p.options.settings())
}
