package providers

import (
	"fmt"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// CUDAProviderBackend uses NVIDIA CUDA.
	CUDAProviderBackend ProviderBackend = "cuda"
	// TensorRTProviderBackend uses NVIDIA TensorRT.
	TensorRTProviderBackend ProviderBackend = "tensorrt"
)

// CUDAOptions contains arguments for the CUDA provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/CUDA-ExecutionProvider.html#configuration-options
type CUDAOptions struct {
	// The device ID.
	DeviceID int `json:"deviceID"            yaml:"deviceID"`
	// The size limit of the device memory arena in bytes. Zero keeps the runtime default.
	GPUMemLimit int64 `json:"gpuMemLimit"         yaml:"gpuMemLimit"`
	// 0: kNextPowerOfTwo, 1: kSameAsRequested.
	ArenaExtendStrategy int `json:"arenaExtendStrategy" yaml:"arenaExtendStrategy"`
	// 0: EXHAUSTIVE, 1: HEURISTIC, 2: DEFAULT.
	CudnnConvAlgoSearch int `json:"cudnnConvAlgoSearch" yaml:"cudnnConvAlgoSearch"`
	// Whether to do copies in the default stream.
	DoCopyInDefaultStream bool `json:"doCopyInDefaultStream" yaml:"doCopyInDefaultStream"`
}

// settings returns the provider option keys understood by ONNX Runtime.
func (o CUDAOptions) settings() map[string]string {
	m := map[string]string{
		"device_id":                 fmt.Sprintf("%d", o.DeviceID),
		"arena_extend_strategy":     arenaStrategies[o.ArenaExtendStrategy%len(arenaStrategies)],
		"cudnn_conv_algo_search":    convSearches[o.CudnnConvAlgoSearch%len(convSearches)],
		"do_copy_in_default_stream": fmt.Sprintf("%d", boolInt(o.DoCopyInDefaultStream)),
	}
	if o.GPUMemLimit > 0 {
		m["gpu_mem_limit"] = fmt.Sprintf("%d", o.GPUMemLimit)
	}
	return m
}

var (
	arenaStrategies = []string{"kNextPowerOfTwo", "kSameAsRequested"}
	convSearches    = []string{"EXHAUSTIVE", "HEURISTIC", "DEFAULT"}
)

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CUDAProvider implements ExecutionProvider for CUDA.
type CUDAProvider struct {
	options CUDAOptions
}

// NewCUDAProvider creates a new CUDA provider.
func NewCUDAProvider(args CUDAOptions) *CUDAProvider {
	return &CUDAProvider{options: args}
}

// Backend returns CUDAProviderBackend.
func (p *CUDAProvider) Backend() ProviderBackend {
	return CUDAProviderBackend
}

// Append enables CUDA on opts.
func (p *CUDAProvider) Append(opts *ort.SessionOptions) error {
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return errors.Wrap(err, "error creating CUDA provider options")
	}
	defer cuda.Destroy()

	if err := cuda.Update(p.options.settings()); err != nil {
		return errors.Wrap(err, "error updating CUDA provider options")
	}
	return opts.AppendExecutionProviderCUDA(cuda)
}

// TensorRTOptions contains arguments for the TensorRT provider.
type TensorRTOptions struct {
	DeviceID int `json:"deviceID" yaml:"deviceID"`
	// FP16 enables half precision kernels.
	FP16 bool `json:"fp16" yaml:"fp16"`
}

// TensorRTProvider implements ExecutionProvider for TensorRT.
type TensorRTProvider struct {
	options TensorRTOptions
}

// NewTensorRTProvider creates a new TensorRT provider.
func NewTensorRTProvider(args TensorRTOptions) *TensorRTProvider {
	return &TensorRTProvider{options: args}
}

// Backend returns TensorRTProviderBackend.
func (p *TensorRTProvider) Backend() ProviderBackend {
	return TensorRTProviderBackend
}

// Append enables TensorRT on opts.
func (p *TensorRTProvider) Append(opts *ort.SessionOptions) error {
	trt, err := ort.NewTensorRTProviderOptions()
	if err != nil {
		return errors.Wrap(err, "error creating TensorRT provider options")
	}
	defer trt.Destroy()

	err = trt.Update(map[string]string{
		"device_id":       fmt.Sprintf("%d", p.options.DeviceID),
		"trt_fp16_enable": fmt.Sprintf("%d", boolInt(p.options.FP16)),
	})
	if err != nil {
		return errors.Wrap(err, "error updating TensorRT provider options")
	}
	return opts.AppendExecutionProviderTensorRT(trt)
}
