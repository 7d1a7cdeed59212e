package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// NewSessionOptions creates session options for the provider.
//
// Graph optimizations are fully enabled. GPU providers run sequentially with memory
// patterns disabled; the CPU provider uses threads for both intra- and inter-op pools.
//
// Arguments:
//   - provider: The execution provider to register.
//   - threads: The CPU thread count. Values below 1 leave the runtime default.
//
// Returns:
//   - *ort.SessionOptions: The options. The caller destroys them once the session exists.
//   - error: An error if the options or the provider cannot be set up.
func NewSessionOptions(provider ExecutionProvider, threads int) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}

	if err := configure(options, provider, threads); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func configure(options *ort.SessionOptions, provider ExecutionProvider, threads int) error {
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return errors.Wrap(err, "error setting graph optimization level")
	}

	if provider.Backend().IsGPU() {
		if err := options.SetMemPattern(false); err != nil {
			return errors.Wrap(err, "error disabling memory pattern")
		}
		if err := options.SetExecutionMode(ort.ExecutionModeSequential); err != nil {
			return errors.Wrap(err, "error setting execution mode")
		}
	} else if threads > 0 {
		if err := options.SetIntraOpNumThreads(threads); err != nil {
			return errors.Wrap(err, "error setting intra-op threads")
		}
		if err := options.SetInterOpNumThreads(threads); err != nil {
			return errors.Wrap(err, "error setting inter-op threads")
		}
	}

	if err := provider.Append(options); err != nil {
		return errors.Wrapf(err, "error enabling %s", provider.Backend())
	}
	return nil
}
