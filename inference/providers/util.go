package providers

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-bgseg/errs"
)

// SharedLibraryEnv overrides the ONNX Runtime shared library location.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the path to the shared library for the current platform.
//
// Returns:
//   - string: The path to the shared library.
//   - error: A configuration error if the platform has no known library.
func GetSharedLibPath() (string, error) {
	if p := os.Getenv(SharedLibraryEnv); p != "" {
		return p, nil
	}
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "./third_party/libonnxruntime.dylib", nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", errs.Configurationf("providers.lib", "no onnxruntime library for %s/%s", runtime.GOOS, runtime.GOARCH)
}

var (
	envOnce sync.Once
	envErr  error
)

// InitializeEnvironment loads the ONNX Runtime library once per process.
//
// The runtime's own log level follows the zap level so native warnings show up only when
// the process logs at that level.
//
// Arguments:
//   - level: The process log level.
//
// Returns:
//   - error: A configuration error if the library is missing, or an engine error if the
//     environment cannot be created.
func InitializeEnvironment(level zapcore.Level) error {
	envOnce.Do(func() {
		envErr = initialize(level)
	})
	return envErr
}

func initialize(level zapcore.Level) error {
	if ort.IsInitialized() {
		return nil
	}
	libPath, err := GetSharedLibPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(libPath); err != nil {
		return errs.Configuration("providers.init", errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath))
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errs.Engine("providers.init", errors.Wrap(err, "error initializing ORT environment"))
	}
	if err := ort.SetEnvironmentLogLevel(LoggingLevel(level)); err != nil {
		zap.L().Warn("failed to set onnxruntime log level", zap.Error(err))
	}
	return nil
}

// LoggingLevel maps a zap level to the ONNX Runtime logging level.
func LoggingLevel(level zapcore.Level) ort.LoggingLevel {
	switch {
	case level <= zapcore.DebugLevel:
		return ort.LoggingLevelVerbose
	case level == zapcore.InfoLevel:
		return ort.LoggingLevelInfo
	case level == zapcore.WarnLevel:
		return ort.LoggingLevelWarning
	case level == zapcore.ErrorLevel:
		return ort.LoggingLevelError
	default:
		return ort.LoggingLevelFatal
	}
}
