package inference

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/inference/providers"
	"github.com/nvr-ai/go-bgseg/models/model"
)

// WeightSource loads serialized model weights by model name.
type WeightSource interface {
	Load(name model.Name) ([]byte, error)
}

// EngineBuilder assembles an engine factory with a fluent API.
type EngineBuilder struct {
	weights  WeightSource
	level    zapcore.Level
	logger   *zap.Logger
	initFunc func(zapcore.Level) error
	err      error
}

// NewEngineBuilder creates a new engine builder.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{
		level:    zapcore.WarnLevel,
		initFunc: providers.InitializeEnvironment,
	}
}

// WithWeights sets where model weights come from.
func (b *EngineBuilder) WithWeights(src WeightSource) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if src == nil {
		b.err = errs.Configurationf("inference.builder", "weight source is nil")
		return b
	}
	b.weights = src
	return b
}

// WithLogger sets the logger and the native runtime log level.
func (b *EngineBuilder) WithLogger(l *zap.Logger, level zapcore.Level) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.logger = l
	b.level = level
	return b
}

// HasError checks if the engine builder has errors.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// Build returns a factory that creates ONNX Runtime sessions.
//
// The runtime environment is initialized lazily by the first engine created, so a process
// that never loads a model never needs the shared library.
//
// Returns:
//   - model.EngineFactory: The factory.
//   - error: A configuration error if no weight source is set.
//
// @example
// factory, err := inference.NewEngineBuilder().WithWeights(util.DirectoryWeights("models")).Build()
func (b *EngineBuilder) Build() (model.EngineFactory, error) {
	if b.HasError() {
		return nil, b.err
	}
	if b.weights == nil {
		return nil, errs.Configurationf("inference.builder", "weight source not configured")
	}

	weights, level, init := b.weights, b.level, b.initFunc
	log := b.logger
	if log == nil {
		log = zap.L()
	}

	return func(adapter model.Adapter, opts model.EngineOptions) (model.Engine, error) {
		backend, err := providers.ParseBackend(opts.Backend)
		if err != nil {
			return nil, err
		}
		data, err := weights.Load(adapter.Name())
		if err != nil {
			return nil, err
		}
		if err := init(level); err != nil {
			return nil, err
		}
		return NewSession(SessionArgs{
			ModelData: data,
			Backend:   backend,
			Threads:   opts.Threads,
			Adapter:   adapter,
			Logger:    log,
		})
	}, nil
}
