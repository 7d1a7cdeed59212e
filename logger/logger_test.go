package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetReplacesGlobals(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))

	Log().Info("model loaded", zap.String("model", "mediapipe"))
	zap.L().Info("via globals")

	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, "mediapipe", logs.All()[0].ContextMap()["model"])
	assert.Equal(t, zapcore.InfoLevel, Level())
}

func TestLevelWarn(t *testing.T) {
	core, _ := observer.New(zapcore.WarnLevel)
	Set(zap.New(core))
	assert.Equal(t, zapcore.WarnLevel, Level())
}
