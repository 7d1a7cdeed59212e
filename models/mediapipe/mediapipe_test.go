package mediapipe

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-bgseg/models/model"
)

func outputs(w, h int, data []float32) []model.Buffer {
	return []model.Buffer{{Name: "segment", Shape: []int64{1, int64(h), int64(w), 2}, Data: data}}
}

func TestNetworkInputSize(t *testing.T) {
	a := New()
	b, err := a.Bind(
		[]model.TensorInfo{{Name: "input_1", Shape: []int64{1, 144, 256, 3}}},
		[]model.TensorInfo{{Name: "segment", Shape: []int64{1, 144, 256, 2}}},
	)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(256, 144), a.NetworkInputSize(b))
	assert.Equal(t, model.NameMediapipe, a.Name())
}

func TestSoftmaxEqualLogits(t *testing.T) {
	a := New()
	m, err := a.MapOutput(a.FloatActivation(), outputs(64, 64, make([]float32, 64*64*2)))
	require.NoError(t, err)
	require.Equal(t, 1, m.Channels)
	for _, v := range m.Data {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestPostProcessTakesSecondChannel(t *testing.T) {
	a := New()
	m, err := a.MapOutput(model.ActivationNone, outputs(2, 1, []float32{0.2, 0.8, 0.6, 0.4}))
	require.NoError(t, err)
	require.Equal(t, 2, m.Channels)

	out, err := a.PostProcess(m)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.8, 0.4}, out.Data)
}
