package selfie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-bgseg/models/model"
)

func TestPostProcessMinMax(t *testing.T) {
	a := New()
	raw := []float32{0.2, 0.4, 0.6}
	outputs := []model.Buffer{{Name: "output", Shape: []int64{1, 1, 3, 1}, Data: raw}}

	m, err := a.MapOutput(model.ActivationNone, outputs)
	require.NoError(t, err)
	out, err := a.PostProcess(m)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float32{0, 0.5, 1}, out.Data, 1e-6)
	assert.Equal(t, []float32{0.2, 0.4, 0.6}, raw, "engine buffer must not be modified")
	assert.Equal(t, model.NameSelfie, a.Name())
}
