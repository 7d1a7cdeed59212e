package sinet

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-bgseg/models/model"
)

func TestPrepareInputStandardizes(t *testing.T) {
	a := New()
	// One pixel equal to the mean, one pixel one std*255 above it.
	rgb := []float32{
		Mean[0], Mean[1], Mean[2],
		Mean[0] + Std[0]*255, Mean[1] + Std[1]*255, Mean[2] + Std[2]*255,
	}

	out, err := a.PrepareInput(rgb, image.Pt(2, 1))
	require.NoError(t, err)
	// CHW: every plane holds [0, 1].
	assert.InDeltaSlice(t, []float32{0, 1, 0, 1, 0, 1}, out, 1e-4)
}

func TestPostProcessForegroundChannel(t *testing.T) {
	a := New()
	outputs := []model.Buffer{{Name: "output", Shape: []int64{1, 2, 1, 2}, Data: []float32{0.9, 0.3, 0.1, 0.7}}}

	m, err := a.MapOutput(model.ActivationNone, outputs)
	require.NoError(t, err)
	out, err := a.PostProcess(m)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.7}, out.Data)
}
