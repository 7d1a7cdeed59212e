package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/images"
)

func TestBlendValue(t *testing.T) {
	// Maximum uncertainty keeps ratio of the previous value.
	assert.InDelta(t, 0.75, BlendValue(1, 0.5, 0.5), 1e-6)
	assert.InDelta(t, 0.5, BlendValue(1, 0.5, 0), 1e-6)
	// Confident values barely move.
	assert.InDelta(t, 0, BlendValue(1, 0, 1), 1e-3)
	assert.InDelta(t, 1, BlendValue(0, 1, 1), 1e-3)
}

func TestBlendSegmentationSmoothing(t *testing.T) {
	cur, err := images.MatFromFloats(2, 1, []float32{0.5, 1})
	require.NoError(t, err)
	defer cur.Close()
	prev, err := images.MatFromFloats(2, 1, []float32{1, 0})
	require.NoError(t, err)
	defer prev.Close()

	applied, err := BlendSegmentationSmoothing(&cur, prev, 0.5)
	require.NoError(t, err)
	require.True(t, applied)
	assert.InDelta(t, 0.75, cur.GetFloatAt(0, 0), 1e-5)
	assert.InDelta(t, 1, cur.GetFloatAt(0, 1), 1e-3)
}

func TestBlendSegmentationSmoothingSkips(t *testing.T) {
	cur, err := images.MatFromFloats(2, 1, []float32{0.5, 1})
	require.NoError(t, err)
	defer cur.Close()
	empty := gocv.NewMat()
	defer empty.Close()
	bytes := gocv.Zeros(1, 2, gocv.MatTypeCV8U)
	defer bytes.Close()

	applied, err := BlendSegmentationSmoothing(&cur, empty, 0.5)
	assert.False(t, applied)
	assert.NoError(t, err)

	applied, err = BlendSegmentationSmoothing(&cur, bytes, 0.5)
	assert.False(t, applied)
	assert.True(t, errs.Is(err, errs.KindInvariant))
}
