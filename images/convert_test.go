package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/errs"
)

func TestBGRToRGBFloats(t *testing.T) {
	bgr := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 2, 2, gocv.MatTypeCV8UC3)
	defer bgr.Close()

	data, err := BGRToRGBFloats(bgr)
	require.NoError(t, err)
	require.Len(t, data, 12)
	assert.Equal(t, []float32{30, 20, 10}, data[:3])

	gray := gocv.Zeros(2, 2, gocv.MatTypeCV8U)
	defer gray.Close()
	_, err = BGRToRGBFloats(gray)
	assert.True(t, errs.Is(err, errs.KindData))
}

func TestMatFromFloatsAndGrayImage(t *testing.T) {
	m, err := MatFromFloats(2, 1, []float32{0, 1})
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, float32(1), m.GetFloatAt(0, 1))

	g, err := GrayImage(m)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 255}, g.Pix)

	_, err = MatFromFloats(3, 1, []float32{0, 1})
	assert.True(t, errs.Is(err, errs.KindData))
}
