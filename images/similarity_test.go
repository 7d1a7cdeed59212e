package images

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/errs"
)

func filled(rows, cols int, v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func TestPSNRIdenticalIsInfinite(t *testing.T) {
	a := filled(16, 16, 90)
	defer a.Close()
	b := a.Clone()
	defer b.Close()

	got, err := PSNR(a, b)
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, 1))
}

func TestPSNRKnownValue(t *testing.T) {
	a := filled(8, 8, 100)
	defer a.Close()
	b := filled(8, 8, 110)
	defer b.Close()

	// MSE is 100 everywhere: 10*log10(65025/100).
	got, err := PSNR(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 28.1308, got, 1e-3)
}

func TestPSNRDecreasesWithDifference(t *testing.T) {
	a := filled(8, 8, 100)
	defer a.Close()
	near := filled(8, 8, 102)
	defer near.Close()
	far := filled(8, 8, 160)
	defer far.Close()

	pNear, err := PSNR(a, near)
	require.NoError(t, err)
	pFar, err := PSNR(a, far)
	require.NoError(t, err)
	assert.Greater(t, pNear, pFar)
}

func TestPSNRMismatch(t *testing.T) {
	a := filled(8, 8, 0)
	defer a.Close()
	b := filled(4, 8, 0)
	defer b.Close()
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := PSNR(a, b)
	assert.True(t, errs.Is(err, errs.KindData))
	_, err = PSNR(a, empty)
	assert.True(t, errs.Is(err, errs.KindData))
}

func TestComputeMatChecksum(t *testing.T) {
	a := filled(4, 4, 7)
	defer a.Close()
	b := a.Clone()
	defer b.Close()
	empty := gocv.NewMat()
	defer empty.Close()

	assert.Equal(t, ComputeMatChecksum(a), ComputeMatChecksum(b))
	assert.Equal(t, "empty", ComputeMatChecksum(empty))

	b.SetUCharAt(0, 0, 8)
	assert.NotEqual(t, ComputeMatChecksum(a), ComputeMatChecksum(b))
}
