package filter

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/config"
	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/images"
)

func gradient(t *testing.T, w, h int) gocv.Mat {
	t.Helper()
	data := make([]float32, w*h)
	for i := range data {
		data[i] = float32(i%w) / float32(w-1)
	}
	m, err := images.MatFromFloats(w, h, data)
	require.NoError(t, err)
	return m
}

func TestThresholdValue(t *testing.T) {
	assert.Equal(t, 230, ThresholdValue(0.9))
	assert.Equal(t, 0, ThresholdValue(0))
	assert.Equal(t, 255, ThresholdValue(1))
	assert.Equal(t, 128, ThresholdValue(0.5))
}

func TestBinarizeThresholdScenario(t *testing.T) {
	raw, err := images.MatFromFloats(1, 1, []float32{200.0 / 255})
	require.NoError(t, err)
	defer raw.Close()

	out := Binarize(raw, true, 0.9)
	defer out.Close()
	assert.Equal(t, uint8(255), out.GetUCharAt(0, 0))
}

func TestBinarizeInvertsWithoutThreshold(t *testing.T) {
	raw, err := images.MatFromFloats(2, 1, []float32{0, 0.2})
	require.NoError(t, err)
	defer raw.Close()

	out := Binarize(raw, false, 0.9)
	defer out.Close()
	assert.Equal(t, []byte{255, 204}, out.ToBytes())
}

func TestThresholdMonotonicity(t *testing.T) {
	raw := gradient(t, 64, 4)
	defer raw.Close()

	prev := -1
	for thr := 0.0; thr <= 1.0; thr += 0.05 {
		out := Binarize(raw, true, thr)
		n := gocv.CountNonZero(out)
		out.Close()
		assert.GreaterOrEqual(t, n, prev, "threshold %.2f", thr)
		prev = n
	}
}

func TestEffectiveSmoothFactorFloor(t *testing.T) {
	for tsf := 0.0; tsf <= 1.0; tsf += 0.1 {
		for thr := 0.0; thr <= 1.0; thr += 0.1 {
			assert.GreaterOrEqual(t, EffectiveSmoothFactor(tsf, thr, true), thr)
			assert.Equal(t, tsf, EffectiveSmoothFactor(tsf, thr, false))
		}
	}
}

func TestTemporalSmoothIsConvex(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cur := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8U)
	defer cur.Close()
	prev := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8U)
	defer prev.Close()

	for trial := 0; trial < 10; trial++ {
		for r := 0; r < 8; r++ {
			for c := 0; c < 8; c++ {
				cur.SetUCharAt(r, c, uint8(rng.Intn(256)))
				prev.SetUCharAt(r, c, uint8(rng.Intn(256)))
			}
		}
		before := cur.Clone()
		applied, err := TemporalSmooth(&cur, prev, rng.Float64())
		require.NoError(t, err)
		require.True(t, applied)

		for r := 0; r < 8; r++ {
			for c := 0; c < 8; c++ {
				a, b, v := before.GetUCharAt(r, c), prev.GetUCharAt(r, c), cur.GetUCharAt(r, c)
				lo, hi := a, b
				if lo > hi {
					lo, hi = hi, lo
				}
				assert.True(t, v >= lo && v <= hi, "pixel %d,%d: %d not in [%d,%d]", r, c, v, lo, hi)
			}
		}
		before.Close()
	}
}

func TestTemporalSmoothSkips(t *testing.T) {
	cur := gocv.Zeros(4, 4, gocv.MatTypeCV8U)
	defer cur.Close()
	empty := gocv.NewMat()
	defer empty.Close()
	small := gocv.Zeros(2, 2, gocv.MatTypeCV8U)
	defer small.Close()
	floats := gocv.Zeros(4, 4, gocv.MatTypeCV32F)
	defer floats.Close()

	applied, err := TemporalSmooth(&cur, empty, 0.5)
	assert.False(t, applied)
	assert.NoError(t, err)

	applied, err = TemporalSmooth(&cur, small, 0.5)
	assert.False(t, applied)
	assert.NoError(t, err)

	applied, err = TemporalSmooth(&cur, floats, 0.5)
	assert.False(t, applied)
	assert.True(t, errs.Is(err, errs.KindInvariant))
}

func TestKernelSizesAreOdd(t *testing.T) {
	for i := 1; i <= 100; i++ {
		v := float64(i) / 100
		s, f := SmoothKernelSize(v), FeatherKernelSize(v)
		assert.Equal(t, 1, s%2, "smooth %v", v)
		assert.GreaterOrEqual(t, s, 3)
		assert.Equal(t, 1, f%2, "feather %v", v)
		assert.GreaterOrEqual(t, f, 3)
	}
	assert.Equal(t, 3, SmoothKernelSize(0))
	assert.Equal(t, 15, SmoothKernelSize(1))
	assert.Equal(t, 41, FeatherKernelSize(1))
	assert.Equal(t, 21, FeatherKernelSize(0.5))
}

func blobs() gocv.Mat {
	mask := gocv.Zeros(64, 64, gocv.MatTypeCV8U)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.Rectangle(&mask, image.Rect(4, 4, 40, 40), white, -1)
	gocv.Rectangle(&mask, image.Rect(50, 50, 54, 54), white, -1)
	return mask
}

func TestContourFilterBoundsAreNoOps(t *testing.T) {
	r := images.NewRefiner()
	defer r.Close()

	assert.False(t, ContourFilterEnabled(0))
	assert.False(t, ContourFilterEnabled(1))
	assert.True(t, ContourFilterEnabled(0.5))

	for _, f := range []float64{0, 1, -0.5, 1.5} {
		mask := blobs()
		want := images.ComputeMatChecksum(mask)
		require.NoError(t, FilterContours(&mask, r, f))
		assert.Equal(t, want, images.ComputeMatChecksum(mask), "fraction %v", f)
		mask.Close()
	}

	mask := blobs()
	defer mask.Close()
	require.NoError(t, FilterContours(&mask, r, 0.01))
	assert.Equal(t, uint8(0), mask.GetUCharAt(52, 52))
	assert.Equal(t, uint8(255), mask.GetUCharAt(20, 20))
}

func TestSmoothContourKeepsMaskBinary(t *testing.T) {
	mask := blobs()
	defer mask.Close()

	SmoothContour(&mask, 0.8)
	for _, v := range mask.ToBytes() {
		assert.True(t, v == 0 || v == 255)
	}
}

func TestFeatherGrowsAndSoftens(t *testing.T) {
	r := images.NewRefiner()
	defer r.Close()
	mask := blobs()
	defer mask.Close()
	before := gocv.CountNonZero(mask)

	require.NoError(t, Feather(&mask, r, 0.3))
	assert.Greater(t, gocv.CountNonZero(mask), before)

	soft := false
	for _, v := range mask.ToBytes() {
		if v > 0 && v < 255 {
			soft = true
			break
		}
	}
	assert.True(t, soft)
}

func TestFlipIsVertical(t *testing.T) {
	mask := gocv.Zeros(2, 1, gocv.MatTypeCV8U)
	defer mask.Close()
	mask.SetUCharAt(0, 0, 9)

	Flip(&mask)
	assert.Equal(t, []byte{0, 9}, mask.ToBytes())
}

func TestCleanupEnabled(t *testing.T) {
	s := config.Default()
	assert.False(t, CleanupEnabled(s))
	s.EnableThreshold = true
	assert.True(t, CleanupEnabled(s))
	s.UseFloatMask = true
	assert.False(t, CleanupEnabled(s))
}
