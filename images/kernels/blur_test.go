package kernels

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxBlurRadiusZeroReturnsCopy(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 20, 18, 27))
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}

	out := BoxBlur(img, Options{Radius: 0})
	require.Equal(t, img.Bounds(), out.Bounds())
	assert.Equal(t, img.Pix, out.Pix)

	out.Pix[0] = 99
	assert.Equal(t, uint8(10), img.Pix[0])
}

func TestBoxBlurBoundsMinNotZero(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 7, 9, 12))
	img.SetRGBA(5, 7, color.RGBA{255, 0, 0, 255})

	out := BoxBlur(img, Options{Radius: 1})
	require.Equal(t, img.Rect, out.Rect)
	assert.NotEqual(t, color.RGBA{}, out.RGBAAt(5, 7))
	assert.Equal(t, color.RGBA{}, out.RGBAAt(8, 11))
}

func TestBoxBlurUniformImageIsUnchanged(t *testing.T) {
	for _, edge := range []EdgeMode{EdgeClamp, EdgeMirror, EdgeWrap} {
		img := image.NewGray(image.Rect(0, 0, 9, 7))
		for i := range img.Pix {
			img.Pix[i] = 200
		}
		out := BoxBlurGray(img, Options{Radius: 2, Edge: edge})
		for _, v := range out.Pix {
			assert.Equal(t, uint8(200), v, "edge mode %d", edge)
		}
	}
}

func TestBoxBlurGrayEdgeModes(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.Pix = []byte{0, 255, 0}

	// Window of 3 at x=0: clamp {0,0,255}, mirror {0,0,255}, wrap {0,0,255}.
	clamp := BoxBlurGray(img, Options{Radius: 1, Edge: EdgeClamp})
	assert.Equal(t, []byte{85, 85, 85}, clamp.Pix)

	wrap := BoxBlurGray(img, Options{Radius: 1, Edge: EdgeWrap})
	assert.Equal(t, []byte{85, 85, 85}, wrap.Pix)
}

func TestBoxBlurParallelMatchesSerial(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 96, 80))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	pool := &Pool{}

	serial := BoxBlur(img, Options{Radius: 3, Edge: EdgeMirror})
	parallel := BoxBlur(img, Options{Radius: 3, Edge: EdgeMirror, Parallel: true, Pool: pool})
	assert.Equal(t, serial.Pix, parallel.Pix)
}

func TestMapCoord(t *testing.T) {
	assert.Equal(t, 0, mapCoord(-2, 5, EdgeClamp))
	assert.Equal(t, 4, mapCoord(9, 5, EdgeClamp))
	assert.Equal(t, 1, mapCoord(-2, 5, EdgeMirror))
	assert.Equal(t, 3, mapCoord(6, 5, EdgeMirror))
	assert.Equal(t, 3, mapCoord(-2, 5, EdgeWrap))
	assert.Equal(t, 1, mapCoord(6, 5, EdgeWrap))
}
