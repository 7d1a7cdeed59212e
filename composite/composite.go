// Package composite - CPU compositor that applies a stabilized mask to a camera frame.
//
// A CV_8U mask is a background mask (255 shows the background). A CV_32F mask is a
// foreground confidence in [0,1]. Published masks are stored bottom-up (row 0 is the
// bottom of the frame) and are flipped back before blending.
package composite

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/images"
	"github.com/nvr-ai/go-bgseg/images/kernels"
)

// MaxBlurRadius is the box radius used for BlurBackground=1.
const MaxBlurRadius = 24

// Compositor holds the background used for every frame.
type Compositor struct {
	// Background replaces the masked area. It is scaled to cover the frame.
	Background image.Image
	// Color fills the masked area when Background is nil and Blur is 0.
	Color color.RGBA
	// Blur in [0,1] blurs the frame itself instead of replacing it.
	Blur float64
	// Soften is the box radius applied to the upscaled mask, in frame pixels.
	Soften int

	pool   kernels.Pool
	fitted *image.NRGBA
}

// LoadBackground opens a background image in any format imaging can decode.
func LoadBackground(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errs.Configuration("composite.background", err)
	}
	return img, nil
}

// Blend composites one frame with a background image.
//
// Arguments:
//   - frame: The BGR camera frame.
//   - mask: The stabilized mask at network resolution.
//   - background: The replacement image. A nil background leaves the frame black.
//
// Returns:
//   - *image.RGBA: The composited frame at the frame's size.
//   - error: A data error for empty inputs.
func Blend(frame, mask gocv.Mat, background image.Image) (*image.RGBA, error) {
	c := &Compositor{Background: background}
	return c.Blend(frame, mask)
}

// Blend composites one frame using the compositor's background.
func (c *Compositor) Blend(frame, mask gocv.Mat) (*image.RGBA, error) {
	if frame.Empty() || frame.Channels() != 3 {
		return nil, errs.Dataf("composite.blend", "want a non-empty BGR frame")
	}
	w, h := frame.Cols(), frame.Rows()

	alpha, err := c.backgroundAlpha(mask, w, h)
	if err != nil {
		return nil, err
	}

	fg := rgbaFromBGR(frame)
	bg := c.background(fg, w, h)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, a := range alpha {
		p := i * 4
		for k := 0; k < 3; k++ {
			out.Pix[p+k] = mix(fg.Pix[p+k], bg(p+k), a)
		}
		out.Pix[p+3] = 255
	}
	return out, nil
}

// backgroundAlpha returns per-pixel background weights in 0..255 at frame size, top row
// first.
func (c *Compositor) backgroundAlpha(mask gocv.Mat, w, h int) ([]uint8, error) {
	gray, err := images.GrayImage(mask)
	if err != nil {
		return nil, err
	}
	if mask.Type() == gocv.MatTypeCV32F {
		for i, v := range gray.Pix {
			gray.Pix[i] = 255 - v
		}
	}
	flipRows(gray)

	if gray.Rect.Dx() != w || gray.Rect.Dy() != h {
		gray = scaleGray(gray, w, h)
	}
	if c.Soften > 0 {
		gray = kernels.BoxBlurGray(gray, kernels.Options{Radius: c.Soften, Parallel: true, Pool: &c.pool})
	}
	return gray.Pix, nil
}

// flipRows mirrors g vertically in place.
func flipRows(g *image.Gray) {
	row := make([]uint8, g.Rect.Dx())
	for top, bottom := 0, g.Rect.Dy()-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := g.Pix[top*g.Stride : top*g.Stride+len(row)]
		b := g.Pix[bottom*g.Stride : bottom*g.Stride+len(row)]
		copy(row, a)
		copy(a, b)
		copy(b, row)
	}
}

func scaleGray(g *image.Gray, w, h int) *image.Gray {
	scaled := resize.Resize(uint(w), uint(h), g, resize.Bilinear)
	if out, ok := scaled.(*image.Gray); ok && out.Stride == w && out.Rect.Min == (image.Point{}) {
		return out
	}
	out := image.NewGray(image.Rect(0, 0, w, h))
	b := scaled.Bounds()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetGray(x, y, color.GrayModel.Convert(scaled.At(b.Min.X+x, b.Min.Y+y)).(color.Gray))
		}
	}
	return out
}

// background returns a sampler over RGBA byte offsets.
func (c *Compositor) background(fg *image.RGBA, w, h int) func(int) uint8 {
	switch {
	case c.Blur > 0:
		radius := int(math.Round(c.Blur * MaxBlurRadius))
		blurred := kernels.BoxBlur(fg, kernels.Options{Radius: radius, Parallel: true, Pool: &c.pool})
		return func(i int) uint8 { return blurred.Pix[i] }
	case c.Background != nil:
		if c.fitted == nil || c.fitted.Rect.Dx() != w || c.fitted.Rect.Dy() != h {
			c.fitted = imaging.Fill(c.Background, w, h, imaging.Center, imaging.Linear)
		}
		pix := c.fitted.Pix
		return func(i int) uint8 { return pix[i] }
	default:
		fill := [4]uint8{c.Color.R, c.Color.G, c.Color.B, 255}
		return func(i int) uint8 { return fill[i%4] }
	}
}

func mix(fg, bg, a uint8) uint8 {
	return uint8((uint32(fg)*(255-uint32(a)) + uint32(bg)*uint32(a) + 127) / 255)
}

func rgbaFromBGR(frame gocv.Mat) *image.RGBA {
	w, h := frame.Cols(), frame.Rows()
	src := frame.ToBytes()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i+2 < len(src) && j+3 < len(out.Pix); i, j = i+3, j+4 {
		out.Pix[j] = src[i+2]
		out.Pix[j+1] = src[i+1]
		out.Pix[j+2] = src[i]
		out.Pix[j+3] = 255
	}
	return out
}
