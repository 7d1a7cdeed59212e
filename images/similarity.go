// Package images - OpenCV helpers shared by the mask pipeline: frame similarity,
// float/byte conversion, morphology and contour cleanup.
package images

import (
	"math"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/errs"
)

// PSNR returns the peak signal-to-noise ratio between two 8-bit images in decibels.
//
// Identical images return +Inf. Higher values mean more similar frames.
//
// Arguments:
//   - a, b: Images of the same size, type and 8-bit depth.
//
// Returns:
//   - float64: The PSNR in dB.
//   - error: A data error if the images are empty or differ in size or type.
func PSNR(a, b gocv.Mat) (float64, error) {
	if a.Empty() || b.Empty() {
		return 0, errs.Dataf("images.psnr", "empty image")
	}
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() || a.Type() != b.Type() {
		return 0, errs.Dataf("images.psnr", "images differ: %dx%d/%v vs %dx%d/%v",
			a.Cols(), a.Rows(), a.Type(), b.Cols(), b.Rows(), b.Type())
	}

	pa, pb := a.ToBytes(), b.ToBytes()
	if len(pa) != len(pb) || len(pa) == 0 {
		return 0, errs.Dataf("images.psnr", "byte length mismatch %d vs %d", len(pa), len(pb))
	}

	var sse float64
	for i := range pa {
		d := float64(pa[i]) - float64(pb[i])
		sse += d * d
	}
	if sse == 0 {
		return math.Inf(1), nil
	}
	mse := sse / float64(len(pa))
	return 10 * math.Log10(255*255/mse), nil
}
