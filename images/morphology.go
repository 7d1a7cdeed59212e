package images

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/errs"
)

// Refiner holds the structuring element and scratch matrices used to clean up binary
// masks. It is stateful and meant to be reused across frames of a stream.
//
// Always call Close() when done to release native resources.
type Refiner struct {
	Kernel  gocv.Mat // 3x3 rectangular structuring element
	Scratch gocv.Mat // Intermediate buffer for contour redraws
}

// NewRefiner constructs a Refiner with a 3x3 rectangular kernel.
func NewRefiner() *Refiner {
	return &Refiner{
		Kernel:  gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3)),
		Scratch: gocv.NewMat(),
	}
}

// Close releases the native matrices.
func (r *Refiner) Close() error {
	if err := r.Kernel.Close(); err != nil {
		return err
	}
	return r.Scratch.Close()
}

// KeepContours removes every external blob whose area is not strictly greater than
// minArea and redraws the survivors filled with 255.
//
// Arguments:
//   - mask: An 8-bit single-channel binary mask, modified in place.
//   - minArea: The area threshold in pixels.
//
// Returns:
//   - int: The number of contours kept.
//   - error: A data error if the mask is not CV_8UC1.
func (r *Refiner) KeepContours(mask *gocv.Mat, minArea float64) (int, error) {
	if mask.Empty() || mask.Type() != gocv.MatTypeCV8U {
		return 0, errs.Dataf("images.contours", "want a CV_8UC1 mask, got %v", mask.Type())
	}

	contours := gocv.FindContours(*mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	kept := gocv.NewPointsVector()
	defer kept.Close()
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		// strictly above: a contour of exactly minArea is dropped
		if gocv.ContourArea(c) > minArea {
			kept.Append(c)
		}
	}

	r.Scratch.Close()
	r.Scratch = gocv.Zeros(mask.Rows(), mask.Cols(), gocv.MatTypeCV8U)
	if kept.Size() > 0 {
		gocv.DrawContours(&r.Scratch, kept, -1, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	}
	r.Scratch.CopyTo(mask)
	return kept.Size(), nil
}

// Dilate grows foreground regions by running the 3x3 kernel iterations times.
//
// Arguments:
//   - mask: The mask, modified in place.
//   - iterations: Number of passes. Zero or less is a no-op.
//
// Returns:
//   - error: An error if OpenCV rejects the input.
func (r *Refiner) Dilate(mask *gocv.Mat, iterations int) error {
	for i := 0; i < iterations; i++ {
		if err := gocv.Dilate(*mask, mask, r.Kernel); err != nil {
			return errors.Wrapf(err, "error dilating mask, iteration %d", i)
		}
	}
	return nil
}

// Binarize sets pixels strictly above thresh to 255 and the rest to 0.
func Binarize(mask *gocv.Mat, thresh float32) {
	gocv.Threshold(*mask, mask, thresh, 255, gocv.ThresholdBinary)
}

// BinarizeBelow sets pixels strictly below thresh to 255 and the rest to 0.
//
// Arguments:
//   - src: An 8-bit mask.
//   - dst: The destination.
//   - thresh: The integer cutoff in 0..256. Zero yields an all-zero mask.
func BinarizeBelow(src gocv.Mat, dst *gocv.Mat, thresh int) {
	// ThresholdBinaryInv maps v > t to 0, so v < thresh needs t = thresh-1.
	gocv.Threshold(src, dst, float32(thresh-1), 255, gocv.ThresholdBinaryInv)
}
