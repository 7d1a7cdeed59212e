package filter

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/config"
	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/images"
)

// ThresholdValue converts a [0,1] threshold to the 8-bit cutoff, round(thr*255).
func ThresholdValue(thr float64) int {
	return int(math.Round(thr * 255))
}

// EffectiveSmoothFactor returns the weight of the new mask during temporal smoothing.
// With thresholding on the factor never drops below the threshold.
func EffectiveSmoothFactor(tsf, thr float64, enableThreshold bool) float64 {
	if enableThreshold {
		return math.Max(tsf, thr)
	}
	return tsf
}

// ContourFilterEnabled reports whether the contour stage runs for fraction f. Only the
// open interval (0,1) enables it.
func ContourFilterEnabled(f float64) bool {
	return f > 0 && f < 1
}

// CleanupEnabled reports whether the contour, blur and feather stages may run.
func CleanupEnabled(s config.Settings) bool {
	return s.EnableThreshold && !s.UseFloatMask
}

// SmoothKernelSize returns the blur kernel for SmoothContour s: int(3 + 11*s), made odd.
func SmoothKernelSize(s float64) int {
	return odd(int(3 + 11*s))
}

// FeatherKernelSize returns the feather kernel for Feather f: int(40*f), made odd and
// at least 3.
func FeatherKernelSize(f float64) int {
	k := odd(int(40 * f))
	if k < 3 {
		k = 3
	}
	return k
}

func odd(k int) int {
	if k%2 == 0 {
		return k + 1
	}
	return k
}

// Binarize turns a [0,1] CV_32F mask into the 8-bit stage 2 output.
//
// With thresholding on, pixels below ThresholdValue become 255 and the rest 0. With
// thresholding off the byte mask is inverted.
//
// Arguments:
//   - mask: Single-channel CV_32F mask.
//   - enableThreshold: Whether to binarize or invert.
//   - thr: The [0,1] threshold.
//
// Returns:
//   - gocv.Mat: A new CV_8U mask. The caller closes it.
func Binarize(mask gocv.Mat, enableThreshold bool, thr float64) gocv.Mat {
	bytes := gocv.NewMat()
	defer bytes.Close()
	images.ToByteMask(mask, &bytes)

	out := gocv.NewMat()
	if enableThreshold {
		images.BinarizeBelow(bytes, &out, ThresholdValue(thr))
	} else {
		gocv.BitwiseNot(bytes, &out)
	}
	return out
}

// TemporalSmooth blends mask with prev in place: eff*mask + (1-eff)*prev.
//
// Arguments:
//   - mask: The new mask, overwritten with the blend.
//   - prev: The previous mask. Empty or differently sized masks skip the stage.
//   - eff: The effective factor from EffectiveSmoothFactor.
//
// Returns:
//   - bool: true if the blend was applied.
//   - error: An invariant error if prev and mask differ in type.
func TemporalSmooth(mask *gocv.Mat, prev gocv.Mat, eff float64) (bool, error) {
	if prev.Empty() || prev.Rows() != mask.Rows() || prev.Cols() != mask.Cols() {
		return false, nil
	}
	if prev.Type() != mask.Type() {
		return false, errs.Invariantf("filter.temporal", "previous mask type %v differs from %v", prev.Type(), mask.Type())
	}
	gocv.AddWeighted(*mask, eff, prev, 1-eff, 0, mask)
	return true, nil
}

// SmoothContour blurs a binary mask with an odd Gaussian kernel and re-binarizes it
// at 128. A non-positive s is a no-op.
func SmoothContour(mask *gocv.Mat, s float64) {
	if s <= 0 {
		return
	}
	k := SmoothKernelSize(s)
	gocv.GaussianBlur(*mask, mask, image.Pt(k, k), 0, 0, gocv.BorderDefault)
	images.Binarize(mask, 128)
}

// Feather dilates the mask k/3 times and box-blurs it with a k x k kernel. A
// non-positive f is a no-op.
func Feather(mask *gocv.Mat, refiner *images.Refiner, f float64) error {
	if f <= 0 {
		return nil
	}
	k := FeatherKernelSize(f)
	if err := refiner.Dilate(mask, k/3); err != nil {
		return errs.Invariant("filter.feather", err)
	}
	gocv.BoxFilter(*mask, mask, -1, image.Pt(k, k))
	return nil
}

// FilterContours drops blobs whose area is not above fraction of the mask. Fractions
// outside (0,1) leave the mask untouched. The comparison is strict: a blob exactly at the
// cutoff is dropped.
func FilterContours(mask *gocv.Mat, refiner *images.Refiner, fraction float64) error {
	if !ContourFilterEnabled(fraction) {
		return nil
	}
	total := float64(mask.Rows() * mask.Cols())
	_, err := refiner.KeepContours(mask, fraction*total)
	return err
}

// Flip mirrors the mask vertically in place.
func Flip(mask *gocv.Mat) {
	gocv.Flip(*mask, mask, 0)
}
