package filter

import (
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/errs"
)

// Polynomial approximation of the squared binary-entropy uncertainty around p=0.5.
const (
	blendC1 = 5.68842
	blendC2 = -0.748699
	blendC3 = -57.8051
	blendC4 = 291.309
	blendC5 = -624.717
)

// BlendValue mixes a new mask value with the previous one, weighted by how uncertain
// the new value is. Confident values (near 0 or 1) pass through almost unchanged.
//
// Arguments:
//   - prev: The previous mask value.
//   - cur: The new mask value in [0,1].
//   - ratio: How much of the previous value to keep at maximum uncertainty.
//
// Returns:
//   - float32: The blended value.
func BlendValue(prev, cur, ratio float32) float32 {
	t := cur - 0.5
	x := t * t
	u := x * (blendC1 + x*(blendC2+x*(blendC3+x*(blendC4+x*blendC5))))
	if u > 1 {
		u = 1
	}
	uncertainty := 1 - u
	return cur + (prev-cur)*uncertainty*ratio
}

// BlendSegmentationSmoothing applies BlendValue per pixel to a CV_32F mask in place.
//
// Arguments:
//   - cur: The new float mask, overwritten with the blend.
//   - prev: The previous float mask.
//   - ratio: Blend ratio in [0,1].
//
// Returns:
//   - bool: true if the blend ran. Empty or differently sized masks are skipped.
//   - error: An invariant error if the types differ or are not CV_32F.
func BlendSegmentationSmoothing(cur *gocv.Mat, prev gocv.Mat, ratio float64) (bool, error) {
	if prev.Empty() || cur.Empty() || prev.Rows() != cur.Rows() || prev.Cols() != cur.Cols() {
		return false, nil
	}
	if prev.Type() != cur.Type() || cur.Type() != gocv.MatTypeCV32F {
		return false, errs.Invariantf("filter.blend", "mixed mask types %v and %v", prev.Type(), cur.Type())
	}

	dst, err := cur.DataPtrFloat32()
	if err != nil {
		return false, errs.Invariant("filter.blend", err)
	}
	src, err := prev.DataPtrFloat32()
	if err != nil {
		return false, errs.Invariant("filter.blend", err)
	}
	r := float32(ratio)
	for i := range dst {
		dst[i] = BlendValue(src[i], dst[i], r)
	}
	return true, nil
}
