package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/errs"
)

// BGRToRGBFloats converts an 8-bit BGR image to HWC RGB float32 values in 0..255.
//
// Arguments:
//   - bgr: A CV_8UC3 image.
//
// Returns:
//   - []float32: A new slice of rows*cols*3 values.
//   - error: A data error if bgr is empty or not three-channel.
func BGRToRGBFloats(bgr gocv.Mat) ([]float32, error) {
	if bgr.Empty() || bgr.Channels() != 3 {
		return nil, errs.Dataf("images.rgb", "want a 3-channel image, got %d channels", bgr.Channels())
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(bgr, &rgb, gocv.ColorBGRToRGB)

	f := gocv.NewMat()
	defer f.Close()
	rgb.ConvertTo(&f, gocv.MatTypeCV32FC3)

	data, err := f.DataPtrFloat32()
	if err != nil {
		return nil, errs.Data("images.rgb", errors.Wrap(err, "error reading float pixels"))
	}
	return append([]float32(nil), data...), nil
}

// MatFromFloats copies single-channel float data into a new CV_32F Mat.
//
// Arguments:
//   - width, height: The image size.
//   - data: width*height values.
//
// Returns:
//   - gocv.Mat: The Mat. The caller closes it.
//   - error: A data error if the length does not match.
func MatFromFloats(width, height int, data []float32) (gocv.Mat, error) {
	if width <= 0 || height <= 0 || len(data) != width*height {
		return gocv.NewMat(), errs.Dataf("images.mat", "%d values do not fit %dx%d", len(data), width, height)
	}
	m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV32F)
	dst, err := m.DataPtrFloat32()
	if err != nil {
		m.Close()
		return gocv.NewMat(), errs.Data("images.mat", errors.Wrap(err, "error accessing float pixels"))
	}
	copy(dst, data)
	return m, nil
}

// ToByteMask scales a [0,1] float mask to a CV_8U mask in 0..255.
func ToByteMask(src gocv.Mat, dst *gocv.Mat) {
	src.ConvertToWithParams(dst, gocv.MatTypeCV8U, 255, 0)
}

// GrayImage converts a single-channel mask to an *image.Gray. Float masks are scaled
// from [0,1] to 0..255.
//
// Arguments:
//   - mask: A CV_8UC1 or CV_32FC1 image.
//
// Returns:
//   - *image.Gray: A copy of the mask.
//   - error: A data error for empty or multi-channel masks.
func GrayImage(mask gocv.Mat) (*image.Gray, error) {
	if mask.Empty() || mask.Channels() != 1 {
		return nil, errs.Dataf("images.gray", "want a non-empty single-channel mask")
	}

	src := mask
	if mask.Type() != gocv.MatTypeCV8U {
		bytes := gocv.NewMat()
		defer bytes.Close()
		ToByteMask(mask, &bytes)
		src = bytes
	}

	g := image.NewGray(image.Rect(0, 0, src.Cols(), src.Rows()))
	copy(g.Pix, src.ToBytes())
	return g, nil
}
