// Package preprocess - Normalization and layout conversion for network inputs.
//
// Inputs arrive as HWC RGB float32 images in the 0..255 range. Each model declares a Config
// describing how to normalize them and whether the network wants HWC or CHW.
package preprocess

import (
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-bgseg/errs"
)

// NormalizationType represents different normalization strategies.
type NormalizationType int

const (
	// NormalizeNone leaves pixel values in 0..255.
	NormalizeNone NormalizationType = iota
	// NormalizeZeroToOne divides by 255.
	NormalizeZeroToOne
	// NormalizeMinusOneToOne maps to roughly [-1,1] with (x/256 - 0.5) / 0.5.
	NormalizeMinusOneToOne
	// NormalizeStandardize applies (x - mean) / std per channel.
	NormalizeStandardize
)

// String returns the normalization name.
func (n NormalizationType) String() string {
	switch n {
	case NormalizeZeroToOne:
		return "zero_to_one"
	case NormalizeMinusOneToOne:
		return "minus_one_to_one"
	case NormalizeStandardize:
		return "standardize"
	default:
		return "none"
	}
}

// ChannelOrder represents the channel ordering for tensor data.
type ChannelOrder int

const (
	// ChannelOrderHWC is Height-Width-Channel (interleaved).
	ChannelOrderHWC ChannelOrder = iota
	// ChannelOrderCHW is Channel-Height-Width (planar).
	ChannelOrderCHW
)

// Config describes how a network wants its input prepared.
type Config struct {
	NormalizationType NormalizationType
	// MeanValues and StdValues are per-channel and only used by NormalizeStandardize.
	MeanValues   []float32
	StdValues    []float32
	ChannelOrder ChannelOrder
}

// Apply normalizes an HWC RGB image and converts it to the configured layout.
//
// Arguments:
//   - rgb: HWC float32 pixels in 0..255. It is not modified.
//   - size: The image size (X=width, Y=height).
//   - cfg: The preprocessing configuration.
//
// Returns:
//   - []float32: A new slice holding the prepared tensor data.
//   - error: A data error if rgb does not match size, or a configuration error for bad
//     mean/std values.
//
// @example
// prepared, err := preprocess.Apply(rgb, image.Pt(256, 144), cfg)
func Apply(rgb []float32, size image.Point, cfg Config) ([]float32, error) {
	pixels := size.X * size.Y
	if pixels <= 0 || len(rgb) == 0 || len(rgb)%pixels != 0 {
		return nil, errs.Dataf("preprocess.apply", "%d values do not fit a %dx%d image", len(rgb), size.X, size.Y)
	}
	channels := len(rgb) / pixels

	out := make([]float32, len(rgb))
	copy(out, rgb)
	if err := normalize(out, channels, cfg); err != nil {
		return nil, err
	}

	if cfg.ChannelOrder == ChannelOrderCHW {
		return HWCToCHW(out, size.Y, size.X, channels)
	}
	return out, nil
}

// normalize applies the configured normalization to HWC data in place.
func normalize(data []float32, channels int, cfg Config) error {
	switch cfg.NormalizationType {
	case NormalizeZeroToOne:
		for i := range data {
			data[i] /= 255.0
		}
	case NormalizeMinusOneToOne:
		for i := range data {
			data[i] = (data[i]/256.0 - 0.5) / 0.5
		}
	case NormalizeStandardize:
		if len(cfg.MeanValues) != channels || len(cfg.StdValues) != channels {
			return errs.Configurationf("preprocess.normalize", "mean/std need %d values, got %d/%d",
				channels, len(cfg.MeanValues), len(cfg.StdValues))
		}
		for c := 0; c < channels; c++ {
			if cfg.StdValues[c] == 0 {
				return errs.Configurationf("preprocess.normalize", "std of channel %d is zero", c)
			}
		}
		for i := range data {
			c := i % channels
			data[i] = (data[i] - cfg.MeanValues[c]) / cfg.StdValues[c]
		}
	}
	return nil
}

// HWCToCHW converts interleaved data to planar layout.
//
// Arguments:
//   - data: HWC values. It is not modified.
//   - h, w, c: The dimensions.
//
// Returns:
//   - []float32: The CHW values.
//   - error: An error if the dimensions do not match data.
func HWCToCHW(data []float32, h, w, c int) ([]float32, error) {
	return permute(data, []int{h, w, c}, c == 1, 2, 0, 1)
}

// CHWToHWC converts planar data to interleaved layout.
func CHWToHWC(data []float32, c, h, w int) ([]float32, error) {
	return permute(data, []int{c, h, w}, c == 1, 1, 2, 0)
}

func permute(data []float32, shape []int, single bool, axes ...int) ([]float32, error) {
	if shape[0]*shape[1]*shape[2] != len(data) {
		return nil, errs.Dataf("preprocess.permute", "shape %v does not match %d values", shape, len(data))
	}
	backing := make([]float32, len(data))
	copy(backing, data)

	// A single plane has the same memory layout either way.
	if single {
		return backing, nil
	}

	t := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
	if err := t.T(axes...); err != nil {
		return nil, errors.Wrap(err, "failed to set transpose axes")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "failed to transpose tensor")
	}
	out, ok := t.Data().([]float32)
	if !ok {
		return nil, errs.Invariantf("preprocess.permute", "unexpected tensor backing %T", t.Data())
	}
	return out, nil
}
