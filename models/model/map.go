package model

import (
	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-bgseg/errs"
)

// Map is an HWC float image produced from a network output.
type Map struct {
	Width    int
	Height   int
	Channels int
	Data     []float32
}

// NewMap allocates a zeroed map.
func NewMap(width, height, channels int) Map {
	return Map{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]float32, width*height*channels),
	}
}

// Wrap builds a map over data without copying.
//
// Arguments:
//   - width, height, channels: The HWC dimensions.
//   - data: The backing slice. It must hold exactly width*height*channels values.
//
// Returns:
//   - Map: The map.
//   - error: A data error if the length does not match.
func Wrap(width, height, channels int, data []float32) (Map, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return Map{}, errs.Invariantf("model.wrap", "invalid map size %dx%dx%d", width, height, channels)
	}
	if len(data) != width*height*channels {
		return Map{}, errs.Dataf("model.wrap", "map %dx%dx%d needs %d values, got %d",
			width, height, channels, width*height*channels, len(data))
	}
	return Map{Width: width, Height: height, Channels: channels, Data: data}, nil
}

// Pixels returns the number of pixels in the map.
func (m Map) Pixels() int {
	return m.Width * m.Height
}

// Channel extracts channel c as a single-channel map.
func (m Map) Channel(c int) (Map, error) {
	if c < 0 || c >= m.Channels {
		return Map{}, errs.Invariantf("model.channel", "channel %d out of range [0,%d)", c, m.Channels)
	}
	if m.Channels == 1 {
		return m, nil
	}
	out := NewMap(m.Width, m.Height, 1)
	for i := range out.Data {
		out.Data[i] = m.Data[i*m.Channels+c]
	}
	return out, nil
}

// MinMaxNormalize rescales m in place to [0,1]. A constant map becomes all zeros.
func (m Map) MinMaxNormalize() Map {
	if len(m.Data) == 0 {
		return m
	}
	lo, hi := m.Data[0], m.Data[0]
	for _, v := range m.Data[1:] {
		lo = math32.Min(lo, v)
		hi = math32.Max(hi, v)
	}
	span := hi - lo
	for i, v := range m.Data {
		if span == 0 {
			m.Data[i] = 0
			continue
		}
		m.Data[i] = (v - lo) / span
	}
	return m
}

// Clone returns a deep copy of m.
func (m Map) Clone() Map {
	out := m
	out.Data = append([]float32(nil), m.Data...)
	return out
}
