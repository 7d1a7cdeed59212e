package layout

import (
	"image"

	"github.com/nvr-ai/go-bgseg/models/model"
	"github.com/nvr-ai/go-bgseg/models/model/preprocess"
)

// BHWC is the default adapter: NHWC input scaled to [0,1], NHWC output.
type BHWC struct {
	Base
	Preprocess preprocess.Config
}

// NewBHWC creates the default adapter.
func NewBHWC() *BHWC {
	return &BHWC{
		Base:       Base{ID: model.NameDefault},
		Preprocess: preprocess.Config{NormalizationType: preprocess.NormalizeZeroToOne},
	}
}

// NetworkInputSize reads W=dims[2] and H=dims[1] of the first input.
func (a *BHWC) NetworkInputSize(b model.Binding) image.Point {
	if len(b.Inputs) == 0 || len(b.Inputs[0].Shape) < 3 {
		return image.Pt(1, 1)
	}
	dims := b.Inputs[0].Shape
	return image.Pt(atLeastOne(dims[2]), atLeastOne(dims[1]))
}

// PrepareInput normalizes rgb and keeps the HWC layout.
func (a *BHWC) PrepareInput(rgb []float32, size image.Point) ([]float32, error) {
	return preprocess.Apply(rgb, size, a.Preprocess)
}

// MapOutput wraps the first output as H=dims[1], W=dims[2], C=dims[3].
func (a *BHWC) MapOutput(act model.Activation, outputs []model.Buffer) (model.Map, error) {
	out, err := output(outputs)
	if err != nil {
		return model.Map{}, err
	}
	m, err := WrapBHWC(out)
	if err != nil {
		return model.Map{}, err
	}
	return model.Activate(m, act)
}

// PostProcess keeps channel 0.
func (a *BHWC) PostProcess(m model.Map) (model.Map, error) {
	return m.Channel(0)
}

// WrapBHWC builds a map over an NHWC buffer. A rank-3 buffer is read as a single channel.
func WrapBHWC(out model.Buffer) (model.Map, error) {
	channels := int64(1)
	if len(out.Shape) > 3 {
		channels = out.Shape[3]
	}
	return model.Wrap(int(out.Shape[2]), int(out.Shape[1]), int(channels), out.Data)
}

func atLeastOne(d int64) int {
	if d < 1 {
		return 1
	}
	return int(d)
}
