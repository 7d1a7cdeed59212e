package layout

import (
	"image"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/models/model"
	"github.com/nvr-ai/go-bgseg/models/model/preprocess"
)

// BCHW is the planar adapter: NCHW input scaled to [0,1], NCHW output.
type BCHW struct {
	Base
	Preprocess preprocess.Config
}

// NewBCHW creates the planar adapter.
func NewBCHW() *BCHW {
	return &BCHW{
		Base: Base{ID: model.NameBCHW},
		Preprocess: preprocess.Config{
			NormalizationType: preprocess.NormalizeZeroToOne,
			ChannelOrder:      preprocess.ChannelOrderCHW,
		},
	}
}

// NetworkInputSize reads W=dims[3] and H=dims[2] of the first input.
func (a *BCHW) NetworkInputSize(b model.Binding) image.Point {
	if len(b.Inputs) == 0 || len(b.Inputs[0].Shape) < 4 {
		return image.Pt(1, 1)
	}
	dims := b.Inputs[0].Shape
	return image.Pt(atLeastOne(dims[3]), atLeastOne(dims[2]))
}

// PrepareInput normalizes rgb and converts it to CHW.
func (a *BCHW) PrepareInput(rgb []float32, size image.Point) ([]float32, error) {
	return preprocess.Apply(rgb, size, a.Preprocess)
}

// MapOutput reads the first output as C=dims[1], H=dims[2], W=dims[3] and converts it to HWC
// before applying the activation.
func (a *BCHW) MapOutput(act model.Activation, outputs []model.Buffer) (model.Map, error) {
	out, err := output(outputs)
	if err != nil {
		return model.Map{}, err
	}
	m, err := WrapBCHW(out)
	if err != nil {
		return model.Map{}, err
	}
	return model.Activate(m, act)
}

// PostProcess keeps channel 0.
func (a *BCHW) PostProcess(m model.Map) (model.Map, error) {
	return m.Channel(0)
}

// WrapBCHW copies an NCHW buffer into an HWC map.
func WrapBCHW(out model.Buffer) (model.Map, error) {
	if len(out.Shape) < 4 {
		return model.Map{}, errs.Invariantf("layout.bchw", "output %q has rank %d, want 4", out.Name, len(out.Shape))
	}
	c, h, w := int(out.Shape[1]), int(out.Shape[2]), int(out.Shape[3])
	hwc, err := preprocess.CHWToHWC(out.Data, c, h, w)
	if err != nil {
		return model.Map{}, err
	}
	return model.Wrap(w, h, c, hwc)
}
