// Package pphumanseg - Adapter for the PaddlePaddle PP-HumanSeg network.
//
// Input is NCHW scaled to [-1,1]. The output is read as a two-channel HWC image with
// H=dims[1] and W=dims[2].
package pphumanseg

import (
	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/models/layout"
	"github.com/nvr-ai/go-bgseg/models/model"
	"github.com/nvr-ai/go-bgseg/models/model/preprocess"
)

// Adapter is the PP-HumanSeg adapter.
type Adapter struct {
	layout.BCHW
}

// New creates a PP-HumanSeg adapter.
func New() *Adapter {
	a := &Adapter{BCHW: *layout.NewBCHW()}
	a.ID = model.NamePPHumanSeg
	a.Preprocess = preprocess.Config{
		NormalizationType: preprocess.NormalizeMinusOneToOne,
		ChannelOrder:      preprocess.ChannelOrderCHW,
	}
	return a
}

// MapOutput wraps the first output as a two-channel HWC map.
func (a *Adapter) MapOutput(act model.Activation, outputs []model.Buffer) (model.Map, error) {
	if len(outputs) == 0 || len(outputs[0].Shape) < 3 {
		return model.Map{}, errs.Invariantf("pphumanseg.map_output", "missing or low-rank output")
	}
	out := outputs[0]
	m, err := model.Wrap(int(out.Shape[2]), int(out.Shape[1]), 2, out.Data)
	if err != nil {
		return model.Map{}, err
	}
	return model.Activate(m, act)
}

// PostProcess keeps channel 1 and rescales it to [0,1].
func (a *Adapter) PostProcess(m model.Map) (model.Map, error) {
	c := 0
	if m.Channels == 2 {
		c = 1
	}
	ch, err := m.Channel(c)
	if err != nil {
		return model.Map{}, err
	}
	return ch.Clone().MinMaxNormalize(), nil
}

var _ model.Adapter = (*Adapter)(nil)
