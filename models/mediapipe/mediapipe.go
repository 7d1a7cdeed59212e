// Package mediapipe - Adapter for the Mediapipe selfie segmenter.
//
// The network emits two logits per pixel in NHWC order. Channel 1 is the person class.
package mediapipe

import (
	"github.com/nvr-ai/go-bgseg/models/layout"
	"github.com/nvr-ai/go-bgseg/models/model"
)

// Adapter is the Mediapipe adapter.
type Adapter struct {
	layout.BHWC
}

// New creates a Mediapipe adapter.
func New() *Adapter {
	a := &Adapter{BHWC: *layout.NewBHWC()}
	a.ID = model.NameMediapipe
	return a
}

// MapOutput reads the first output as a two-channel NHWC map.
func (a *Adapter) MapOutput(act model.Activation, outputs []model.Buffer) (model.Map, error) {
	if len(outputs) == 0 {
		return a.BHWC.MapOutput(act, outputs)
	}
	out := outputs[0]
	if len(out.Shape) < 3 {
		return a.BHWC.MapOutput(act, outputs)
	}
	m, err := model.Wrap(int(out.Shape[2]), int(out.Shape[1]), 2, out.Data)
	if err != nil {
		return model.Map{}, err
	}
	return model.Activate(m, act)
}

// PostProcess keeps the second channel of a two-channel map.
func (a *Adapter) PostProcess(m model.Map) (model.Map, error) {
	if m.Channels == 2 {
		return m.Channel(1)
	}
	return m.Channel(0)
}

// FloatActivation returns model.ActivationSoftmax.
func (a *Adapter) FloatActivation() model.Activation {
	return model.ActivationSoftmax
}

var _ model.Adapter = (*Adapter)(nil)
