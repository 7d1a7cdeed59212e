// Package selfie - Adapter for the selfie_segmentation network.
package selfie

import (
	"github.com/nvr-ai/go-bgseg/models/layout"
	"github.com/nvr-ai/go-bgseg/models/model"
)

// Adapter is a BHWC adapter whose output is min-max normalized.
type Adapter struct {
	layout.BHWC
}

// New creates a selfie_segmentation adapter.
func New() *Adapter {
	a := &Adapter{BHWC: *layout.NewBHWC()}
	a.ID = model.NameSelfie
	return a
}

// PostProcess rescales channel 0 to [0,1]. The engine's output buffer is left untouched.
func (a *Adapter) PostProcess(m model.Map) (model.Map, error) {
	c, err := m.Channel(0)
	if err != nil {
		return model.Map{}, err
	}
	return c.Clone().MinMaxNormalize(), nil
}

var _ model.Adapter = (*Adapter)(nil)
