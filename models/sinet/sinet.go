// Package sinet - Adapter for SINet_Softmax_simple.
package sinet

import (
	"github.com/nvr-ai/go-bgseg/models/layout"
	"github.com/nvr-ai/go-bgseg/models/model"
	"github.com/nvr-ai/go-bgseg/models/model/preprocess"
)

var (
	// Mean is the per-channel RGB mean subtracted from the input.
	Mean = []float32{102.890434, 111.25247, 126.91212}
	// Std is the per-channel RGB standard deviation, in 0..255 units.
	Std = []float32{62.93292, 62.82138, 66.355705}
)

// Adapter is a BCHW adapter with per-channel standardization.
type Adapter struct {
	layout.BCHW
}

// New creates a SINet adapter.
func New() *Adapter {
	a := &Adapter{BCHW: *layout.NewBCHW()}
	a.ID = model.NameSINet
	std := make([]float32, len(Std))
	for i, s := range Std {
		std[i] = s * 255
	}
	a.Preprocess = preprocess.Config{
		NormalizationType: preprocess.NormalizeStandardize,
		MeanValues:        Mean,
		StdValues:         std,
		ChannelOrder:      preprocess.ChannelOrderCHW,
	}
	return a
}

// PostProcess keeps the foreground channel of the two-class softmax output.
func (a *Adapter) PostProcess(m model.Map) (model.Map, error) {
	if m.Channels == 2 {
		return m.Channel(1)
	}
	return m.Channel(0)
}

var _ model.Adapter = (*Adapter)(nil)
