package model

import (
	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-bgseg/errs"
)

// Activation converts raw network logits into a probability-like mask value.
type Activation int

const (
	// ActivationNone passes the raw output through.
	ActivationNone Activation = iota
	// ActivationSigmoid applies 1/(1+e^-x) to channel 0.
	ActivationSigmoid
	// ActivationSoftmax applies a two-class softmax over channels 0 and 1.
	ActivationSoftmax
)

// String returns the activation name.
func (a Activation) String() string {
	switch a {
	case ActivationSigmoid:
		return "sigmoid"
	case ActivationSoftmax:
		return "softmax"
	default:
		return "none"
	}
}

// Activate applies act to m.
//
// ActivationNone returns m unchanged so the adapter can pick the channel it needs.
// Sigmoid and softmax produce a single-channel map.
//
// Arguments:
//   - m: The HWC map holding raw logits.
//   - act: The activation to apply.
//
// Returns:
//   - Map: The activated map.
//   - error: An invariant error if softmax is requested on fewer than two channels.
func Activate(m Map, act Activation) (Map, error) {
	switch act {
	case ActivationSigmoid:
		out := NewMap(m.Width, m.Height, 1)
		for i := range out.Data {
			out.Data[i] = Sigmoid(m.Data[i*m.Channels])
		}
		return out, nil
	case ActivationSoftmax:
		if m.Channels < 2 {
			return Map{}, errs.Invariantf("model.activate", "softmax needs 2 channels, got %d", m.Channels)
		}
		out := NewMap(m.Width, m.Height, 1)
		for i := range out.Data {
			p := i * m.Channels
			out.Data[i] = Softmax2(m.Data[p], m.Data[p+1])
		}
		return out, nil
	default:
		return m, nil
	}
}

// Sigmoid returns 1/(1+e^-x).
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// Softmax2 returns the softmax probability of x0 against x1.
//
// Both exponents are shifted by max(x0, x1) so large logits do not overflow.
func Softmax2(x0, x1 float32) float32 {
	hi, lo := math32.Max(x0, x1), math32.Min(x0, x1)
	return math32.Exp(x0-hi) / (1 + math32.Exp(lo-hi))
}
