package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/models/model"
	"github.com/nvr-ai/go-bgseg/models/rvm"
)

func TestNewAdapter(t *testing.T) {
	for _, name := range Names() {
		a, err := NewAdapter(name)
		require.NoError(t, err, name)
		assert.Equal(t, model.Name(name), a.Name())
	}
}

func TestNewAdapterAliases(t *testing.T) {
	cases := map[string]model.Name{
		"selfie":     model.NameSelfie,
		"sinet":      model.NameSINet,
		"rvm":        model.NameRVM,
		"pphumanseg": model.NamePPHumanSeg,
	}
	for alias, want := range cases {
		a, err := NewAdapter(alias)
		require.NoError(t, err)
		assert.Equal(t, want, a.Name())
	}
	assert.True(t, Known("rvm"))
}

func TestNewAdapterUnknown(t *testing.T) {
	_, err := NewAdapter("u2net")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConfiguration))
	assert.False(t, Known("u2net"))
}

func TestNewAdapterFreshInstances(t *testing.T) {
	a, err := NewAdapter("rvm")
	require.NoError(t, err)
	b, err := NewAdapter("rvm")
	require.NoError(t, err)
	assert.NotSame(t, a.(*rvm.Adapter), b.(*rvm.Adapter))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		"SINet_Softmax_simple",
		"bchw",
		"default",
		"mediapipe",
		"pphumanseg_fp32",
		"rvm_mobilenetv3_fp32",
		"selfie_segmentation",
	}, Names())
}
