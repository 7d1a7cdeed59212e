// Package models - registry for segmentation model adapters.
package models

import (
	"sort"

	"github.com/samber/lo"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/models/layout"
	"github.com/nvr-ai/go-bgseg/models/mediapipe"
	"github.com/nvr-ai/go-bgseg/models/model"
	"github.com/nvr-ai/go-bgseg/models/pphumanseg"
	"github.com/nvr-ai/go-bgseg/models/rvm"
	"github.com/nvr-ai/go-bgseg/models/selfie"
	"github.com/nvr-ai/go-bgseg/models/sinet"
)

var constructors = map[model.Name]func() model.Adapter{
	model.NameDefault:    func() model.Adapter { return layout.NewBHWC() },
	model.NameBCHW:       func() model.Adapter { return layout.NewBCHW() },
	model.NameMediapipe:  func() model.Adapter { return mediapipe.New() },
	model.NameSelfie:     func() model.Adapter { return selfie.New() },
	model.NameSINet:      func() model.Adapter { return sinet.New() },
	model.NameRVM:        func() model.Adapter { return rvm.New() },
	model.NamePPHumanSeg: func() model.Adapter { return pphumanseg.New() },
}

// aliases maps short model names to their identifiers.
var aliases = map[string]model.Name{
	"selfie":     model.NameSelfie,
	"sinet":      model.NameSINet,
	"rvm":        model.NameRVM,
	"pphumanseg": model.NamePPHumanSeg,
}

// Resolve maps a model identifier or alias to its canonical name.
//
// Arguments:
//   - name: A model identifier such as "mediapipe" or an alias such as "rvm".
//
// Returns:
//   - model.Name: The canonical identifier.
//   - error: A configuration error if the name is unknown.
func Resolve(name string) (model.Name, error) {
	if alias, ok := aliases[name]; ok {
		return alias, nil
	}
	if _, ok := constructors[model.Name(name)]; ok {
		return model.Name(name), nil
	}
	return "", errs.Configurationf("models.resolve", "unsupported model name: %q", name)
}

// NewAdapter creates a fresh adapter for the named model.
//
// This is the factory the mask filter uses whenever the model setting changes. Every call
// returns a new adapter, so recurrent adapters never share state.
//
// Arguments:
//   - name: A model identifier or alias.
//
// Returns:
//   - model.Adapter: The adapter.
//   - error: A configuration error if the name is unknown.
//
// @example
// adapter, err := models.NewAdapter("mediapipe")
func NewAdapter(name string) (model.Adapter, error) {
	id, err := Resolve(name)
	if err != nil {
		return nil, err
	}
	return constructors[id](), nil
}

// Names returns the canonical identifiers, sorted.
func Names() []string {
	names := lo.Map(lo.Keys(constructors), func(n model.Name, _ int) string { return string(n) })
	sort.Strings(names)
	return names
}

// Known reports whether name is an identifier or alias.
func Known(name string) bool {
	_, err := Resolve(name)
	return err == nil
}
