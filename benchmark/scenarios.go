package benchmark

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-bgseg/config"
	"github.com/nvr-ai/go-bgseg/images"
)

// Scenario is one benchmark configuration.
type Scenario struct {
	Name       string            `json:"name" yaml:"name"`
	Resolution images.Resolution `json:"resolution" yaml:"resolution"`
	Settings   config.Settings   `json:"settings" yaml:"settings"`
	Iterations int               `json:"iterations" yaml:"iterations"`
	WarmupRuns int               `json:"warmup_runs" yaml:"warmup_runs"`
}

// ScenarioBuilder helps build scenarios with a fluent API.
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a builder for a 720p scenario with default settings.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	res, _ := images.ParseResolution(string(images.ResolutionTypeHD720p))
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Resolution: res,
			Settings:   config.Default(),
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithModel sets the model identifier.
func (sb *ScenarioBuilder) WithModel(name string) *ScenarioBuilder {
	sb.scenario.Settings.Model = name
	return sb
}

// WithResolution sets the frame resolution.
func (sb *ScenarioBuilder) WithResolution(res images.Resolution) *ScenarioBuilder {
	sb.scenario.Resolution = res
	return sb
}

// WithSettings replaces the settings. The model already chosen is kept when next has none.
func (sb *ScenarioBuilder) WithSettings(next config.Settings) *ScenarioBuilder {
	if next.Model == "" {
		next.Model = sb.scenario.Settings.Model
	}
	sb.scenario.Settings = next
	return sb
}

// WithIterations sets the number of measured ticks.
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of unmeasured ticks.
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ScenarioSet is a named group of scenarios.
type ScenarioSet struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Scenarios   []Scenario `json:"scenarios" yaml:"scenarios"`
}

// ResolutionScenarios runs one model over every capture resolution.
func ResolutionScenarios(modelName string, iterations int) *ScenarioSet {
	set := &ScenarioSet{
		Name:        "resolutions",
		Description: fmt.Sprintf("%s across capture resolutions", modelName),
	}
	for _, res := range images.GetAllResolutions() {
		set.Scenarios = append(set.Scenarios, NewScenarioBuilder(fmt.Sprintf("%s_%s", modelName, res.Name)).
			WithModel(modelName).
			WithResolution(res).
			WithIterations(iterations).
			Build())
	}
	return set
}

// ModelScenarios runs every model at one resolution.
func ModelScenarios(modelNames []string, res images.Resolution, iterations int) *ScenarioSet {
	set := &ScenarioSet{
		Name:        "models",
		Description: fmt.Sprintf("models at %s", res),
	}
	for _, name := range modelNames {
		set.Scenarios = append(set.Scenarios, NewScenarioBuilder(fmt.Sprintf("%s_%s", name, res.Name)).
			WithModel(name).
			WithResolution(res).
			WithIterations(iterations).
			Build())
	}
	return set
}

// SettingsScenarios compares the cost of the optional pipeline stages for one model.
func SettingsScenarios(modelName string, res images.Resolution, iterations int) *ScenarioSet {
	variants := []struct {
		name   string
		mutate func(*config.Settings)
	}{
		{"raw", func(*config.Settings) {}},
		{"threshold", func(s *config.Settings) {
			s.EnableThreshold = true
			s.Threshold = 0.5
		}},
		{"cleanup", func(s *config.Settings) {
			s.EnableThreshold = true
			s.Threshold = 0.5
			s.ContourFilter = 0.05
			s.SmoothContour = 0.5
			s.Feather = 0.2
		}},
		{"float_blend", func(s *config.Settings) {
			s.UseFloatMask = true
			s.SegmentationBlend = 0.5
		}},
		{"similarity", func(s *config.Settings) {
			s.EnableImageSimilarity = true
			s.ImageSimilarityThreshold = 35
		}},
		{"every_3", func(s *config.Settings) {
			s.MaskEveryXFrames = 3
		}},
	}

	set := &ScenarioSet{
		Name:        "settings",
		Description: fmt.Sprintf("%s stage costs at %s", modelName, res),
	}
	for _, v := range variants {
		s := config.Default()
		s.Model = modelName
		v.mutate(&s)
		set.Scenarios = append(set.Scenarios, NewScenarioBuilder(v.name).
			WithResolution(res).
			WithSettings(s).
			WithIterations(iterations).
			Build())
	}
	return set
}

// SaveScenarioSet writes a scenario set as YAML.
func SaveScenarioSet(set *ScenarioSet, filename string) error {
	data, err := yaml.Marshal(set)
	if err != nil {
		return errors.Wrap(err, "failed to marshal scenario set")
	}
	return errors.Wrap(os.WriteFile(filename, data, 0o644), "failed to write scenario set")
}

// LoadScenarioSet reads a YAML scenario set. Settings missing from a scenario take their
// default values.
func LoadScenarioSet(filename string) (*ScenarioSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario set")
	}
	var raw struct {
		Name        string      `yaml:"name"`
		Description string      `yaml:"description"`
		Scenarios   []yaml.Node `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse scenario set")
	}

	set := &ScenarioSet{Name: raw.Name, Description: raw.Description}
	for i := range raw.Scenarios {
		s := NewScenarioBuilder("").Build()
		if err := raw.Scenarios[i].Decode(&s); err != nil {
			return nil, errors.Wrapf(err, "scenario %d", i)
		}
		if err := s.Settings.Validate(); err != nil {
			return nil, errors.Wrapf(err, "scenario %s", s.Name)
		}
		set.Scenarios = append(set.Scenarios, s)
	}
	return set, nil
}
