// Package config - Inference settings for the mask pipeline and their YAML file surface.
package config

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/inference/providers"
	"github.com/nvr-ai/go-bgseg/models"
	"github.com/nvr-ai/go-bgseg/models/model"
)

// Settings is the externally editable configuration of a filter session.
type Settings struct {
	// EnableThreshold binarizes the mask and enables the contour, blur and feather stages.
	EnableThreshold bool `json:"enable_threshold" yaml:"enable_threshold"`
	// Threshold is the binarization cutoff in [0,1].
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// EnableImageSimilarity skips inference on frames similar to the last one.
	EnableImageSimilarity bool `json:"enable_image_similarity" yaml:"enable_image_similarity"`
	// ImageSimilarityThreshold is the PSNR in dB above which frames count as similar.
	ImageSimilarityThreshold float64 `json:"image_similarity_threshold" yaml:"image_similarity_threshold"`
	// UseFloatMask keeps the mask continuous in [0,1].
	UseFloatMask bool `json:"use_float_mask" yaml:"use_float_mask"`
	// ContourFilter is the minimum blob area as a fraction of the mask. Active in (0,1).
	ContourFilter float64 `json:"contour_filter" yaml:"contour_filter"`
	// SmoothContour controls the blur kernel, k = int(3 + 11*s).
	SmoothContour float64 `json:"smooth_contour" yaml:"smooth_contour"`
	// Feather controls the feather kernel, k = int(40*f).
	Feather float64 `json:"feather" yaml:"feather"`
	// TemporalSmoothFactor is the weight of the new mask when blending with the previous one.
	TemporalSmoothFactor float64 `json:"temporal_smooth_factor" yaml:"temporal_smooth_factor"`
	// MaskEveryXFrames runs inference on one tick out of N.
	MaskEveryXFrames int `json:"mask_every_x_frames" yaml:"mask_every_x_frames"`
	// SegmentationBlend is the ratio of the uncertainty-weighted blend for float masks.
	SegmentationBlend float64 `json:"segmentation_blend" yaml:"segmentation_blend"`
	// BlurBackground blurs the frame instead of replacing the background. Compositor only.
	BlurBackground float64 `json:"blur_background" yaml:"blur_background"`
	// Model is the model identifier or alias.
	Model string `json:"model" yaml:"model"`
	// UseGpu is the opaque backend identifier: cpu, dml, cuda, tensorrt, coreml, openvino.
	UseGpu string `json:"use_gpu" yaml:"use_gpu"`
	// NumThreads is the CPU thread count given to the engine.
	NumThreads int `json:"num_threads" yaml:"num_threads"`
}

// Default returns the settings a new session starts with.
func Default() Settings {
	return Settings{
		EnableThreshold:          false,
		Threshold:                0,
		EnableImageSimilarity:    false,
		ImageSimilarityThreshold: 0,
		ContourFilter:            0,
		SmoothContour:            0,
		Feather:                  0,
		TemporalSmoothFactor:     1,
		MaskEveryXFrames:         1,
		Model:                    string(model.NameMediapipe),
		UseGpu:                   string(providers.CPUProviderBackend),
		NumThreads:               1,
	}
}

// Validate checks every field and reports all violations at once.
//
// Returns:
//   - error: A configuration error combining every violation, or nil.
func (s Settings) Validate() error {
	var err error
	unit := func(name string, v float64) {
		if !finite(v) || v < 0 || v > 1 {
			err = multierr.Append(err, errors.Errorf("%s must be in [0,1], got %v", name, v))
		}
	}
	unit("threshold", s.Threshold)
	unit("contour_filter", s.ContourFilter)
	unit("smooth_contour", s.SmoothContour)
	unit("feather", s.Feather)
	unit("temporal_smooth_factor", s.TemporalSmoothFactor)
	unit("segmentation_blend", s.SegmentationBlend)
	unit("blur_background", s.BlurBackground)

	if !finite(s.ImageSimilarityThreshold) || s.ImageSimilarityThreshold < 0 {
		err = multierr.Append(err, errors.Errorf("image_similarity_threshold must be a finite value >= 0, got %v", s.ImageSimilarityThreshold))
	}
	if s.MaskEveryXFrames < 1 {
		err = multierr.Append(err, errors.Errorf("mask_every_x_frames must be >= 1, got %d", s.MaskEveryXFrames))
	}
	if s.NumThreads < 1 {
		err = multierr.Append(err, errors.Errorf("num_threads must be >= 1, got %d", s.NumThreads))
	}
	if !models.Known(s.Model) {
		err = multierr.Append(err, errors.Errorf("unknown model %q", s.Model))
	}
	if _, perr := providers.ParseBackend(s.UseGpu); perr != nil {
		err = multierr.Append(err, errors.Errorf("unknown backend %q", s.UseGpu))
	}

	if err != nil {
		return errs.Configuration("config.validate", err)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ModelChanged reports whether switching from s to next requires rebuilding the engine.
func (s Settings) ModelChanged(next Settings) bool {
	return s.Model != next.Model || s.UseGpu != next.UseGpu || s.NumThreads != next.NumThreads
}

// Parse decodes YAML on top of the defaults and validates the result.
//
// Arguments:
//   - data: YAML document. Missing keys keep their default values.
//
// Returns:
//   - Settings: The decoded settings.
//   - error: A configuration error on malformed YAML or invalid values.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, errs.Configuration("config.parse", errors.Wrap(err, "error decoding settings"))
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads and validates a YAML settings file.
//
// Arguments:
//   - path: The file path.
//
// Returns:
//   - Settings: The loaded settings.
//   - error: A configuration error if the file cannot be read or is invalid.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errs.Configuration("config.load", errors.Wrapf(err, "error reading %s", path))
	}
	return Parse(data)
}

// Save writes s as YAML.
func Save(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "error encoding settings")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "error writing %s", path)
}
