// Package filter - Per-frame mask refinement for background removal.
//
// A Session owns one loaded model and the state carried between ticks. Each tick takes
// a BGR frame through:
//
//	┌────────────────────────┐
//	│ Periodic / PSNR gates  │──skip──► previous mask
//	└──────────┬─────────────┘
//	┌────────────────────────┐
//	│ Inference + activation │
//	└──────────┬─────────────┘
//	┌────────────────────────┐
//	│ Threshold or invert    │ (float masks bypass)
//	└──────────┬─────────────┘
//	┌────────────────────────┐
//	│ Temporal smoothing     │
//	└──────────┬─────────────┘
//	┌────────────────────────┐
//	│ Contours, blur, feather│ (thresholded masks only)
//	└──────────┬─────────────┘
//	┌────────────────────────┐
//	│ Vertical flip, publish │
//	└────────────────────────┘
//
// Failures abort the tick and keep the previously published mask.
package filter

import (
	"image"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/config"
	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/frames"
	"github.com/nvr-ai/go-bgseg/images"
	"github.com/nvr-ai/go-bgseg/models"
	"github.com/nvr-ai/go-bgseg/models/model"
)

// AdapterResolver returns a fresh adapter for a model identifier or alias.
type AdapterResolver func(name string) (model.Adapter, error)

// unit is the model sub-object, always replaced as a whole.
type unit struct {
	adapter model.Adapter
	engine  model.Engine
	size    image.Point
}

func (u *unit) close() error {
	if u == nil || u.engine == nil {
		return nil
	}
	return u.engine.Close()
}

// State is the mutable record a session carries between ticks.
type State struct {
	Settings config.Settings

	count     int
	lastImage gocv.Mat // resized frame for the similarity gate
	previous  gocv.Mat // PreviousMask, input of temporal smoothing
	blendPrev gocv.Mat // last published float mask, input of the segmentation blend
	mask      gocv.Mat // published mask
	model     *unit
}

func newState() State {
	return State{
		Settings:  config.Default(),
		lastImage: gocv.NewMat(),
		previous:  gocv.NewMat(),
		blendPrev: gocv.NewMat(),
		mask:      gocv.NewMat(),
	}
}

// resetStream drops everything derived from earlier frames except the published mask.
func (st *State) resetStream() {
	replace(&st.lastImage, gocv.NewMat())
	replace(&st.previous, gocv.NewMat())
	replace(&st.blendPrev, gocv.NewMat())
}

func (st *State) close() error {
	var err error
	for _, m := range []*gocv.Mat{&st.lastImage, &st.previous, &st.blendPrev, &st.mask} {
		err = multierr.Append(err, m.Close())
	}
	err = multierr.Append(err, st.model.close())
	st.model = nil
	return err
}

func replace(dst *gocv.Mat, m gocv.Mat) {
	dst.Close()
	*dst = m
}

// Session is a FilterSession: one model, its engine and the state between ticks.
//
// Tick and Apply serialize on the same mutex, so a model swap never overlaps a tick.
type Session struct {
	id       string
	factory  model.EngineFactory
	resolve  AdapterResolver
	logger   *zap.Logger
	recorder Recorder
	clock    clock.Clock
	refiner  *images.Refiner

	mu     sync.Mutex
	state  State
	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithRecorder sets the tick observer.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithClock sets the clock used to time ticks and stages.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithResolver replaces the model registry lookup.
func WithResolver(r AdapterResolver) Option {
	return func(s *Session) { s.resolve = r }
}

// NewSession creates a session with no model loaded. Call Apply before the first Tick.
//
// Arguments:
//   - factory: Creates an engine for the selected adapter and backend.
//   - opts: Optional logger, recorder, clock and resolver.
//
// Returns:
//   - *Session: The session. Close it to release native resources.
//
// @example
//
//	s := filter.NewSession(factory, filter.WithLogger(logger.Log()))
//	defer s.Close()
//	if err := s.Apply(config.Default()); err != nil { ... }
func NewSession(factory model.EngineFactory, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		factory:  factory,
		resolve:  models.NewAdapter,
		logger:   zap.L(),
		recorder: nopRecorder{},
		clock:    clock.New(),
		refiner:  images.NewRefiner(),
		state:    newState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Apply validates and installs new settings. A change of Model, UseGpu or NumThreads
// rebuilds the adapter and engine as one unit; on failure the previous model and
// settings stay in place. Every successful call resets the periodic skip counter.
//
// Arguments:
//   - next: The settings to apply.
//
// Returns:
//   - error: A configuration or engine error.
func (s *Session) Apply(next config.Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errs.Configurationf("filter.apply", "session is closed")
	}

	st := &s.state
	if st.model == nil || st.Settings.ModelChanged(next) {
		u, err := s.load(next)
		if err != nil {
			s.logger.Error("model swap failed",
				zap.String("model", next.Model), zap.String("backend", next.UseGpu), zap.Error(err))
			return err
		}
		if err := st.model.close(); err != nil {
			s.logger.Warn("error closing previous engine", zap.Error(err))
		}
		st.model = u
		st.resetStream()
		s.recorder.ModelLoaded(string(u.adapter.Name()), next.UseGpu, next.NumThreads)
		s.logger.Info("model loaded",
			zap.String("model", string(u.adapter.Name())),
			zap.String("backend", next.UseGpu),
			zap.Int("threads", next.NumThreads),
			zap.Int("width", u.size.X),
			zap.Int("height", u.size.Y))
	}

	st.Settings = next
	st.count = 0
	return nil
}

func (s *Session) load(next config.Settings) (*unit, error) {
	adapter, err := s.resolve(next.Model)
	if err != nil {
		return nil, err
	}
	engine, err := s.factory(adapter, model.EngineOptions{Backend: next.UseGpu, Threads: next.NumThreads})
	if err != nil {
		if errs.KindOf(err) == errs.KindUnknown {
			err = errs.Engine("filter.load", err)
		}
		return nil, err
	}
	if engine == nil {
		return nil, errs.Configurationf("filter.load", "no engine created for %s", next.Model)
	}
	return &unit{adapter: adapter, engine: engine, size: adapter.NetworkInputSize(engine.Binding())}, nil
}

// Tick runs the pipeline on one frame.
//
// Arguments:
//   - frame: An 8-bit BGR frame. The caller keeps ownership.
//
// Returns:
//   - Outcome: How the tick ended.
//   - error: Set when the outcome is Failed. The published mask is unchanged.
func (s *Session) Tick(frame gocv.Mat) (Outcome, error) {
	start := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, err := s.tick(frame)
	if err != nil {
		outcome = Failed
		s.logger.Warn("tick failed", zap.Stringer("kind", errs.KindOf(err)), zap.Error(err))
	}
	s.recorder.TickDone(outcome, err, s.clock.Since(start))
	return outcome, err
}

// TickFrom takes the latest frame from slot without blocking and runs a tick on it.
// An empty or contended slot yields Dropped. The taken frame is closed afterwards.
func (s *Session) TickFrom(slot *frames.Slot[gocv.Mat]) (Outcome, error) {
	frame, ok := slot.TryTake()
	if !ok {
		s.recorder.TickDone(Dropped, nil, 0)
		return Dropped, nil
	}
	defer frame.Close()
	return s.Tick(frame)
}

func (s *Session) tick(frame gocv.Mat) (Outcome, error) {
	if s.closed {
		return Failed, errs.Configurationf("filter.tick", "session is closed")
	}
	if frame.Empty() || frame.Channels() != 3 {
		return Failed, errs.Dataf("filter.tick", "want a non-empty BGR frame, got %d channels", frame.Channels())
	}
	st := &s.state
	if st.model == nil {
		return Failed, errs.Configurationf("filter.tick", "no model loaded")
	}
	set := st.Settings

	// The counter is read before it advances so the first tick after Apply always infers.
	skip := st.count != 0 && !st.mask.Empty()
	st.count = (st.count + 1) % set.MaskEveryXFrames
	if skip {
		return SkippedPeriodic, nil
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(frame, &resized, st.model.size, 0, 0, gocv.InterpolationCubic)

	if set.EnableImageSimilarity {
		t := s.clock.Now()
		similar, err := s.similar(resized)
		s.recorder.StageDone(StageGate, s.clock.Since(t))
		if err != nil {
			return Failed, err
		}
		if similar && !st.mask.Empty() {
			return SkippedSimilar, nil
		}
		resized.CopyTo(&st.lastImage)
	}

	mask, err := s.refine(resized)
	if err != nil {
		return Failed, err
	}
	replace(&st.mask, mask)
	return Published, nil
}

func (s *Session) similar(resized gocv.Mat) (bool, error) {
	last := s.state.lastImage
	if last.Empty() || last.Rows() != resized.Rows() || last.Cols() != resized.Cols() {
		return false, nil
	}
	psnr, err := images.PSNR(resized, last)
	if err != nil {
		return false, err
	}
	return psnr > s.state.Settings.ImageSimilarityThreshold, nil
}

// infer runs the model and returns a single-channel CV_32F mask in [0,1].
func (s *Session) infer(resized gocv.Mat) (gocv.Mat, error) {
	u := s.state.model
	set := s.state.Settings

	t := s.clock.Now()
	rgb, err := images.BGRToRGBFloats(resized)
	if err != nil {
		return gocv.NewMat(), err
	}
	prepared, err := u.adapter.PrepareInput(rgb, u.size)
	if err != nil {
		return gocv.NewMat(), err
	}
	inputs, outputs := u.engine.Inputs(), u.engine.Outputs()
	if err := u.adapter.LoadInput(prepared, u.size, inputs); err != nil {
		return gocv.NewMat(), err
	}
	if err := u.adapter.RunInference(u.engine, inputs, outputs); err != nil {
		return gocv.NewMat(), err
	}
	s.recorder.StageDone(StageInference, s.clock.Since(t))

	t = s.clock.Now()
	act := model.ActivationNone
	if set.UseFloatMask {
		act = u.adapter.FloatActivation()
	}
	m, err := u.adapter.MapOutput(act, outputs)
	if err != nil {
		return gocv.NewMat(), err
	}
	u.adapter.AssignOutputToInput(outputs, inputs)

	if !set.UseFloatMask || m.Channels > 1 {
		if m, err = u.adapter.PostProcess(m); err != nil {
			return gocv.NewMat(), err
		}
	}
	if m.Channels != 1 {
		return gocv.NewMat(), errs.Invariantf("filter.infer", "%s produced %d channels after post-processing",
			u.adapter.Name(), m.Channels)
	}
	out, err := images.MatFromFloats(m.Width, m.Height, m.Data)
	s.recorder.StageDone(StageMapping, s.clock.Since(t))
	return out, err
}

// refine runs a fresh tick from inference to orientation. The returned mask is owned by
// the caller. PreviousMask is only replaced if every stage succeeded.
func (s *Session) refine(resized gocv.Mat) (gocv.Mat, error) {
	st := &s.state
	set := st.Settings

	raw, err := s.infer(resized)
	if err != nil {
		raw.Close()
		return gocv.NewMat(), err
	}
	defer raw.Close()

	t := s.clock.Now()
	var mask gocv.Mat
	if set.UseFloatMask {
		mask = raw.Clone()
	} else {
		mask = Binarize(raw, set.EnableThreshold, set.Threshold)
	}
	s.recorder.StageDone(StageThreshold, s.clock.Since(t))

	ok := false
	defer func() {
		if !ok {
			mask.Close()
		}
	}()

	t = s.clock.Now()
	eff := EffectiveSmoothFactor(set.TemporalSmoothFactor, set.Threshold, set.EnableThreshold)
	if _, err := TemporalSmooth(&mask, st.previous, eff); err != nil {
		s.logger.Warn("temporal smoothing skipped", zap.Error(err))
	}
	previous := mask.Clone()
	s.recorder.StageDone(StageTemporal, s.clock.Since(t))

	if CleanupEnabled(set) {
		t = s.clock.Now()
		if err := s.cleanup(&mask, set); err != nil {
			previous.Close()
			return gocv.NewMat(), err
		}
		s.recorder.StageDone(StageCleanup, s.clock.Since(t))
	}

	t = s.clock.Now()
	Flip(&mask)
	if set.UseFloatMask && set.SegmentationBlend > 0 {
		if _, err := BlendSegmentationSmoothing(&mask, st.blendPrev, set.SegmentationBlend); err != nil {
			s.logger.Warn("segmentation blend skipped", zap.Error(err))
		}
		replace(&st.blendPrev, mask.Clone())
	}
	s.recorder.StageDone(StageOrient, s.clock.Since(t))

	replace(&st.previous, previous)
	ok = true
	return mask, nil
}

func (s *Session) cleanup(mask *gocv.Mat, set config.Settings) error {
	if err := FilterContours(mask, s.refiner, set.ContourFilter); err != nil {
		return err
	}
	SmoothContour(mask, set.SmoothContour)
	return Feather(mask, s.refiner, set.Feather)
}

// Mask returns a copy of the published mask. It is empty until the first fresh tick.
// The caller closes it.
func (s *Session) Mask() gocv.Mat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.mask.Clone()
}

// InputSize returns the network input size of the loaded model, or 0x0 without one.
func (s *Session) InputSize() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.model == nil {
		return image.Point{}
	}
	return s.state.model.size
}

// Settings returns the settings currently applied.
func (s *Session) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings
}

// Model returns the identifier of the loaded model, or "" without one.
func (s *Session) Model() model.Name {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.model == nil {
		return ""
	}
	return s.state.model.adapter.Name()
}

// Close releases the engine and every Mat. Further ticks fail.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return multierr.Combine(s.state.close(), s.refiner.Close())
}
