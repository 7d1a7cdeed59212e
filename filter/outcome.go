package filter

import (
	"time"
)

// Outcome is how a tick ended.
type Outcome int

const (
	// Published means fresh inference ran and a new mask was published.
	Published Outcome = iota
	// SkippedPeriodic means the MaskEveryXFrames counter reused the previous mask.
	SkippedPeriodic
	// SkippedSimilar means the frame was too similar to the last one to re-run inference.
	SkippedSimilar
	// Dropped means no frame could be taken without blocking.
	Dropped
	// Failed means the tick aborted and the previous mask was kept.
	Failed
)

// String returns the label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Published:
		return "published"
	case SkippedPeriodic:
		return "skipped_periodic"
	case SkippedSimilar:
		return "skipped_similar"
	case Dropped:
		return "dropped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage names a timed part of a fresh tick.
type Stage string

// Stages in pipeline order.
const (
	StageGate      Stage = "gate"
	StageInference Stage = "inference"
	StageMapping   Stage = "mapping"
	StageThreshold Stage = "threshold"
	StageTemporal  Stage = "temporal"
	StageCleanup   Stage = "cleanup"
	StageOrient    Stage = "orient"
)

// Recorder observes tick results. Implementations must be safe for concurrent use.
type Recorder interface {
	// TickDone is called once per tick. err is nil unless outcome is Failed.
	TickDone(outcome Outcome, err error, elapsed time.Duration)
	// StageDone is called for every stage of a fresh tick.
	StageDone(stage Stage, elapsed time.Duration)
	// ModelLoaded is called after a successful model swap.
	ModelLoaded(model, backend string, threads int)
}

// MultiRecorder fans out to several recorders.
type MultiRecorder []Recorder

// TickDone implements Recorder.
func (m MultiRecorder) TickDone(outcome Outcome, err error, elapsed time.Duration) {
	for _, r := range m {
		r.TickDone(outcome, err, elapsed)
	}
}

// StageDone implements Recorder.
func (m MultiRecorder) StageDone(stage Stage, elapsed time.Duration) {
	for _, r := range m {
		r.StageDone(stage, elapsed)
	}
}

// ModelLoaded implements Recorder.
func (m MultiRecorder) ModelLoaded(model, backend string, threads int) {
	for _, r := range m {
		r.ModelLoaded(model, backend, threads)
	}
}

type nopRecorder struct{}

func (nopRecorder) TickDone(Outcome, error, time.Duration) {}
func (nopRecorder) StageDone(Stage, time.Duration)         {}
func (nopRecorder) ModelLoaded(string, string, int)        {}
