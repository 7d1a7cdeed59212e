// Package profiler - Rolling stage timings and runtime statistics for the mask pipeline.
package profiler

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-bgseg/filter"
)

// Options configures the profiler.
type Options struct {
	// MaxSamples is the number of durations kept per stage (default: 600).
	MaxSamples int
	// Clock drives uptime and the report ticker (default: wall clock).
	Clock clock.Clock
	// Logger receives periodic reports (default: zap.L()).
	Logger *zap.Logger
}

// Profiler implements filter.Recorder and summarizes the last MaxSamples durations of
// every stage.
type Profiler struct {
	mu         sync.Mutex
	clock      clock.Clock
	logger     *zap.Logger
	start      time.Time
	maxSamples int
	trackers   map[string]*TimeTracker
	outcomes   map[string]uint64
	model      string
}

// TimeTracker keeps a sliding window of durations.
type TimeTracker struct {
	durations []time.Duration
	count     int64
}

// Summary describes one window of durations in milliseconds.
type Summary struct {
	Count   int64   `json:"count"`
	Samples int     `json:"samples"`
	MeanMS  float64 `json:"mean_ms"`
	P50MS   float64 `json:"p50_ms"`
	P95MS   float64 `json:"p95_ms"`
	MaxMS   float64 `json:"max_ms"`
}

// Report is a snapshot of the profiler.
type Report struct {
	Uptime     time.Duration      `json:"uptime"`
	Model      string             `json:"model"`
	Goroutines int                `json:"goroutines"`
	HeapAlloc  uint64             `json:"heap_alloc"`
	Stages     map[string]Summary `json:"stages"`
	Outcomes   map[string]uint64  `json:"outcomes"`
}

// New creates a profiler.
func New(opts Options) *Profiler {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	return &Profiler{
		clock:      opts.Clock,
		logger:     opts.Logger,
		start:      opts.Clock.Now(),
		maxSamples: opts.MaxSamples,
		trackers:   make(map[string]*TimeTracker),
		outcomes:   make(map[string]uint64),
	}
}

// TickDone implements filter.Recorder. Ticks are tracked as the "tick" pseudo-stage.
func (p *Profiler) TickDone(outcome filter.Outcome, _ error, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes[outcome.String()]++
	if outcome != filter.Dropped {
		p.record("tick", elapsed)
	}
}

// StageDone implements filter.Recorder.
func (p *Profiler) StageDone(stage filter.Stage, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(string(stage), elapsed)
}

// ModelLoaded implements filter.Recorder. Stage windows restart with the new model.
func (p *Profiler) ModelLoaded(model, backend string, threads int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = fmt.Sprintf("%s/%s/%d", model, backend, threads)
	p.trackers = make(map[string]*TimeTracker)
}

// StartOperation times an arbitrary operation until the returned func is called.
func (p *Profiler) StartOperation(name string) func() {
	start := p.clock.Now()
	return func() {
		d := p.clock.Since(start)
		p.mu.Lock()
		defer p.mu.Unlock()
		p.record(name, d)
	}
}

func (p *Profiler) record(name string, d time.Duration) {
	t, ok := p.trackers[name]
	if !ok {
		t = &TimeTracker{}
		p.trackers[name] = t
	}
	t.durations = append(t.durations, d)
	if len(t.durations) > p.maxSamples {
		t.durations = t.durations[1:]
	}
	t.count++
}

// summarize computes the window statistics. Errors from stats only occur on empty input.
func (t *TimeTracker) summarize() Summary {
	ms := make(stats.Float64Data, len(t.durations))
	for i, d := range t.durations {
		ms[i] = float64(d) / float64(time.Millisecond)
	}
	s := Summary{Count: t.count, Samples: len(ms)}
	if len(ms) == 0 {
		return s
	}
	s.MeanMS, _ = ms.Mean()
	s.P50MS, _ = ms.Percentile(50)
	s.P95MS, _ = ms.Percentile(95)
	s.MaxMS, _ = ms.Max()
	return s
}

// Report returns the current snapshot.
func (p *Profiler) Report() Report {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	p.mu.Lock()
	defer p.mu.Unlock()

	r := Report{
		Uptime:     p.clock.Since(p.start),
		Model:      p.model,
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		Stages:     make(map[string]Summary, len(p.trackers)),
		Outcomes:   make(map[string]uint64, len(p.outcomes)),
	}
	for name, t := range p.trackers {
		r.Stages[name] = t.summarize()
	}
	for k, v := range p.outcomes {
		r.Outcomes[k] = v
	}
	return r
}

// Run logs a report every interval until ctx is done.
func (p *Profiler) Run(ctx context.Context, interval time.Duration) {
	ticker := p.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.emit(p.Report())
		}
	}
}

func (p *Profiler) emit(r Report) {
	names := make([]string, 0, len(r.Stages))
	for name := range r.Stages {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := []zap.Field{
		zap.Duration("uptime", r.Uptime.Truncate(time.Millisecond)),
		zap.String("model", r.Model),
		zap.Int("goroutines", r.Goroutines),
		zap.String("heap", formatBytes(r.HeapAlloc)),
		zap.Any("outcomes", r.Outcomes),
	}
	for _, name := range names {
		s := r.Stages[name]
		fields = append(fields, zap.String(name,
			fmt.Sprintf("avg=%.2fms p95=%.2fms max=%.2fms n=%d", s.MeanMS, s.P95MS, s.MaxMS, s.Samples)))
	}
	p.logger.Info("pipeline profile", fields...)
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

var _ filter.Recorder = (*Profiler)(nil)
