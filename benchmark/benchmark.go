// Package benchmark - Throughput and latency measurement of the mask pipeline across
// resolutions, models and settings.
package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgseg/filter"
	"github.com/nvr-ai/go-bgseg/models/model"
	"github.com/nvr-ai/go-bgseg/test"
)

// FrameSource produces the frames of one scenario run. The suite closes them.
type FrameSource func(scenario Scenario) ([]gocv.Mat, error)

// SyntheticFrames renders a moving subject at the scenario resolution.
func SyntheticFrames(scenario Scenario) ([]gocv.Mat, error) {
	size := scenario.Resolution.Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.Errorf("scenario %s has no resolution", scenario.Name)
	}
	gen := test.NewMockFrameGenerator(size.X, size.Y)
	subject := size.Y / 3
	step := max(1, (size.X-subject)/16)
	return gen.GenerateSequence(16, subject, step), nil
}

// LatencyMetrics summarizes per-tick latency in milliseconds.
type LatencyMetrics struct {
	MeanMS float64 `json:"mean_ms"`
	P50MS  float64 `json:"p50_ms"`
	P95MS  float64 `json:"p95_ms"`
	P99MS  float64 `json:"p99_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// MemoryMetrics represents memory usage over a run.
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	NumGC           uint32 `json:"num_gc"`
}

// PerformanceMetrics is the result of one scenario.
type PerformanceMetrics struct {
	Scenario        Scenario       `json:"scenario"`
	Timestamp       time.Time      `json:"timestamp"`
	TotalDuration   time.Duration  `json:"total_duration"`
	FramesPerSecond float64        `json:"frames_per_second"`
	Latency         LatencyMetrics `json:"latency"`
	Outcomes        map[string]int `json:"outcomes"`
	ErrorRate       float64        `json:"error_rate"`
	MemoryStats     MemoryMetrics  `json:"memory_stats"`
	NumCPU          int            `json:"num_cpu"`
}

// Suite runs scenarios against one engine factory.
type Suite struct {
	factory   model.EngineFactory
	frames    FrameSource
	outputDir string
	logger    *zap.Logger
	clock     clock.Clock

	mu        sync.RWMutex
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuiteArgs configures a suite.
type NewSuiteArgs struct {
	// Factory creates an engine per scenario.
	Factory model.EngineFactory
	// Frames defaults to SyntheticFrames.
	Frames FrameSource
	// OutputDir receives SaveResults files.
	OutputDir string
	// Logger defaults to zap.L().
	Logger *zap.Logger
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// NewSuite creates a benchmark suite.
//
// Arguments:
//   - args: The suite configuration.
//
// Returns:
//   - *Suite: The suite with no scenarios.
func NewSuite(args NewSuiteArgs) *Suite {
	if args.Frames == nil {
		args.Frames = SyntheticFrames
	}
	if args.Logger == nil {
		args.Logger = zap.L()
	}
	if args.Clock == nil {
		args.Clock = clock.New()
	}
	return &Suite{
		factory:   args.Factory,
		frames:    args.Frames,
		outputDir: args.OutputDir,
		logger:    args.Logger,
		clock:     args.Clock,
	}
}

// AddScenario queues a scenario for RunAllScenarios.
func (bs *Suite) AddScenario(scenario Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, scenario)
}

// RunScenario executes a single benchmark scenario on a fresh session.
func (bs *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("scenario %s: iterations must be > 0", scenario.Name)
	}
	frames, err := bs.frames(scenario)
	if err != nil {
		return nil, err
	}
	defer test.CloseAll(frames)
	if len(frames) == 0 {
		return nil, errors.Errorf("scenario %s: no frames", scenario.Name)
	}

	session := filter.NewSession(bs.factory, filter.WithLogger(bs.logger), filter.WithClock(bs.clock))
	defer session.Close()
	if err := session.Apply(scenario.Settings); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		_, _ = session.Tick(frames[i%len(frames)])
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: bs.clock.Now(),
		Outcomes:  make(map[string]int),
		NumCPU:    runtime.NumCPU(),
	}
	latencies := make(stats.Float64Data, 0, scenario.Iterations)
	failures := 0

	start := bs.clock.Now()
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := bs.clock.Now()
		outcome, err := session.Tick(frames[i%len(frames)])
		latencies = append(latencies, float64(bs.clock.Since(t))/float64(time.Millisecond))
		metrics.Outcomes[outcome.String()]++
		if err != nil {
			failures++
		}
	}
	metrics.TotalDuration = bs.clock.Since(start)

	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)

	if secs := metrics.TotalDuration.Seconds(); secs > 0 {
		metrics.FramesPerSecond = float64(scenario.Iterations) / secs
	}
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	metrics.Latency = summarize(latencies)
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		HeapAllocBytes:  endMem.HeapAlloc,
		NumGC:           endMem.NumGC - startMem.NumGC,
	}
	return metrics, nil
}

func summarize(ms stats.Float64Data) LatencyMetrics {
	var l LatencyMetrics
	l.MeanMS, _ = ms.Mean()
	l.P50MS, _ = ms.Percentile(50)
	l.P95MS, _ = ms.Percentile(95)
	l.P99MS, _ = ms.Percentile(99)
	l.MaxMS, _ = ms.Max()
	return l
}

// RunAllScenarios executes all queued scenarios. Failed scenarios are logged and skipped.
func (bs *Suite) RunAllScenarios(ctx context.Context) error {
	bs.mu.RLock()
	scenarios := make([]Scenario, len(bs.scenarios))
	copy(scenarios, bs.scenarios)
	bs.mu.RUnlock()

	for _, scenario := range scenarios {
		metrics, err := bs.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			bs.logger.Warn("scenario failed", zap.String("scenario", scenario.Name), zap.Error(err))
			continue
		}

		bs.mu.Lock()
		bs.results = append(bs.results, *metrics)
		bs.mu.Unlock()

		bs.logger.Info("scenario completed",
			zap.String("scenario", scenario.Name),
			zap.Float64("fps", metrics.FramesPerSecond),
			zap.Float64("p95_ms", metrics.Latency.P95MS))
	}
	return nil
}

// SaveResults writes the results as JSON and a CSV summary.
//
// Returns:
//   - []string: The written file paths.
//   - error: An error if the output directory or files cannot be written.
func (bs *Suite) SaveResults() ([]string, error) {
	results := bs.GetResults()

	if err := os.MkdirAll(bs.outputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	timestamp := bs.clock.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write results file")
	}

	summaryFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return nil, errors.Wrap(err, "failed to save summary CSV")
	}
	return []string{resultsFile, summaryFile}, nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	_ = w.Write([]string{"scenario", "model", "resolution", "fps", "mean_ms", "p95_ms", "published", "skipped", "error_rate"})
	for _, r := range results {
		skipped := r.Outcomes[filter.SkippedPeriodic.String()] + r.Outcomes[filter.SkippedSimilar.String()]
		_ = w.Write([]string{
			r.Scenario.Name,
			r.Scenario.Settings.Model,
			string(r.Scenario.Resolution.Name),
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			strconv.FormatFloat(r.Latency.MeanMS, 'f', 3, 64),
			strconv.FormatFloat(r.Latency.P95MS, 'f', 3, 64),
			strconv.Itoa(r.Outcomes[filter.Published.String()]),
			strconv.Itoa(skipped),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		})
	}
	w.Flush()
	return w.Error()
}

// GetResults returns all benchmark results.
func (bs *Suite) GetResults() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	results := make([]PerformanceMetrics, len(bs.results))
	copy(results, bs.results)
	return results
}
