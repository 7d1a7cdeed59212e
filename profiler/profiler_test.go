package profiler

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nvr-ai/go-bgseg/filter"
)

func TestStageSummaries(t *testing.T) {
	p := New(Options{Clock: clock.NewMock()})
	for i := 1; i <= 100; i++ {
		p.StageDone(filter.StageInference, time.Duration(i)*time.Millisecond)
	}
	p.TickDone(filter.Published, nil, 10*time.Millisecond)
	p.TickDone(filter.Dropped, nil, 0)

	r := p.Report()
	s := r.Stages["inference"]
	assert.Equal(t, int64(100), s.Count)
	assert.InDelta(t, 50.5, s.MeanMS, 1e-9)
	assert.InDelta(t, 100, s.MaxMS, 1e-9)
	assert.InDelta(t, 95, s.P95MS, 1)
	assert.Equal(t, uint64(1), r.Outcomes["published"])
	assert.Equal(t, uint64(1), r.Outcomes["dropped"])
	assert.Equal(t, 1, r.Stages["tick"].Samples)
}

func TestWindowIsBounded(t *testing.T) {
	p := New(Options{MaxSamples: 3, Clock: clock.NewMock()})
	for i := 1; i <= 5; i++ {
		p.StageDone(filter.StageTemporal, time.Duration(i)*time.Millisecond)
	}
	s := p.Report().Stages["temporal"]
	assert.Equal(t, 3, s.Samples)
	assert.Equal(t, int64(5), s.Count)
	assert.InDelta(t, 4, s.MeanMS, 1e-9)
}

func TestModelLoadedResetsWindows(t *testing.T) {
	p := New(Options{Clock: clock.NewMock()})
	p.StageDone(filter.StageInference, time.Millisecond)
	p.ModelLoaded("selfie_segmentation", "cpu", 2)

	r := p.Report()
	assert.Empty(t, r.Stages)
	assert.Equal(t, "selfie_segmentation/cpu/2", r.Model)
}

func TestStartOperationUsesClock(t *testing.T) {
	mock := clock.NewMock()
	p := New(Options{Clock: mock})

	done := p.StartOperation("load")
	mock.Add(40 * time.Millisecond)
	done()

	assert.InDelta(t, 40, p.Report().Stages["load"].MeanMS, 1e-9)
	assert.Equal(t, 40*time.Millisecond, p.Report().Uptime)
}

func TestRunLogsReports(t *testing.T) {
	mock := clock.NewMock()
	core, logs := observer.New(zapcore.InfoLevel)
	p := New(Options{Clock: mock, Logger: zap.New(core)})
	p.StageDone(filter.StageInference, 2*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, time.Second)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		return logs.FilterMessage("pipeline profile").Len() > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	entry := logs.FilterMessage("pipeline profile").All()[0]
	assert.Contains(t, entry.ContextMap()["inference"], "n=1")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
