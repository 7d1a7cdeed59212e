package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "published", Published.String())
	assert.Equal(t, "skipped_periodic", SkippedPeriodic.String())
	assert.Equal(t, "skipped_similar", SkippedSimilar.String())
	assert.Equal(t, "dropped", Dropped.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestMultiRecorderFansOut(t *testing.T) {
	a, b := newCountingRecorder(), newCountingRecorder()
	m := MultiRecorder{a, b}

	m.TickDone(Published, nil, time.Millisecond)
	m.StageDone(StageInference, time.Millisecond)
	m.ModelLoaded("rvm_mobilenetv3_fp32", "cpu", 2)

	for _, r := range []*countingRecorder{a, b} {
		assert.Equal(t, 1, r.outcomes[Published])
		assert.Equal(t, 1, r.stages[StageInference])
		assert.Equal(t, []string{"rvm_mobilenetv3_fp32"}, r.loaded)
	}
}
