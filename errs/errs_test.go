package errs

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("session is nil")

	err := Engine("inference.run", cause)
	require.Error(t, err)
	assert.Equal(t, KindEngine, KindOf(err))
	assert.True(t, Is(err, KindEngine))
	assert.False(t, Is(err, KindData))
	assert.Equal(t, cause, errors.Cause(err))

	wrapped := fmt.Errorf("tick 12: %w", err)
	assert.Equal(t, KindEngine, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, cause))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindUnknown))
}

func TestErrorMessage(t *testing.T) {
	err := Dataf("filter.tick", "frame is empty")
	assert.Equal(t, "filter.tick: data error: frame is empty", err.Error())

	bare := New(KindInvariant, "models.bind", nil)
	assert.Equal(t, "models.bind: invariant error", bare.Error())
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindConfiguration: "configuration",
		KindEngine:        "engine",
		KindData:          "data",
		KindInvariant:     "invariant",
		KindUnknown:       "unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
