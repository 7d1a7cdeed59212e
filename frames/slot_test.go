package frames

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotEmptyTryTake(t *testing.T) {
	s := NewSlot[int](nil)
	_, ok := s.TryTake()
	assert.False(t, ok)
}

func TestSlotPublishOverwritesAndReleases(t *testing.T) {
	var released []int
	s := NewSlot(func(v int) { released = append(released, v) })

	assert.False(t, s.Publish(1))
	assert.True(t, s.Publish(2))
	assert.True(t, s.Publish(3))

	v, ok := s.TryTake()
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, []int{1, 2}, released)

	_, ok = s.TryTake()
	assert.False(t, ok)

	assert.Equal(t, Stats{Published: 3, Taken: 1, Dropped: 2}, s.Stats())
}

func TestSlotTryTakeWhileLocked(t *testing.T) {
	s := NewSlot[string](nil)
	s.Publish("frame")

	s.mu.Lock()
	_, ok := s.TryTake()
	s.mu.Unlock()
	assert.False(t, ok)

	v, ok := s.TryTake()
	assert.True(t, ok)
	assert.Equal(t, "frame", v)
}

func TestSlotCloseReleasesPending(t *testing.T) {
	var released []int
	s := NewSlot(func(v int) { released = append(released, v) })
	s.Publish(7)
	s.Close()
	assert.Equal(t, []int{7}, released)

	_, ok := s.TryTake()
	assert.False(t, ok)
	s.Close()
	assert.Equal(t, []int{7}, released)
}

func TestSlotConcurrentAccounting(t *testing.T) {
	s := NewSlot[int](nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0
	for p := 0; p < 4; p++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				s.Publish(i)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if _, ok := s.TryTake(); ok {
					mu.Lock()
					taken++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	if _, ok := s.TryTake(); ok {
		taken++
	}

	st := s.Stats()
	assert.Equal(t, uint64(2000), st.Published)
	assert.Equal(t, uint64(taken), st.Taken)
	assert.Equal(t, st.Published, st.Taken+st.Dropped)
}
