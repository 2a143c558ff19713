package serial

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopIsIdempotentAndWakesLoop(t *testing.T) {
	m := NewManager()
	done := make(chan struct{})
	go func() {
		m.RunUntilStopped()
		close(done)
	}()

	// Give the loop a moment to reach the select before stopping.
	time.Sleep(10 * time.Millisecond)
	assert.True(t, m.IsRunning())

	m.Stop()
	m.Stop() // idempotent: must not panic or double-close

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunUntilStopped did not return after Stop")
	}
	assert.False(t, m.IsRunning())
}

func TestAddTimerFiresAndRemoveTimerStopsIt(t *testing.T) {
	m := NewManager()
	var fired int32
	id := m.AddTimer(5*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	go m.RunUntilStopped()
	defer m.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) > 0
	}, time.Second, 5*time.Millisecond)

	m.RemoveTimer(id)
	countAtRemoval := atomic.LoadInt32(&fired)
	time.Sleep(50 * time.Millisecond)
	// A couple of in-flight ticks may still land right after removal;
	// the count should stabilize rather than keep climbing indefinitely.
	assert.LessOrEqual(t, atomic.LoadInt32(&fired), countAtRemoval+2)
}
