package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManagerIsRunning(t *testing.T) {
	m := &Manager{queue: NewQueue(1, nil), stopCh: make(chan struct{})}

	assert.False(t, m.IsRunning())

	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	assert.True(t, m.IsRunning())

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	assert.False(t, m.IsRunning())
}

func TestManagerGetQueue(t *testing.T) {
	m := &Manager{queue: NewQueue(1, nil), stopCh: make(chan struct{})}
	assert.Same(t, m.queue, m.GetQueue())
}

func TestManagerStopTerminatesWorkers(t *testing.T) {
	m := &Manager{queue: NewQueue(1, nil), stopCh: make(chan struct{})}

	m.Start()
	assert.True(t, m.IsRunning())

	// Stop must return: every background worker has to observe the closed
	// stop channel, and the field must never be nilled out underneath them.
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("Stop did not return, background workers missed the stop signal")
	}

	assert.False(t, m.IsRunning())
	assert.NotNil(t, m.stopCh)

	// A second Stop on an already-stopped manager is a no-op.
	assert.NotPanics(t, func() { m.Stop() })
}
