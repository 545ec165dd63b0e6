package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	mu     sync.Mutex
	events []string
	data   []string
	err    error
}

func (t *recordingTransport) Send(event string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.events = append(t.events, event)
	t.data = append(t.data, string(data))
	return nil
}

func (t *recordingTransport) received() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.events))
	copy(out, t.events)
	return out
}

func TestBusDeliversToRegisteredTransport(t *testing.T) {
	bus := NewBus()
	transport := &recordingTransport{}
	bus.Register("res-1", transport)

	bus.Notify("res-1", EventCompleted, map[string]string{"status": "completed"}, Options{})

	require.Len(t, transport.received(), 1)
	assert.Equal(t, EventCompleted, transport.events[0])
	assert.JSONEq(t, `{"status":"completed"}`, transport.data[0])
}

func TestBusDropsSilentlyWithoutRetry(t *testing.T) {
	bus := NewBus()

	// No transport registered and retry disabled: must not panic or block.
	bus.Notify("res-nobody", EventCompleted, "payload", Options{})
}

func TestBusRetriesUntilTransportRegisters(t *testing.T) {
	bus := NewBus()
	transport := &recordingTransport{}

	bus.Notify("res-late", EventCompleted, "done", Options{
		Retry:      true,
		MaxRetries: 20,
		RetryDelay: 5 * time.Millisecond,
	})

	// Client connects after the first delivery attempt already failed.
	time.Sleep(15 * time.Millisecond)
	bus.Register("res-late", transport)

	require.Eventually(t, func() bool {
		return len(transport.received()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, EventCompleted, transport.events[0])
}

func TestBusGivesUpAfterMaxRetries(t *testing.T) {
	bus := NewBus()

	bus.Notify("res-gone", EventFailed, "reason", Options{
		Retry:      true,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})

	time.Sleep(20 * time.Millisecond)

	// Registering after the retry window gets nothing.
	transport := &recordingTransport{}
	bus.Register("res-gone", transport)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, transport.received())
}

func TestBusLastRegisterWins(t *testing.T) {
	bus := NewBus()
	first := &recordingTransport{}
	second := &recordingTransport{}
	bus.Register("res-2", first)
	bus.Register("res-2", second)

	bus.Notify("res-2", EventCompleted, "x", Options{})

	assert.Empty(t, first.received())
	assert.Len(t, second.received(), 1)
}

func TestBusUnregisterStopsDelivery(t *testing.T) {
	bus := NewBus()
	transport := &recordingTransport{}
	bus.Register("res-3", transport)
	bus.Unregister("res-3")

	bus.Notify("res-3", EventCompleted, "x", Options{})

	assert.Empty(t, transport.received())
}

func TestBusRetriesOnSendFailure(t *testing.T) {
	bus := NewBus()
	transport := &recordingTransport{err: errors.New("broken pipe")}
	bus.Register("res-4", transport)

	bus.Notify("res-4", EventCompleted, "x", Options{
		Retry:      true,
		MaxRetries: 20,
		RetryDelay: 5 * time.Millisecond,
	})

	transport.mu.Lock()
	transport.err = nil
	transport.mu.Unlock()

	require.Eventually(t, func() bool {
		return len(transport.received()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestGetGlobalBusIsSingleton(t *testing.T) {
	assert.Same(t, GetGlobalBus(), GetGlobalBus())
}
