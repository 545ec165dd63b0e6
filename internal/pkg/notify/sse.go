package notify

import (
	"errors"
	"fmt"
	"sync"
)

// Event names carried on the notification stream.
const (
	EventConnected = "connected"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// SSETransport buffers server-sent-event frames for one client connection.
// The HTTP handler drains Frames() and writes them to the response stream.
type SSETransport struct {
	frames chan string

	mu     sync.Mutex
	closed bool
}

func NewSSETransport() *SSETransport {
	return &SSETransport{
		frames: make(chan string, 8),
	}
}

// Send queues one SSE frame. It fails instead of blocking when the client
// stopped draining or the transport is closed.
func (t *SSETransport) Send(event string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("transport closed")
	}

	frame := fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
	select {
	case t.frames <- frame:
		return nil
	default:
		return errors.New("transport buffer full")
	}
}

// Frames returns the channel the HTTP handler consumes.
func (t *SSETransport) Frames() <-chan string {
	return t.frames
}

// Close marks the transport dead; subsequent sends fail and the frame
// channel is closed so the handler loop terminates.
func (t *SSETransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	close(t.frames)
}
