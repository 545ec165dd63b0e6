package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Transport is a live client connection able to receive named events.
type Transport interface {
	Send(event string, data []byte) error
}

// Options controls delivery retry for clients that have not connected yet.
type Options struct {
	Retry      bool
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultOptions retries for a short window so a client that triggered a job
// and is still opening its event stream does not miss the completion event.
func DefaultOptions() Options {
	return Options{Retry: true, MaxRetries: 10, RetryDelay: 2 * time.Second}
}

// Bus maps resource correlation ids to live transports and delivers events
// best-effort. It is an explicit, injected store: register on connect,
// unregister on disconnect. Delivery is not guaranteed; the authoritative
// state lives on the persisted entity and can be polled.
type Bus struct {
	mu         sync.RWMutex
	transports map[string]Transport
}

func NewBus() *Bus {
	return &Bus{transports: make(map[string]Transport)}
}

var (
	globalBus *Bus
	busOnce   sync.Once
)

// GetGlobalBus returns the process-wide bus shared between the job workers
// and the event-stream endpoints.
func GetGlobalBus() *Bus {
	busOnce.Do(func() {
		globalBus = NewBus()
	})
	return globalBus
}

// Register binds a transport to a resource id. Last register wins.
func (b *Bus) Register(resourceID string, t Transport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transports[resourceID] = t
}

// Unregister removes the binding for a resource id, if any.
func (b *Bus) Unregister(resourceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.transports, resourceID)
}

func (b *Bus) transport(resourceID string) (Transport, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.transports[resourceID]
	return t, ok
}

// Notify delivers an event to the transport registered for the resource. If
// none is registered (or the send fails) and opts.Retry is set, delivery is
// re-attempted up to MaxRetries times, RetryDelay apart, then dropped
// silently.
func (b *Bus) Notify(resourceID, event string, payload interface{}, opts Options) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("[Notify] Failed to marshal payload for %s: %v", resourceID, err)
		return
	}

	if b.trySend(resourceID, event, data) {
		return
	}
	if !opts.Retry || opts.MaxRetries <= 0 {
		return
	}

	go func() {
		for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
			time.Sleep(opts.RetryDelay)
			if b.trySend(resourceID, event, data) {
				return
			}
		}
		log.Debugf("[Notify] Dropped %s event for %s after %d attempts", event, resourceID, opts.MaxRetries)
	}()
}

func (b *Bus) trySend(resourceID, event string, data []byte) bool {
	t, ok := b.transport(resourceID)
	if !ok {
		return false
	}
	if err := t.Send(event, data); err != nil {
		log.Debugf("[Notify] Send of %s to %s failed: %v", event, resourceID, err)
		return false
	}
	return true
}
