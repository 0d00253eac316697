package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// EventSessionTerminated is emitted after the local session is invalidated.
	EventSessionTerminated EventType = "session.terminated"
	// EventFetchFailed is emitted when a facade fetch returns an error.
	EventFetchFailed EventType = "fetch.failed"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// SessionTerminatedData contains data for session terminated events.
type SessionTerminatedData struct {
	UserID string // empty when no session was active
}

// FetchFailedData contains data for fetch failed events.
type FetchFailedData struct {
	Resource string
	Status   int
	Err      error
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewManager creates a new event manager. A disabled manager drops
// subscriptions and publications.
func NewManager(enabled bool, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
		logger:   logger,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}
	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously; their errors are logged.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	m.mu.RLock()
	if !m.enabled || len(m.handlers[eventType]) == 0 {
		m.mu.RUnlock()
		return
	}
	handlers := append([]Handler(nil), m.handlers[eventType]...)
	// Counted under the lock so Shutdown cannot start waiting before these
	// handlers are registered.
	m.wg.Add(len(handlers))
	m.mu.RUnlock()

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	// Handlers outlive the publishing request.
	ctx = context.WithoutCancel(ctx)
	for _, handler := range handlers {
		go func(h Handler) {
			defer m.wg.Done()
			if err := h(ctx, event); err != nil {
				m.logger.Warn("event handler failed", "event", string(eventType), "error", err)
			}
		}(handler)
	}
}

// PublishSessionTerminated publishes a session terminated event.
func (m *Manager) PublishSessionTerminated(ctx context.Context, userID string) {
	m.Publish(ctx, EventSessionTerminated, SessionTerminatedData{UserID: userID})
}

// PublishFetchFailed publishes a fetch failed event.
func (m *Manager) PublishFetchFailed(ctx context.Context, resource string, status int, err error) {
	m.Publish(ctx, EventFetchFailed, FetchFailedData{Resource: resource, Status: status, Err: err})
}

// Wait blocks until in-flight handlers return.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown disables the manager, drops handlers and waits for in-flight ones.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.wg.Wait()
}
