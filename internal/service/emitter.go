package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples the service from its front end
// ─────────────────────────────────────────────────────────────

// Events emitted by ExportService.
const (
	EventExportCompleted   = "export:completed"
	EventExportFailed      = "export:failed"
	EventCredentialsRotate = "credentials:rotated"
)

// EventEmitter receives service events. The CLI logs them; tests record them.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event as a structured log line.
type LogEmitter struct {
	Logger zerolog.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	e.Logger.Debug().Str("event", event).Interface("data", data).Msg("event")
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Event
	}
	return out
}
