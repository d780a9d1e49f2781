package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Event types emitted by the engine.
const (
	EventLoginSuccess  = "login_success"
	EventLoginFailure  = "login_failure"
	EventTokenRefresh  = "token_refresh"
	EventRefreshFailed = "token_refresh_failure"
	EventLogout        = "logout"
)

// Event is one security-relevant admin authentication record.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"event_type"`
	Username   string    `json:"username,omitempty"`
	IdentityID string    `json:"identity_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	IP         string    `json:"ip,omitempty"`
	Source     string    `json:"source,omitempty"`
	Success    bool      `json:"success"`
	Reason     string    `json:"reason,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(context.Context, Event)

func (f SinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	Logger logr.Logger
}

func (s LogSink) Emit(_ context.Context, e Event) {
	s.Logger.Info("audit",
		"event", e.Type,
		"success", e.Success,
		"username", e.Username,
		"identityID", e.IdentityID,
		"sessionID", e.SessionID,
		"ip", e.IP,
		"source", e.Source,
		"reason", e.Reason,
	)
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}
