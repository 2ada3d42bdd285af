package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

type subscription struct {
	handler EventHandler
	types   []string // empty means every type
}

func (s subscription) wants(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// Dispatcher delivers each event synchronously to the handlers subscribed
// to its type, in subscription order.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher with no subscribers.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger.With(slog.String("component", "events"))}
}

// Subscribe registers h for the given event types, or for all types when
// none are given.
func (d *Dispatcher) Subscribe(h EventHandler, types ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, subscription{handler: h, types: types})
}

// EmitEvent implements EventEmitter. A failing handler does not stop
// delivery to the rest; all failures are joined into the returned error.
func (d *Dispatcher) EmitEvent(ctx context.Context, event *Event) error {
	d.mu.RLock()
	subs := slices.Clone(d.subs)
	d.mu.RUnlock()

	var errs []error
	delivered := 0
	for i, s := range subs {
		if !s.wants(event.Type) {
			continue
		}
		delivered++
		if err := s.handler.HandleEvent(ctx, event); err != nil {
			d.logger.WarnContext(ctx, "event handler failed",
				slog.String("event_type", event.Type),
				slog.Int("subscriber", i),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("subscriber %d: %w", i, err))
		}
	}

	d.logger.DebugContext(ctx, "event dispatched",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.Int("delivered", delivered))
	return errors.Join(errs...)
}

// LoggingHandler writes every event it receives to a structured logger.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger.With(slog.String("component", "event_log"))}
}

// HandleEvent logs the event at info level.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.logger.InfoContext(ctx, "session event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.String("payload", string(event.Payload)))
	return nil
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []*Event
}

func (r *Recorder) HandleEvent(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns the recorded events in arrival order.
func (r *Recorder) Events() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Count returns how many events of eventType were recorded.
func (r *Recorder) Count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
