package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the session controller.
const (
	TypeItemRated        = "item.rated"
	TypeSessionCompleted = "session.completed"
)

// Event is a single notification.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// ItemRatedPayload describes one rating.
type ItemRatedPayload struct {
	SessionID   uuid.UUID `json:"sessionId"`
	ItemID      string    `json:"itemId"`
	Rating      int       `json:"rating"`
	Reinserted  bool      `json:"reinserted"`
	InsertIndex int       `json:"insertIndex,omitempty"`
	NextDueAt   time.Time `json:"nextDueAt"`
}

// SessionCompletedPayload describes a finished session.
type SessionCompletedPayload struct {
	SessionID uuid.UUID `json:"sessionId"`
	Length    int       `json:"length"`
	Rated     int       `json:"rated"`
	Skipped   int       `json:"skipped"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}
