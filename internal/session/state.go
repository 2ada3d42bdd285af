package session

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-kanji/internal/domain"
)

// State is the lifecycle state of the controller.
type State int

const (
	// StateIdle means no queue is installed.
	StateIdle State = iota
	// StateActive means the position points at an item of the queue.
	StateActive
	// StateComplete means the position reached the end of the queue.
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// View is what the display layer needs to render the session.
type View struct {
	SessionID uuid.UUID              `json:"sessionId"`
	State     State                  `json:"state"`
	Position  int                    `json:"position"`
	Length    int                    `json:"length"`
	Queue     []string               `json:"queue,omitempty"`
	ItemID    string                 `json:"itemId,omitempty"`
	Counter   string                 `json:"counter,omitempty"`
	Progress  *domain.ProgressRecord `json:"progress,omitempty"`
	Detail    *domain.Detail         `json:"detail,omitempty"`
	Request   domain.SessionRequest  `json:"request"`
}

// snapshot is the controller state copied out under the lock.
type snapshot struct {
	id       uuid.UUID
	state    State
	queue    []string
	position int
	request  domain.SessionRequest
}

func (s snapshot) current() string {
	if s.state != StateActive {
		return ""
	}
	return s.queue[s.position]
}

func (s snapshot) next() string {
	if s.state != StateActive || s.position+1 >= len(s.queue) {
		return ""
	}
	return s.queue[s.position+1]
}

func (s snapshot) view() View {
	v := View{
		SessionID: s.id,
		State:     s.state,
		Position:  s.position,
		Length:    len(s.queue),
		Queue:     s.queue,
		Request:   s.request,
	}
	if s.state == StateActive {
		v.ItemID = s.queue[s.position]
		v.Counter = fmt.Sprintf("%d / %d", s.position+1, len(s.queue))
	}
	return v
}

func (s snapshot) saved() domain.SavedSession {
	return domain.SavedSession{
		ID:       s.id,
		Queue:    s.queue,
		Position: s.position,
		Request:  s.request,
	}
}
