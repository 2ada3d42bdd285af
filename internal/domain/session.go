package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SavedSession is the persisted state of an interrupted study session.
type SavedSession struct {
	ID       uuid.UUID      `json:"id"`
	Queue    []string       `json:"queue"`
	Position int            `json:"position"`
	Request  SessionRequest `json:"request"`
	SavedAt  time.Time      `json:"savedAt"`
}

// Validate checks that the snapshot describes a resumable session.
func (s SavedSession) Validate() error {
	if len(s.Queue) == 0 {
		return fmt.Errorf("%w: empty queue", ErrMalformedPersistedState)
	}
	if s.Position < 0 || s.Position >= len(s.Queue) {
		return fmt.Errorf("%w: position %d outside queue of %d",
			ErrMalformedPersistedState, s.Position, len(s.Queue))
	}
	for i, id := range s.Queue {
		if id == "" {
			return fmt.Errorf("%w: empty item at %d", ErrMalformedPersistedState, i)
		}
	}
	return nil
}
