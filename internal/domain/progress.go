package domain

import (
	"fmt"
	"time"
)

// Level is an item's proficiency, 0 (unknown) through 4 (mastered).
type Level int

// Proficiency levels.
const (
	LevelUnknown Level = iota
	LevelLearning
	LevelFamiliar
	LevelKnown
	LevelMastered
)

// MaxLevel is the highest proficiency level.
const MaxLevel = LevelMastered

var levelNames = [...]string{"unknown", "learning", "familiar", "known", "mastered"}

// String returns the lowercase name of the level.
func (l Level) String() string {
	if l < LevelUnknown || l > MaxLevel {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Valid reports whether l is within 0..4.
func (l Level) Valid() bool {
	return l >= LevelUnknown && l <= MaxLevel
}

// Rating is the learner's self-assessed recall for one presentation of an item.
// It uses the same 0..4 scale as Level.
type Rating int

// Ratings.
const (
	RatingUnknown Rating = iota
	RatingLearning
	RatingFamiliar
	RatingKnown
	RatingMastered
)

// Valid reports whether r is within 0..4.
func (r Rating) Valid() bool {
	return r >= RatingUnknown && r <= RatingMastered
}

// Retained reports whether the item was recalled well enough to move on.
// Ratings 0 and 1 are re-inserted later in the same session.
func (r Rating) Retained() bool {
	return r >= RatingFamiliar
}

// ProgressRecord tracks the learner's history with one item.
// The JSON field names match the exported progress format.
type ProgressRecord struct {
	Level          Level      `json:"level"`
	LastReviewedAt *time.Time `json:"lastReview"`
	NextDueAt      *time.Time `json:"nextReview"`
	ReviewCount    int        `json:"reviewCount"`
}

// DefaultProgressRecord returns the record of an item that has never been reviewed.
func DefaultProgressRecord() ProgressRecord {
	return ProgressRecord{Level: LevelUnknown}
}

// IsDue reports whether the item has a due date at or before now.
func (r ProgressRecord) IsDue(now time.Time) bool {
	return r.NextDueAt != nil && !r.NextDueAt.After(now)
}

// Validate checks the record's invariants.
func (r ProgressRecord) Validate() error {
	if !r.Level.Valid() {
		return fmt.Errorf("%w: level %d out of range", ErrValidation, r.Level)
	}
	if r.ReviewCount < 0 {
		return fmt.Errorf("%w: negative review count", ErrValidation)
	}
	return nil
}
