package domain

import (
	"fmt"
	"strings"
)

// ProficiencyBucket restricts a session to items at one level, or to items due for review.
type ProficiencyBucket string

// Proficiency buckets. The empty bucket and BucketAll apply no restriction.
const (
	BucketAll      ProficiencyBucket = "all"
	BucketUnknown  ProficiencyBucket = "unknown"
	BucketLearning ProficiencyBucket = "learning"
	BucketFamiliar ProficiencyBucket = "familiar"
	BucketKnown    ProficiencyBucket = "known"
	BucketDue      ProficiencyBucket = "review"
)

// Level returns the level a bucket selects. The second value is false for
// BucketAll and BucketDue, which do not select by level.
func (b ProficiencyBucket) Level() (Level, bool) {
	switch b {
	case BucketUnknown:
		return LevelUnknown, true
	case BucketLearning:
		return LevelLearning, true
	case BucketFamiliar:
		return LevelFamiliar, true
	case BucketKnown:
		return LevelKnown, true
	default:
		return 0, false
	}
}

// IsAll reports whether the bucket applies no restriction.
func (b ProficiencyBucket) IsAll() bool {
	return b == "" || b == BucketAll
}

// Valid reports whether b is a known bucket.
func (b ProficiencyBucket) Valid() bool {
	if b.IsAll() || b == BucketDue {
		return true
	}
	_, ok := b.Level()
	return ok
}

// ParseProficiencyBucket accepts bucket names case-insensitively, plus "due"
// as an alias of BucketDue.
func ParseProficiencyBucket(s string) (ProficiencyBucket, error) {
	b := ProficiencyBucket(strings.ToLower(strings.TrimSpace(s)))
	if b == "due" {
		b = BucketDue
	}
	if !b.Valid() {
		return "", fmt.Errorf("%w: proficiency %q", ErrInvalidFilter, s)
	}
	if b == "" {
		b = BucketAll
	}
	return b, nil
}

// StrokeBand restricts a session by stroke count.
type StrokeBand string

// Stroke bands. The empty band and StrokesAll apply no restriction.
const (
	StrokesAll     StrokeBand = "all"
	Strokes1To5    StrokeBand = "1-5"
	Strokes6To10   StrokeBand = "6-10"
	Strokes11To15  StrokeBand = "11-15"
	Strokes16To20  StrokeBand = "16-20"
	Strokes21AndUp StrokeBand = "21+"
)

// IsAll reports whether the band applies no restriction.
func (s StrokeBand) IsAll() bool {
	return s == "" || s == StrokesAll
}

// Bounds returns the inclusive stroke range of the band. A max of 0 means unbounded.
func (s StrokeBand) Bounds() (lo, hi int, ok bool) {
	switch s {
	case Strokes1To5:
		return 1, 5, true
	case Strokes6To10:
		return 6, 10, true
	case Strokes11To15:
		return 11, 15, true
	case Strokes16To20:
		return 16, 20, true
	case Strokes21AndUp:
		return 21, 0, true
	default:
		return 0, 0, false
	}
}

// Contains reports whether n strokes fall within the band.
func (s StrokeBand) Contains(n int) bool {
	if s.IsAll() {
		return true
	}
	lo, hi, ok := s.Bounds()
	if !ok {
		return false
	}
	return n >= lo && (hi == 0 || n <= hi)
}

// Valid reports whether s is a known band.
func (s StrokeBand) Valid() bool {
	if s.IsAll() {
		return true
	}
	_, _, ok := s.Bounds()
	return ok
}

// SortPolicy orders a session queue.
type SortPolicy string

// Sort policies.
const (
	SortDefault   SortPolicy = "default"
	SortRandom    SortPolicy = "random"
	SortFrequency SortPolicy = "frequency"
	SortLevel     SortPolicy = "level"
)

// Valid reports whether p is a known policy. The empty policy means SortDefault.
func (p SortPolicy) Valid() bool {
	switch p {
	case "", SortDefault, SortRandom, SortFrequency, SortLevel:
		return true
	default:
		return false
	}
}

// Filters selects the items of a study session. Every set criterion must hold.
type Filters struct {
	Proficiency ProficiencyBucket `json:"proficiency,omitempty"`
	JLPT        *int              `json:"jlpt,omitempty"`
	Grade       *int              `json:"grade,omitempty"`
	Strokes     StrokeBand        `json:"strokes,omitempty"`
}

// Validate checks that every set criterion is recognized.
func (f Filters) Validate() error {
	if !f.Proficiency.Valid() {
		return fmt.Errorf("%w: proficiency %q", ErrInvalidFilter, f.Proficiency)
	}
	if !f.Strokes.Valid() {
		return fmt.Errorf("%w: strokes %q", ErrInvalidFilter, f.Strokes)
	}
	if f.JLPT != nil && (*f.JLPT < 1 || *f.JLPT > 5) {
		return fmt.Errorf("%w: jlpt %d", ErrInvalidFilter, *f.JLPT)
	}
	if f.Grade != nil && *f.Grade < 1 {
		return fmt.Errorf("%w: grade %d", ErrInvalidFilter, *f.Grade)
	}
	return nil
}

// SessionRequest is everything the learner chose when starting a session.
// It is saved alongside the queue so a resumed session keeps its filters.
type SessionRequest struct {
	Filters Filters    `json:"filters"`
	Sort    SortPolicy `json:"sort,omitempty"`
	Limit   int        `json:"limit,omitempty"`
}

// Validate checks the request's filters, sort and limit.
func (r SessionRequest) Validate() error {
	if err := r.Filters.Validate(); err != nil {
		return err
	}
	if !r.Sort.Valid() {
		return fmt.Errorf("%w: sort %q", ErrInvalidFilter, r.Sort)
	}
	if r.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}
	return nil
}
