package srs

import (
	"time"

	"github.com/phrazzld/scry-kanji/internal/domain"
)

// calculateNextDueDate determines when the item should next be reviewed.
//
// The gap comes from the fixed interval table in params, indexed by rating.
// It does not depend on the item's history: a rating of 0 always means
// tomorrow, a rating of 4 always means a month from now.
func calculateNextDueDate(rating domain.Rating, now time.Time, params *Params) time.Time {
	return now.AddDate(0, 0, params.IntervalDays(rating))
}

// calculateNextRecord creates a new ProgressRecord reflecting one rating.
//
// Effects:
//   - Level becomes the rating
//   - LastReviewedAt becomes now
//   - ReviewCount is incremented
//   - NextDueAt is now plus the interval for the rating
//
// The input record is not modified. Timestamps in the result are fresh
// values, so callers can keep the previous record around safely.
func calculateNextRecord(
	record domain.ProgressRecord,
	rating domain.Rating,
	now time.Time,
	params *Params,
) domain.ProgressRecord {
	reviewedAt := now
	dueAt := calculateNextDueDate(rating, now, params)

	return domain.ProgressRecord{
		Level:          domain.Level(rating),
		LastReviewedAt: &reviewedAt,
		NextDueAt:      &dueAt,
		ReviewCount:    record.ReviewCount + 1,
	}
}
