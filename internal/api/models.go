package api

import (
	"time"

	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/phrazzld/scry-kanji/internal/progress"
	"github.com/phrazzld/scry-kanji/internal/queue"
)

// SessionRequestBody is the payload for starting or resuming a session.
// An empty body selects every item in catalog order.
type SessionRequestBody struct {
	Proficiency domain.ProficiencyBucket `json:"proficiency,omitempty"`
	JLPT        *int                     `json:"jlpt,omitempty"    validate:"omitempty,min=1,max=5"`
	Grade       *int                     `json:"grade,omitempty"   validate:"omitempty,min=1"`
	Strokes     domain.StrokeBand        `json:"strokes,omitempty"`
	Sort        domain.SortPolicy        `json:"sort,omitempty"`
	Limit       int                      `json:"limit,omitempty"   validate:"gte=0"`
}

// ToDomain converts the body into a session request.
func (b SessionRequestBody) ToDomain() domain.SessionRequest {
	return domain.SessionRequest{
		Filters: domain.Filters{
			Proficiency: b.Proficiency,
			JLPT:        b.JLPT,
			Grade:       b.Grade,
			Strokes:     b.Strokes,
		},
		Sort:  b.Sort,
		Limit: b.Limit,
	}
}

// Validate checks the filter and sort names.
func (b SessionRequestBody) Validate() error {
	return b.ToDomain().Validate()
}

// RateRequest defines the payload for rating the current item.
type RateRequest struct {
	Rating *int `json:"rating" validate:"required,min=0,max=4"`
}

// StatsResponse combines level counts and filter counts.
type StatsResponse struct {
	Levels  progress.LevelCounts  `json:"levels"`
	Filters progress.FilterCounts `json:"filters"`
}

// GridResponse lists every catalog item in the requested order.
type GridResponse struct {
	Sort  queue.GridSort   `json:"sort"`
	Items []queue.GridCell `json:"items"`
}

// ImportResponse reports what an import replaced.
type ImportResponse struct {
	Records       int       `json:"records"`
	Preferences   bool      `json:"preferences"`
	FormatVersion string    `json:"formatVersion,omitempty"`
	ImportedAt    time.Time `json:"importedAt"`
}
