// Package srs implements the long-term scheduler: it turns a rating into an
// updated progress record with a next-due date taken from a fixed interval table.
package srs

import (
	"fmt"
	"time"

	"github.com/phrazzld/scry-kanji/internal/domain"
)

// Service defines the interface for long-term scheduling operations
type Service interface {
	// ApplyRating computes the record that results from rating an item at now
	ApplyRating(
		record domain.ProgressRecord,
		rating domain.Rating,
		now time.Time,
	) (domain.ProgressRecord, error)

	// IntervalDays reports how many days a rating defers the next review
	IntervalDays(rating domain.Rating) int
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new scheduler with the default interval table
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new scheduler with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// ApplyRating implements the Service interface
func (s *defaultService) ApplyRating(
	record domain.ProgressRecord,
	rating domain.Rating,
	now time.Time,
) (domain.ProgressRecord, error) {
	if !rating.Valid() {
		return record, fmt.Errorf("%w: %d", domain.ErrInvalidRating, rating)
	}

	return calculateNextRecord(record, rating, now, s.params), nil
}

// IntervalDays implements the Service interface
func (s *defaultService) IntervalDays(rating domain.Rating) int {
	return s.params.IntervalDays(rating)
}
