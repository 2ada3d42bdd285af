package srs

import "github.com/phrazzld/scry-kanji/internal/domain"

// DefaultIntervals is the number of days until the next review, indexed by rating.
var DefaultIntervals = []int{1, 3, 7, 14, 30}

// DefaultFallbackDays is used when a rating has no entry in the interval table.
const DefaultFallbackDays = 1

// Params defines all configurable parameters for the interval scheduler
type Params struct {
	// Days until the next review, indexed by rating
	Intervals []int

	// Days used when the rating is outside the table
	FallbackDays int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	Intervals    []int
	FallbackDays int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	intervals := make([]int, len(DefaultIntervals))
	copy(intervals, DefaultIntervals)

	return &Params{
		Intervals:    intervals,
		FallbackDays: DefaultFallbackDays,
	}
}

// NewParams creates a new Params instance with custom configuration.
// Zero values in config keep the defaults.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if len(config.Intervals) > 0 {
		params.Intervals = make([]int, len(config.Intervals))
		copy(params.Intervals, config.Intervals)
	}
	if config.FallbackDays > 0 {
		params.FallbackDays = config.FallbackDays
	}

	return params
}

// IntervalDays returns the scheduled gap in days for a rating.
func (p *Params) IntervalDays(rating domain.Rating) int {
	idx := int(rating)
	if idx < 0 || idx >= len(p.Intervals) {
		return p.FallbackDays
	}
	return p.Intervals[idx]
}
