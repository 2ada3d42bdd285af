package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain value fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyQueue is returned when a session request matches no items.
	// Callers render a "no items match" state instead of starting a session.
	ErrEmptyQueue = errors.New("no items match the selected filters")

	// ErrDetailUnavailable is returned when item detail could not be fetched.
	// The study card is still shown, without detail.
	ErrDetailUnavailable = errors.New("item detail unavailable")

	// ErrInvalidImport is returned when an import payload is not a progress export.
	ErrInvalidImport = errors.New("invalid import payload")

	// ErrMalformedPersistedState is returned when stored progress or session
	// data cannot be decoded. Callers fall back to defaults.
	ErrMalformedPersistedState = errors.New("malformed persisted state")

	// ErrInvalidRating is returned when a rating is outside 0..4.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrItemNotFound is returned when an item ID is not in the catalog.
	ErrItemNotFound = errors.New("item not found in catalog")

	// ErrInvalidFilter is returned when a filter or sort value is not recognized.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrSessionNotActive is returned when a session operation is attempted
	// without an active session.
	ErrSessionNotActive = errors.New("no active session")

	// ErrSessionComplete is returned for navigation or rating after the
	// session has reached its end.
	ErrSessionComplete = errors.New("session complete")

	// ErrNothingToResume is returned when no saved session exists.
	ErrNothingToResume = errors.New("no saved session")
)
