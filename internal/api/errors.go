package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-kanji/internal/api/shared"
	"github.com/phrazzld/scry-kanji/internal/domain"
)

// errImportNotConfirmed is returned when an import is attempted without confirmation.
var errImportNotConfirmed = errors.New("import replaces all progress and must be confirmed")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrNothingToResume),
		errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrSessionComplete),
		errors.Is(err, errImportNotConfirmed):
		return http.StatusConflict

	case errors.Is(err, domain.ErrEmptyQueue):
		return http.StatusUnprocessableEntity

	case errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrInvalidFilter),
		errors.Is(err, domain.ErrInvalidImport),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, shared.ErrInvalidBody),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrDetailUnavailable):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return "Item not found"
	case errors.Is(err, domain.ErrNothingToResume):
		return "No saved session to resume"
	case errors.Is(err, domain.ErrSessionNotActive):
		return "No active session"
	case errors.Is(err, domain.ErrSessionComplete):
		return "Session is complete"
	case errors.Is(err, errImportNotConfirmed):
		return "Import replaces all progress; repeat with confirm=true"
	case errors.Is(err, domain.ErrEmptyQueue):
		return "No items match the selected filters"
	case errors.Is(err, domain.ErrInvalidRating):
		return "Rating must be between 0 and 4"
	case errors.Is(err, domain.ErrInvalidFilter):
		return "Invalid filter or sort"
	case errors.Is(err, domain.ErrInvalidImport):
		return "Not a progress export"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, shared.ErrInvalidBody):
		return "Request body is not valid JSON"
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)
	case errors.Is(err, domain.ErrDetailUnavailable):
		return "Item detail is unavailable"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err. A non-empty
// fallback replaces the generic message of a 500.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
