package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-kanji/internal/platform/logger"
	"github.com/phrazzld/scry-kanji/internal/redact"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// RespondWithJSON encodes data as the response body with the given status.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).WarnContext(r.Context(), "response not written",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
}

// RespondWithError replies with message and nothing else logged beyond the
// status.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	RespondWithErrorAndLog(w, r, status, message, nil)
}

// RespondWithErrorAndLog replies with userMessage and logs cause, redacted.
// The client never sees cause.
func RespondWithErrorAndLog(w http.ResponseWriter, r *http.Request, status int, userMessage string, cause error) {
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	attrs := []slog.Attr{
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("message", userMessage),
	}
	if cause != nil {
		attrs = append(attrs, slog.String("error", redact.Error(cause)))
	}
	logger.FromContext(ctx).LogAttrs(ctx, levelFor(status), "request failed", attrs...)

	RespondWithJSON(w, r, status, ErrorResponse{Error: userMessage, TraceID: traceID})
}

// levelFor logs server faults as errors and refused destructive actions
// (409) as warnings. Other client mistakes stay at debug.
func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status == http.StatusConflict:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}
