package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/scry-kanji/internal/api/shared"
	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/phrazzld/scry-kanji/internal/platform/logger"
	"github.com/phrazzld/scry-kanji/internal/session"
)

// SessionService is the subset of the session controller the API drives.
type SessionService interface {
	Current(ctx context.Context) session.View
	StartFromRequest(ctx context.Context, req domain.SessionRequest) (session.View, error)
	ResumeOrStart(ctx context.Context, req domain.SessionRequest) (session.View, error)
	StudyItem(ctx context.Context, itemID string) (session.View, error)
	Rate(ctx context.Context, rating domain.Rating) (session.View, error)
	Skip(ctx context.Context) (session.View, error)
	Next(ctx context.Context) (session.View, error)
	Previous(ctx context.Context) (session.View, error)
	Leave(ctx context.Context) error
}

// SessionHandler handles study session requests.
type SessionHandler struct {
	sessions SessionService
	logger   *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions SessionService, logger *slog.Logger) *SessionHandler {
	if sessions == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("session service cannot be nil for SessionHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "session_handler")),
	}
}

// GetSession handles GET /api/session.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.sessions.Current(r.Context()))
}

// StartSession handles POST /api/session. It discards any saved session.
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSessionRequest(w, r)
	if !ok {
		return
	}
	view, err := h.sessions.StartFromRequest(r.Context(), req)
	h.respond(w, r, http.StatusCreated, view, err, "Failed to start session")
}

// ResumeSession handles POST /api/session/resume. Without a saved session
// it starts a fresh one from the request body.
func (h *SessionHandler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSessionRequest(w, r)
	if !ok {
		return
	}
	view, err := h.sessions.ResumeOrStart(r.Context(), req)
	h.respond(w, r, http.StatusOK, view, err, "Failed to resume session")
}

// Rate handles POST /api/session/rate.
func (h *SessionHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var body RateRequest
	if err := shared.DecodeJSON(r, &body); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&body); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	view, err := h.sessions.Rate(r.Context(), domain.Rating(*body.Rating))
	h.respond(w, r, http.StatusOK, view, err, "Failed to rate item")
}

// Skip handles POST /api/session/skip.
func (h *SessionHandler) Skip(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Skip(r.Context())
	h.respond(w, r, http.StatusOK, view, err, "Failed to skip item")
}

// Next handles POST /api/session/next.
func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Next(r.Context())
	h.respond(w, r, http.StatusOK, view, err, "Failed to move forward")
}

// Previous handles POST /api/session/previous.
func (h *SessionHandler) Previous(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Previous(r.Context())
	h.respond(w, r, http.StatusOK, view, err, "Failed to move back")
}

// Leave handles POST /api/session/leave, saving the session for later.
func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Leave(r.Context()); err != nil {
		HandleAPIError(w, r, err, "Failed to save session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StudyItem handles POST /api/items/{id}/study, replacing the session with
// a single-item session.
func (h *SessionHandler) StudyItem(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	itemID, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || itemID == "" {
		log.Warn("invalid item id in path", slog.String("id", chi.URLParam(r, "id")))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Item ID is required")
		return
	}

	view, err := h.sessions.StudyItem(r.Context(), itemID)
	h.respond(w, r, http.StatusCreated, view, err, "Failed to study item")
}

func (h *SessionHandler) decodeSessionRequest(w http.ResponseWriter, r *http.Request) (domain.SessionRequest, bool) {
	var body SessionRequestBody
	if err := shared.DecodeJSON(r, &body); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
		HandleAPIError(w, r, err, "")
		return domain.SessionRequest{}, false
	}
	if err := shared.ValidateRequest(&body); err != nil {
		HandleAPIError(w, r, err, "")
		return domain.SessionRequest{}, false
	}
	return body.ToDomain(), true
}

func (h *SessionHandler) respond(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	view session.View,
	err error,
	fallback string,
) {
	if err != nil {
		HandleAPIError(w, r, err, fallback)
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("session transition",
		slog.String("state", view.State.String()),
		slog.Int("position", view.Position),
		slog.Int("length", view.Length))
	shared.RespondWithJSON(w, r, status, view)
}
