package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/phrazzld/scry-kanji/internal/store"
)

// Persister keeps the single saved-session slot. Writes are last-write-wins.
type Persister struct {
	blobs  store.BlobStore
	logger *slog.Logger
	now    func() time.Time
}

// NewPersister creates a Persister over blobs.
func NewPersister(blobs store.BlobStore, logger *slog.Logger) *Persister {
	if blobs == nil {
		panic("blob store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{
		blobs:  blobs,
		logger: logger.With(slog.String("component", "session_persister")),
		now:    time.Now,
	}
}

// Save writes snap if its queue is non-empty and its position is inside the
// queue. A finished or empty session is never written; Save then does nothing.
func (p *Persister) Save(ctx context.Context, snap domain.SavedSession) error {
	if len(snap.Queue) == 0 || snap.Position >= len(snap.Queue) {
		return nil
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = p.now().UTC()
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding saved session: %w", err)
	}
	if err := p.blobs.Put(ctx, store.KeySavedSession, payload); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Clear removes the saved session, if any.
func (p *Persister) Clear(ctx context.Context) error {
	if err := p.blobs.Delete(ctx, store.KeySavedSession); err != nil {
		return fmt.Errorf("clearing saved session: %w", err)
	}
	return nil
}

// Load returns the saved session. It returns domain.ErrNothingToResume when the
// slot is empty, cannot be read, or holds something that does not describe a
// resumable session; everything but an empty slot is logged.
func (p *Persister) Load(ctx context.Context) (*domain.SavedSession, error) {
	raw, err := p.blobs.Get(ctx, store.KeySavedSession)
	if store.IsNotFoundError(err) {
		return nil, domain.ErrNothingToResume
	}
	if err != nil {
		p.logger.WarnContext(ctx, "saved session unavailable, starting fresh",
			slog.String("error", err.Error()))
		return nil, domain.ErrNothingToResume
	}

	var snap domain.SavedSession
	if err := json.Unmarshal(raw, &snap); err != nil {
		p.logger.WarnContext(ctx, "ignoring unreadable saved session",
			slog.String("error", fmt.Errorf("%w: %v", domain.ErrMalformedPersistedState, err).Error()))
		return nil, domain.ErrNothingToResume
	}
	if err := snap.Validate(); err != nil {
		p.logger.WarnContext(ctx, "ignoring invalid saved session", slog.String("error", err.Error()))
		return nil, domain.ErrNothingToResume
	}
	if err := snap.Request.Validate(); err != nil {
		p.logger.WarnContext(ctx, "saved session has unusable filters, resetting them",
			slog.String("error", err.Error()))
		snap.Request = domain.SessionRequest{}
	}
	return &snap, nil
}
