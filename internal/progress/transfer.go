package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/phrazzld/scry-kanji/internal/store"
)

// Export returns a snapshot of all progress and the stored preferences.
func (s *Store) Export(ctx context.Context, now time.Time) (*domain.ExportSnapshot, error) {
	prefs, err := s.RawPreferences(ctx)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = json.RawMessage(`{}`)
	}

	return &domain.ExportSnapshot{
		ItemProgress:  s.Snapshot(),
		Preferences:   prefs,
		ExportedAt:    now.UTC(),
		FormatVersion: domain.ExportFormatVersion,
	}, nil
}

// importEnvelope accepts both the current field names and the names used by
// exports from the browser version of the app.
type importEnvelope struct {
	ItemProgress      json.RawMessage `json:"itemProgress"`
	KanjiProgress     json.RawMessage `json:"kanjiProgress"`
	Preferences       json.RawMessage `json:"preferences"`
	TogglePreferences json.RawMessage `json:"togglePreferences"`
	ExportedAt        *time.Time      `json:"exportedAt"`
	ExportDate        *time.Time      `json:"exportDate"`
	FormatVersion     string          `json:"formatVersion"`
	Version           string          `json:"version"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func firstPresent(a, b json.RawMessage) json.RawMessage {
	if present(a) {
		return a
	}
	if present(b) {
		return b
	}
	return nil
}

// ParseImport validates an import payload without applying it.
// A payload without an item progress map is rejected with ErrInvalidImport.
func ParseImport(data []byte) (*domain.ExportSnapshot, error) {
	var env importEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImport, err)
	}

	rawProgress := firstPresent(env.ItemProgress, env.KanjiProgress)
	if rawProgress == nil {
		return nil, fmt.Errorf("%w: missing itemProgress", domain.ErrInvalidImport)
	}

	var records map[string]domain.ProgressRecord
	if err := json.Unmarshal(rawProgress, &records); err != nil {
		return nil, fmt.Errorf("%w: itemProgress: %v", domain.ErrInvalidImport, err)
	}
	for id, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: record %q: %v", domain.ErrInvalidImport, id, err)
		}
	}

	snap := &domain.ExportSnapshot{
		ItemProgress:  records,
		Preferences:   firstPresent(env.Preferences, env.TogglePreferences),
		FormatVersion: env.FormatVersion,
	}
	if snap.FormatVersion == "" {
		snap.FormatVersion = env.Version
	}
	switch {
	case env.ExportedAt != nil:
		snap.ExportedAt = *env.ExportedAt
	case env.ExportDate != nil:
		snap.ExportedAt = *env.ExportDate
	}

	if snap.Preferences != nil {
		if _, err := domain.ParsePreferences(snap.Preferences); err != nil {
			return nil, fmt.Errorf("%w: preferences: %v", domain.ErrInvalidImport, err)
		}
	}

	return snap, nil
}

// ApplyImport replaces the entire item store with the snapshot's progress.
// Records not in the snapshot are dropped, not merged. Preferences are
// replaced only when the snapshot carries them. Both blobs are written in one
// store operation; on failure the in-memory state is left unchanged.
func (s *Store) ApplyImport(ctx context.Context, snap *domain.ExportSnapshot) error {
	if snap == nil || snap.ItemProgress == nil {
		return fmt.Errorf("%w: missing itemProgress", domain.ErrInvalidImport)
	}

	records := make(map[string]domain.ProgressRecord, len(snap.ItemProgress))
	for id, rec := range snap.ItemProgress {
		records[id] = rec
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding imported progress: %w", err)
	}
	entries := map[string][]byte{store.KeyItemProgress: payload}
	if present(snap.Preferences) {
		entries[store.KeyPreferences] = snap.Preferences
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.PutMany(ctx, entries); err != nil {
		return fmt.Errorf("saving imported progress: %w", err)
	}
	s.records = records

	s.logger.Info("progress imported",
		slog.Int("records", len(records)),
		slog.String("format_version", snap.FormatVersion),
		slog.Bool("preferences", present(snap.Preferences)))
	return nil
}
