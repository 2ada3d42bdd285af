package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/scry-kanji/internal/catalog"
	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/phrazzld/scry-kanji/internal/store"
)

// Store holds every item's progress record.
type Store struct {
	mu      sync.RWMutex
	blobs   store.BlobStore
	records map[string]domain.ProgressRecord
	logger  *slog.Logger
}

// NewStore creates an empty item store persisting to blobs.
// It panics if blobs is nil.
func NewStore(blobs store.BlobStore, logger *slog.Logger) *Store {
	if blobs == nil {
		panic("blob store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		blobs:   blobs,
		records: make(map[string]domain.ProgressRecord),
		logger:  logger.With(slog.String("component", "item_store")),
	}
}

// Load reads the persisted item store.
//
// When nothing has been saved yet, every catalog item is initialized with a
// default record and the result is saved. When the saved blob cannot be
// decoded, a warning is logged and all items read as defaults; the broken
// blob is left in place until the next mutation overwrites it.
// Only storage failures are returned.
func (s *Store) Load(ctx context.Context, cat *catalog.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.blobs.Get(ctx, store.KeyItemProgress)
	switch {
	case store.IsNotFoundError(err):
		s.records = make(map[string]domain.ProgressRecord, cat.Len())
		for _, id := range cat.IDs() {
			s.records[id] = domain.DefaultProgressRecord()
		}
		s.logger.Info("initialized progress for catalog", slog.Int("items", len(s.records)))
		return s.saveLocked(ctx)
	case err != nil:
		return fmt.Errorf("loading item progress: %w", err)
	}

	records, err := decodeRecords(raw)
	if err != nil {
		s.logger.Warn("stored progress is unreadable, using defaults",
			slog.String("error", err.Error()))
		s.records = make(map[string]domain.ProgressRecord)
		return nil
	}

	s.records = records
	s.logger.Debug("progress loaded", slog.Int("records", len(records)))
	return nil
}

func decodeRecords(raw []byte) (map[string]domain.ProgressRecord, error) {
	var records map[string]domain.ProgressRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPersistedState, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: progress is not an object", domain.ErrMalformedPersistedState)
	}
	for id, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: record %q: %v", domain.ErrMalformedPersistedState, id, err)
		}
	}
	return records, nil
}

// Get returns the record for id, or the default record if none exists.
func (s *Store) Get(id string) domain.ProgressRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.records[id]; ok {
		return rec
	}
	return domain.DefaultProgressRecord()
}

// Put stores rec for id and saves the item store. The in-memory update is kept
// even if saving fails; the error is returned so the caller can report it.
func (s *Store) Put(ctx context.Context, id string, rec domain.ProgressRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[id] = rec
	return s.saveLocked(ctx)
}

// Snapshot returns a copy of every stored record.
func (s *Store) Snapshot() map[string]domain.ProgressRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.ProgressRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = rec
	}
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) saveLocked(ctx context.Context) error {
	payload, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("encoding item progress: %w", err)
	}
	if err := s.blobs.Put(ctx, store.KeyItemProgress, payload); err != nil {
		s.logger.Error("failed to save progress", slog.String("error", err.Error()))
		return fmt.Errorf("saving item progress: %w", err)
	}
	return nil
}

// Preferences returns the stored display preferences, or the defaults.
// Unreadable preferences are logged and replaced by the defaults.
func (s *Store) Preferences(ctx context.Context) (domain.Preferences, error) {
	raw, err := s.RawPreferences(ctx)
	if err != nil {
		return domain.DefaultPreferences(), err
	}
	prefs, err := domain.ParsePreferences(raw)
	if err != nil {
		s.logger.Warn("stored preferences are unreadable, using defaults",
			slog.String("error", err.Error()))
	}
	return prefs, nil
}

// RawPreferences returns the stored preferences blob, or nil if there is none.
func (s *Store) RawPreferences(ctx context.Context) (json.RawMessage, error) {
	raw, err := s.blobs.Get(ctx, store.KeyPreferences)
	if store.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	return raw, nil
}

// SavePreferences stores prefs.
func (s *Store) SavePreferences(ctx context.Context, prefs domain.Preferences) error {
	payload, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, store.KeyPreferences, payload); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}
