package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/phrazzld/scry-kanji/internal/redact"
	"github.com/phrazzld/scry-kanji/internal/store"
)

// BlobStore implements store.BlobStore using a single blobs table.
type BlobStore struct {
	db     *sql.DB
	target Target
	logger *slog.Logger
	now    func() time.Time
}

// Ensure BlobStore implements store.BlobStore interface
var _ store.BlobStore = (*BlobStore)(nil)

// Open connects to the database at rawURL, applies pending migrations and
// returns a ready BlobStore. Close releases the connection.
func Open(ctx context.Context, rawURL string, logger *slog.Logger) (*BlobStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	target, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, target)
	if err != nil {
		return nil, err
	}

	migrator, err := NewMigrator(db, target.Dialect, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrator.Up(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("database ready",
		slog.String("driver", target.Driver),
		slog.String("url", redact.URL(rawURL)))

	return NewBlobStore(db, target, logger), nil
}

// NewBlobStore wraps an already migrated database.
// It panics if db is nil.
func NewBlobStore(db *sql.DB, target Target, logger *slog.Logger) *BlobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{
		db:     db,
		target: target,
		logger: logger.With(slog.String("component", "blob_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DB returns the underlying database handle.
func (s *BlobStore) DB() *sql.DB {
	return s.db
}

// Target returns the parsed database URL the store was opened with.
func (s *BlobStore) Target() Target {
	return s.target
}

// Close closes the database connection.
func (s *BlobStore) Close() error {
	return s.db.Close()
}

// Get implements store.BlobStore.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM blobs WHERE blob_key = $1`, key).Scan(&payload)
	if err != nil {
		err = MapError(err)
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrBlobNotFound
		}
		s.logger.Error("failed to read blob", slog.String("key", key), slog.String("error", err.Error()))
		return nil, store.NewBlobError("get", key, err)
	}
	return []byte(payload), nil
}

// Put implements store.BlobStore.
func (s *BlobStore) Put(ctx context.Context, key string, payload []byte) error {
	if err := putBlob(ctx, s.db, key, payload, s.now()); err != nil {
		s.logger.Error("failed to write blob", slog.String("key", key), slog.String("error", err.Error()))
		return store.NewBlobError("put", key, err)
	}
	s.logger.Debug("blob written", slog.String("key", key), slog.Int("bytes", len(payload)))
	return nil
}

// PutMany implements store.BlobStore. All entries are written in one transaction.
func (s *BlobStore) PutMany(ctx context.Context, entries map[string][]byte) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := s.now()
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		for _, k := range keys {
			if err := putBlob(ctx, tx, k, entries[k], now); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return store.NewBlobError("put_many", "", errors.Join(store.ErrTransactionFailed, err))
	}
	return nil
}

// Delete implements store.BlobStore.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE blob_key = $1`, key); err != nil {
		return store.NewBlobError("delete", key, MapError(err))
	}
	return nil
}

func putBlob(ctx context.Context, q store.DBTX, key string, payload []byte, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO blobs (blob_key, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (blob_key) DO UPDATE
		SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, string(payload), now)
	return MapError(err)
}
