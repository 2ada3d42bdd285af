package store

import "context"

// Keys under which the application stores its blobs.
const (
	KeyItemProgress = "item_progress"
	KeySavedSession = "saved_session"
	KeyPreferences  = "preferences"
)

// BlobStore persists opaque byte payloads under string keys.
// Each key holds a single value; Put replaces it.
type BlobStore interface {
	// Get returns the payload stored under key.
	// Returns ErrNotFound if nothing is stored there.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores payload under key, replacing any previous value.
	Put(ctx context.Context, key string, payload []byte) error

	// PutMany stores several payloads atomically: either all are written or none.
	PutMany(ctx context.Context, entries map[string][]byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
