// Package memory provides an in-process store.BlobStore for tests and
// ephemeral study sessions that should not touch disk.
package memory

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-kanji/internal/store"
)

// BlobStore keeps payloads in a map guarded by a mutex.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ store.BlobStore = (*BlobStore)(nil)

// NewBlobStore returns an empty store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

// Get implements store.BlobStore.
func (s *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.blobs[key]
	if !ok {
		return nil, store.ErrBlobNotFound
	}
	return clone(payload), nil
}

// Put implements store.BlobStore.
func (s *BlobStore) Put(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = clone(payload)
	return nil
}

// PutMany implements store.BlobStore.
func (s *BlobStore) PutMany(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range entries {
		s.blobs[k] = clone(v)
	}
	return nil
}

// Delete implements store.BlobStore.
func (s *BlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)
	return nil
}

// Len returns the number of stored keys.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
