package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-kanji/internal/domain"
)

// MockDetailProvider implements detail.Provider for testing.
type MockDetailProvider struct {
	// FetchDetailFn overrides the default behavior when set.
	FetchDetailFn func(ctx context.Context, itemID string) (*domain.Detail, error)

	// Err is returned by every call when FetchDetailFn is nil.
	Err error

	mu    sync.Mutex
	calls []string
}

// FetchDetail implements detail.Provider. Without FetchDetailFn or Err it
// returns an available detail with one meaning equal to the item identity.
func (m *MockDetailProvider) FetchDetail(ctx context.Context, itemID string) (*domain.Detail, error) {
	m.mu.Lock()
	m.calls = append(m.calls, itemID)
	m.mu.Unlock()

	if m.FetchDetailFn != nil {
		return m.FetchDetailFn(ctx, itemID)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return SampleDetail(itemID), nil
}

// Calls returns the item identities requested so far, in call order.
func (m *MockDetailProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many times itemID was requested.
func (m *MockDetailProvider) CallCount(itemID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range m.calls {
		if id == itemID {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (m *MockDetailProvider) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

// SampleDetail builds an available detail tagged with itemID.
func SampleDetail(itemID string) *domain.Detail {
	return &domain.Detail{
		ItemID:      itemID,
		KunReadings: []string{"kun-" + itemID},
		OnReadings:  []string{"on-" + itemID},
		Meanings:    []string{itemID},
		Examples:    []domain.Example{{Form: itemID + "語", Definition: "example"}},
		Available:   true,
	}
}
