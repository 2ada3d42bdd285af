// Package queue builds study-session queues from the catalog and the item
// store: filter, then sort, then limit.
package queue

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/phrazzld/scry-kanji/internal/catalog"
	"github.com/phrazzld/scry-kanji/internal/domain"
)

// ProgressReader looks up an item's progress record. Missing records read as
// the default record.
type ProgressReader interface {
	Get(id string) domain.ProgressRecord
}

// Builder produces session queues. It never writes to either store.
type Builder struct {
	catalog  *catalog.Catalog
	progress ProgressReader
	now      func() time.Time

	// rand.Rand is not safe for concurrent use
	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the time source used by the due-for-review filter.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithRand sets the random source used by the random sort.
func WithRand(rng *rand.Rand) Option {
	return func(b *Builder) { b.rng = rng }
}

// NewBuilder creates a Builder over cat and progress.
func NewBuilder(cat *catalog.Catalog, progress ProgressReader, opts ...Option) *Builder {
	b := &Builder{
		catalog:  cat,
		progress: progress,
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Matches reports whether an item with the given record passes every active filter.
// Items lacking the metadata a filter inspects fail that filter.
func Matches(item domain.Item, rec domain.ProgressRecord, f domain.Filters, now time.Time) bool {
	if !f.Proficiency.IsAll() {
		if f.Proficiency == domain.BucketDue {
			if !rec.IsDue(now) {
				return false
			}
		} else if level, ok := f.Proficiency.Level(); !ok || rec.Level != level {
			return false
		}
	}

	if f.JLPT != nil && (item.JLPTLevel == nil || *item.JLPTLevel != *f.JLPT) {
		return false
	}

	if f.Grade != nil && (item.Grade == nil || *item.Grade != *f.Grade) {
		return false
	}

	if !f.Strokes.IsAll() && (item.StrokeCount == nil || !f.Strokes.Contains(*item.StrokeCount)) {
		return false
	}

	return true
}

// Build returns the ordered item identities for req. Filtering happens first,
// then sorting, then truncation to req.Limit when it is positive.
// It returns domain.ErrEmptyQueue when nothing matches.
func (b *Builder) Build(req domain.SessionRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := b.now()
	items := b.catalog.Items()
	matched := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if Matches(item, b.progress.Get(item.ID), req.Filters, now) {
			matched = append(matched, item)
		}
	}

	if len(matched) == 0 {
		return nil, domain.ErrEmptyQueue
	}

	b.sort(matched, req.Sort)

	if req.Limit > 0 && req.Limit < len(matched) {
		matched = matched[:req.Limit]
	}

	queue := make([]string, len(matched))
	for i, item := range matched {
		queue[i] = item.ID
	}
	return queue, nil
}

func (b *Builder) sort(items []domain.Item, policy domain.SortPolicy) {
	switch policy {
	case domain.SortRandom:
		b.rngMu.Lock()
		b.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		b.rngMu.Unlock()
	case domain.SortFrequency:
		slices.SortStableFunc(items, func(a, b domain.Item) int {
			return cmp.Compare(a.Frequency(), b.Frequency())
		})
	case domain.SortLevel:
		levels := make(map[string]domain.Level, len(items))
		for _, item := range items {
			levels[item.ID] = b.progress.Get(item.ID).Level
		}
		slices.SortStableFunc(items, func(a, b domain.Item) int {
			return cmp.Compare(levels[a.ID], levels[b.ID])
		})
	default:
		// catalog order
	}
}
