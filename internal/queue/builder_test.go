package queue

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/phrazzld/scry-kanji/internal/catalog"
	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeProgress map[string]domain.ProgressRecord

func (f fakeProgress) Get(id string) domain.ProgressRecord {
	if rec, ok := f[id]; ok {
		return rec
	}
	return domain.DefaultProgressRecord()
}

func due(offset time.Duration) *time.Time {
	t := now.Add(offset)
	return &t
}

func item(id string, freq, grade, jlpt, strokes int) domain.Item {
	it := domain.Item{ID: id}
	if freq > 0 {
		it.FrequencyRank = domain.IntPtr(freq)
	}
	if grade > 0 {
		it.Grade = domain.IntPtr(grade)
	}
	if jlpt > 0 {
		it.JLPTLevel = domain.IntPtr(jlpt)
	}
	if strokes > 0 {
		it.StrokeCount = domain.IntPtr(strokes)
	}
	return it
}

func fixture() (*catalog.Catalog, fakeProgress) {
	cat := catalog.New([]domain.Item{
		item("日", 1, 1, 5, 4),
		item("一", 2, 1, 5, 1),
		item("国", 3, 2, 4, 8),
		item("鬱", 0, 0, 0, 29),
		item("議", 50, 4, 3, 20),
		item("円", 0, 1, 5, 4),
		item("曜", 900, 2, 0, 18),
	})
	progress := fakeProgress{
		"日": {Level: domain.LevelKnown, NextDueAt: due(-time.Hour), ReviewCount: 3},
		"一": {Level: domain.LevelLearning, NextDueAt: due(48 * time.Hour), ReviewCount: 1},
		"国": {Level: domain.LevelLearning, NextDueAt: due(0), ReviewCount: 1},
		"議": {Level: domain.LevelMastered, NextDueAt: due(-24 * time.Hour), ReviewCount: 6},
	}
	return cat, progress
}

func newTestBuilder() *Builder {
	cat, progress := fixture()
	return NewBuilder(cat, progress,
		WithClock(func() time.Time { return now }),
		WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestBuildFilters(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()

	tests := []struct {
		name    string
		filters domain.Filters
		want    []string
	}{
		{"no filters", domain.Filters{}, []string{"日", "一", "国", "鬱", "議", "円", "曜"}},
		{"unknown", domain.Filters{Proficiency: domain.BucketUnknown}, []string{"鬱", "円", "曜"}},
		{"learning", domain.Filters{Proficiency: domain.BucketLearning}, []string{"一", "国"}},
		{"known", domain.Filters{Proficiency: domain.BucketKnown}, []string{"日"}},
		{"due includes now and mastered", domain.Filters{Proficiency: domain.BucketDue}, []string{"日", "国", "議"}},
		{"jlpt exact", domain.Filters{JLPT: domain.IntPtr(5)}, []string{"日", "一", "円"}},
		{"grade exact", domain.Filters{Grade: domain.IntPtr(2)}, []string{"国", "曜"}},
		{"strokes 1-5", domain.Filters{Strokes: domain.Strokes1To5}, []string{"日", "一", "円"}},
		{"strokes 16-20", domain.Filters{Strokes: domain.Strokes16To20}, []string{"議", "曜"}},
		{"strokes 21+", domain.Filters{Strokes: domain.Strokes21AndUp}, []string{"鬱"}},
		{"conjunctive", domain.Filters{Proficiency: domain.BucketDue, JLPT: domain.IntPtr(5), Strokes: domain.Strokes1To5}, []string{"日"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := b.Build(domain.SessionRequest{Filters: tt.filters})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildConjunctionProperty(t *testing.T) {
	t.Parallel()
	cat, progress := fixture()
	b := newTestBuilder()

	filterSets := []domain.Filters{
		{Proficiency: domain.BucketLearning, Grade: domain.IntPtr(2)},
		{JLPT: domain.IntPtr(5), Grade: domain.IntPtr(1), Strokes: domain.Strokes1To5},
		{Proficiency: domain.BucketDue, Strokes: domain.Strokes16To20},
	}

	for _, f := range filterSets {
		got, err := b.Build(domain.SessionRequest{Filters: f})
		require.NoError(t, err)

		selected := make(map[string]bool, len(got))
		for _, id := range got {
			selected[id] = true
		}
		for _, it := range cat.Items() {
			assert.Equal(t, Matches(it, progress.Get(it.ID), f, now), selected[it.ID],
				"item %s with filters %+v", it.ID, f)
		}
	}
}

func TestBuildEmptyQueue(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()

	_, err := b.Build(domain.SessionRequest{Filters: domain.Filters{JLPT: domain.IntPtr(1)}})
	assert.ErrorIs(t, err, domain.ErrEmptyQueue)

	empty := NewBuilder(catalog.Empty(), fakeProgress{})
	_, err = empty.Build(domain.SessionRequest{})
	assert.ErrorIs(t, err, domain.ErrEmptyQueue)
}

func TestBuildRejectsInvalidRequest(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()
	_, err := b.Build(domain.SessionRequest{Sort: "alphabetical"})
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)
}

func TestBuildFrequencySortIsStable(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()

	got, err := b.Build(domain.SessionRequest{Sort: domain.SortFrequency})
	require.NoError(t, err)
	// 鬱 and 円 have no rank and keep catalog order after everything ranked
	assert.Equal(t, []string{"日", "一", "国", "議", "曜", "鬱", "円"}, got)
}

func TestBuildLevelSortBreaksTiesByCatalogOrder(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()

	got, err := b.Build(domain.SessionRequest{Sort: domain.SortLevel})
	require.NoError(t, err)
	assert.Equal(t, []string{"鬱", "円", "曜", "一", "国", "日", "議"}, got)
}

func TestBuildLimitAppliesAfterSort(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()

	got, err := b.Build(domain.SessionRequest{
		Filters: domain.Filters{Proficiency: domain.BucketUnknown},
		Sort:    domain.SortFrequency,
		Limit:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"曜", "鬱"}, got)

	all, err := b.Build(domain.SessionRequest{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestBuildRandomIsAPermutation(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()

	got, err := b.Build(domain.SessionRequest{Sort: domain.SortRandom})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"日", "一", "国", "鬱", "議", "円", "曜"}, got)

	// same seed, same permutation
	again := newTestBuilder()
	repeat, err := again.Build(domain.SessionRequest{Sort: domain.SortRandom})
	require.NoError(t, err)
	assert.Equal(t, got, repeat)
}

func TestBuildRandomCoversPermutations(t *testing.T) {
	t.Parallel()
	cat := catalog.New([]domain.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	b := NewBuilder(cat, fakeProgress{}, WithRand(rand.New(rand.NewPCG(7, 7))))

	seen := make(map[string]int)
	for i := 0; i < 600; i++ {
		q, err := b.Build(domain.SessionRequest{Sort: domain.SortRandom})
		require.NoError(t, err)
		seen[q[0]+q[1]+q[2]]++
	}
	require.Len(t, seen, 6)
	for perm, n := range seen {
		assert.Greater(t, n, 50, "permutation %s drawn %d times", perm, n)
	}
}
