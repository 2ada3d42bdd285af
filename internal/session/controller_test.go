package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/scry-kanji/internal/catalog"
	"github.com/phrazzld/scry-kanji/internal/detail"
	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/phrazzld/scry-kanji/internal/domain/srs"
	"github.com/phrazzld/scry-kanji/internal/events"
	"github.com/phrazzld/scry-kanji/internal/mocks"
	"github.com/phrazzld/scry-kanji/internal/platform/logger"
	"github.com/phrazzld/scry-kanji/internal/platform/memory"
	"github.com/phrazzld/scry-kanji/internal/progress"
	"github.com/phrazzld/scry-kanji/internal/queue"
	"github.com/phrazzld/scry-kanji/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

var letters = []string{"A", "B", "C", "D", "E", "F", "G"}

type harness struct {
	ctrl     *Controller
	blobs    *memory.BlobStore
	items    *progress.Store
	provider *mocks.MockDetailProvider
	cache    *detail.Cache
	events   *events.Recorder
	catalog  *catalog.Catalog
}

func newHarness(t *testing.T, blobs *memory.BlobStore) *harness {
	t.Helper()
	if blobs == nil {
		blobs = memory.NewBlobStore()
	}
	log, _ := logger.GetTestLogger(t)

	items := make([]domain.Item, 0, len(letters)+1)
	for i, id := range append(append([]string{}, letters...), "X") {
		items = append(items, domain.Item{ID: id, FrequencyRank: domain.IntPtr(i + 1)})
	}
	cat := catalog.New(items)

	progressStore := progress.NewStore(blobs, log)
	require.NoError(t, progressStore.Load(context.Background(), cat))

	provider := &mocks.MockDetailProvider{}
	cache := detail.NewCache(provider, log)
	t.Cleanup(cache.Wait)

	rec := &events.Recorder{}
	emitter := events.NewDispatcher(log)
	emitter.Subscribe(rec)

	clock := func() time.Time { return fixedNow }
	ctrl, err := NewController(Deps{
		Catalog:   cat,
		Items:     progressStore,
		Builder:   queue.NewBuilder(cat, progressStore, queue.WithClock(clock)),
		Scheduler: srs.NewDefaultService(),
		Persister: NewPersister(blobs, log),
		Details:   cache,
		Emitter:   emitter,
		Logger:    log,
		Clock:     clock,
	})
	require.NoError(t, err)

	return &harness{
		ctrl:     ctrl,
		blobs:    blobs,
		items:    progressStore,
		provider: provider,
		cache:    cache,
		events:   rec,
		catalog:  cat,
	}
}

func (h *harness) savedSession(t *testing.T) *domain.SavedSession {
	t.Helper()
	snap, err := NewPersister(h.blobs, nil).Load(context.Background())
	if err != nil {
		require.ErrorIs(t, err, domain.ErrNothingToResume)
		return nil
	}
	return snap
}

func TestRateAgainReinsertsScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.ctrl.Start(ctx, letters, domain.SessionRequest{})
	require.NoError(t, err)
	_, err = h.ctrl.Next(ctx)
	require.NoError(t, err)
	v, err := h.ctrl.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "C", v.ItemID)

	v, err = h.ctrl.Rate(ctx, domain.RatingUnknown)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "D", "E", "F", "C", "G"}, v.Queue)
	assert.Equal(t, 2, v.Position)
	assert.Equal(t, "D", v.ItemID)
	assert.Equal(t, StateActive, v.State)
	assert.Equal(t, "3 / 7", v.Counter)

	rec := h.items.Get("C")
	assert.Equal(t, domain.LevelUnknown, rec.Level)
	assert.Equal(t, 1, rec.ReviewCount)
	require.NotNil(t, rec.NextDueAt)
	assert.Equal(t, fixedNow.AddDate(0, 0, 1), *rec.NextDueAt)

	saved := h.savedSession(t)
	require.NotNil(t, saved)
	assert.Equal(t, v.Queue, saved.Queue)
	assert.Equal(t, 2, saved.Position)
	assert.Equal(t, 1, h.events.Count(events.TypeItemRated))
}

func TestRateRetainedAdvances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, rating := range []domain.Rating{domain.RatingFamiliar, domain.RatingKnown, domain.RatingMastered} {
		h := newHarness(t, nil)
		_, err := h.ctrl.Start(ctx, letters, domain.SessionRequest{})
		require.NoError(t, err)

		v, err := h.ctrl.Rate(ctx, rating)
		require.NoError(t, err)
		assert.Equal(t, letters, v.Queue, "rating %d", rating)
		assert.Equal(t, 1, v.Position)
		assert.Equal(t, "B", v.ItemID)
		assert.Equal(t, domain.Level(rating), h.items.Get("A").Level)
	}
}

func TestRateRejectsInvalidRating(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)
	_, err := h.ctrl.Start(ctx, letters, domain.SessionRequest{})
	require.NoError(t, err)

	_, err = h.ctrl.Rate(ctx, domain.Rating(7))
	assert.ErrorIs(t, err, domain.ErrInvalidRating)
	assert.Equal(t, 0, h.items.Get("A").ReviewCount)
}

func TestSingleItemCompletion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.ctrl.Start(ctx, []string{"X"}, domain.SessionRequest{})
	require.NoError(t, err)
	require.NotNil(t, h.savedSession(t))

	v, err := h.ctrl.Rate(ctx, domain.RatingMastered)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, v.State)
	assert.Equal(t, 1, v.Position)
	assert.Equal(t, 1, v.Length)
	assert.Empty(t, v.ItemID)
	assert.Nil(t, h.savedSession(t), "completion clears the saved session")
	assert.Equal(t, 1, h.events.Count(events.TypeSessionCompleted))

	_, err = h.ctrl.Rate(ctx, domain.RatingKnown)
	assert.ErrorIs(t, err, domain.ErrSessionComplete)
	_, err = h.ctrl.Skip(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionComplete)
	_, err = h.ctrl.Next(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionComplete)
	_, err = h.ctrl.Previous(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionComplete)

	assert.Equal(t, 1, h.events.Count(events.TypeSessionCompleted), "completion is reported exactly once")
	assert.Equal(t, 1, h.items.Get("X").ReviewCount)
	assert.Equal(t, StateComplete, h.ctrl.Current(ctx).State)
}

func TestFailedSingleItemStaysCurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.ctrl.Start(ctx, []string{"X"}, domain.SessionRequest{})
	require.NoError(t, err)

	v, err := h.ctrl.Rate(ctx, domain.RatingLearning)
	require.NoError(t, err)
	assert.Equal(t, StateActive, v.State)
	assert.Equal(t, "X", v.ItemID)
	assert.Equal(t, 0, v.Position)
}

func TestSkipLeavesProgressUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.ctrl.Start(ctx, []string{"A", "B"}, domain.SessionRequest{})
	require.NoError(t, err)

	v, err := h.ctrl.Skip(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", v.ItemID)
	assert.Equal(t, domain.DefaultProgressRecord(), h.items.Get("A"))
	assert.Equal(t, 0, h.events.Count(events.TypeItemRated))

	v, err = h.ctrl.Skip(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, v.State)
	assert.Equal(t, 1, h.events.Count(events.TypeSessionCompleted))
}

func TestNavigationIsBounded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.ctrl.Start(ctx, []string{"A", "B", "C"}, domain.SessionRequest{})
	require.NoError(t, err)

	v, err := h.ctrl.Previous(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Position)

	for range 5 {
		v, err = h.ctrl.Next(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, v.Position)
	assert.Equal(t, StateActive, v.State, "next never completes the session")
	assert.Equal(t, []string{"A", "B", "C"}, v.Queue)

	for _, id := range []string{"A", "B", "C"} {
		assert.Equal(t, 0, h.items.Get(id).ReviewCount)
	}
	assert.Equal(t, 2, h.savedSession(t).Position)
}

func TestOperationsRequireActiveSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	assert.Equal(t, StateIdle, h.ctrl.State())
	_, err := h.ctrl.Rate(ctx, domain.RatingKnown)
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
	_, err = h.ctrl.Skip(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
	_, err = h.ctrl.Next(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
	_, err = h.ctrl.Previous(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
	assert.NoError(t, h.ctrl.Leave(ctx))
	assert.Equal(t, StateIdle, h.ctrl.Current(ctx).State)
}

func TestStartFromRequestEmptyQueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.ctrl.StartFromRequest(ctx, domain.SessionRequest{
		Filters: domain.Filters{JLPT: domain.IntPtr(1)},
	})
	assert.ErrorIs(t, err, domain.ErrEmptyQueue)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Nil(t, h.savedSession(t))

	_, err = h.ctrl.Start(ctx, nil, domain.SessionRequest{})
	assert.ErrorIs(t, err, domain.ErrEmptyQueue)
}

func TestStartFromRequestAppliesSortAndLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	req := domain.SessionRequest{Sort: domain.SortFrequency, Limit: 3}
	v, err := h.ctrl.StartFromRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, v.Queue)
	assert.Equal(t, req, v.Request)
}

func TestResumeRestoresSavedSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	blobs := memory.NewBlobStore()
	first := newHarness(t, blobs)

	req := domain.SessionRequest{Filters: domain.Filters{Proficiency: domain.BucketUnknown}, Sort: domain.SortFrequency}
	started, err := first.ctrl.StartFromRequest(ctx, req)
	require.NoError(t, err)
	_, err = first.ctrl.Rate(ctx, domain.RatingUnknown)
	require.NoError(t, err)
	left, err := first.ctrl.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, first.ctrl.Leave(ctx))

	second := newHarness(t, blobs)
	v, err := second.ctrl.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, started.SessionID, v.SessionID)
	assert.Equal(t, left.Queue, v.Queue)
	assert.Equal(t, left.Position, v.Position)
	assert.Equal(t, req, v.Request)
	assert.Equal(t, StateActive, second.ctrl.State())
}

func TestResumeOrStart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.ctrl.Resume(ctx)
	assert.ErrorIs(t, err, domain.ErrNothingToResume)

	v, err := h.ctrl.ResumeOrStart(ctx, domain.SessionRequest{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, v.Queue)

	_, err = h.ctrl.Skip(ctx)
	require.NoError(t, err)

	again, err := h.ctrl.ResumeOrStart(ctx, domain.SessionRequest{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, v.SessionID, again.SessionID)
	assert.Equal(t, 1, again.Position)
}

func TestResumeOrStartSurvivesUnreadableSavedSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)
	h.ctrl.persister = NewPersister(&failingBlobStore{BlobStore: h.blobs, key: store.KeySavedSession}, nil)

	v, err := h.ctrl.ResumeOrStart(ctx, domain.SessionRequest{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, v.Queue)
	assert.Equal(t, StateActive, h.ctrl.State())
}

func TestStudyItemOverride(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.ctrl.Start(ctx, letters, domain.SessionRequest{Sort: domain.SortLevel})
	require.NoError(t, err)
	first := h.savedSession(t)
	require.NotNil(t, first)

	_, err = h.ctrl.StudyItem(ctx, "Z")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	v, err := h.ctrl.StudyItem(ctx, "E")
	require.NoError(t, err)
	assert.Equal(t, []string{"E"}, v.Queue)
	assert.Equal(t, 0, v.Position)
	assert.Equal(t, StateActive, v.State)
	assert.Equal(t, domain.SortLevel, v.Request.Sort)

	saved := h.savedSession(t)
	require.NotNil(t, saved)
	assert.NotEqual(t, first.ID, saved.ID, "the earlier saved session is discarded")
	assert.Equal(t, []string{"E"}, saved.Queue)
}

func TestLeaveSavesActiveSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.ctrl.Start(ctx, letters, domain.SessionRequest{})
	require.NoError(t, err)
	require.NoError(t, h.blobs.Delete(ctx, store.KeySavedSession))

	require.NoError(t, h.ctrl.Leave(ctx))
	saved := h.savedSession(t)
	require.NotNil(t, saved)
	assert.Equal(t, letters, saved.Queue)
}

func TestPrefetchedDetailIsServed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	v, err := h.ctrl.Start(ctx, letters, domain.SessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "A", v.Detail.ItemID)
	h.cache.Wait()

	v, err = h.ctrl.Rate(ctx, domain.RatingKnown)
	require.NoError(t, err)
	assert.Equal(t, "B", v.Detail.ItemID)
	assert.Equal(t, 1, h.provider.CallCount("B"), "B came from the prefetch slot")

	cur := h.ctrl.Current(ctx)
	assert.Equal(t, "B", cur.Detail.ItemID)
	assert.Equal(t, 1, h.provider.CallCount("B"), "current view reuses the rendered detail")
}

func TestDetailNeverShownForWrongItem(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.ctrl.Start(ctx, letters, domain.SessionRequest{})
	require.NoError(t, err)
	_, err = h.ctrl.Next(ctx)
	require.NoError(t, err)
	h.cache.Wait()
	require.True(t, h.cache.Peek("C"))

	v, err := h.ctrl.Previous(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", v.ItemID)
	assert.Equal(t, "A", v.Detail.ItemID)

	// re-insertion on the last item leaves it current with nothing prefetched
	_, err = h.ctrl.StudyItem(ctx, "G")
	require.NoError(t, err)
	v, err = h.ctrl.Rate(ctx, domain.RatingUnknown)
	require.NoError(t, err)
	assert.Equal(t, "G", v.Detail.ItemID)
}

func TestDetailFailureDoesNotBlockRating(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)
	h.provider.Err = domain.ErrDetailUnavailable

	v, err := h.ctrl.Start(ctx, []string{"A", "B"}, domain.SessionRequest{})
	require.NoError(t, err)
	require.NotNil(t, v.Detail)
	assert.False(t, v.Detail.Available)

	v, err = h.ctrl.Rate(ctx, domain.RatingKnown)
	require.NoError(t, err)
	assert.Equal(t, "B", v.ItemID)
	assert.Equal(t, domain.LevelKnown, h.items.Get("A").Level)
}

func TestConcurrentTransitionsAreSerialized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, nil)

	queue := make([]string, 0, 70)
	for range 10 {
		queue = append(queue, letters...)
	}
	_, err := h.ctrl.Start(ctx, queue, domain.SessionRequest{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.ctrl.Skip(ctx)
		}()
	}
	wg.Wait()

	v := h.ctrl.Current(ctx)
	assert.Equal(t, 30, v.Position)
	assert.Equal(t, 30, h.savedSession(t).Position)
}

func TestNewControllerRequiresDeps(t *testing.T) {
	t.Parallel()
	_, err := NewController(Deps{})
	assert.Error(t, err)
}
