// Package session runs a study session: a queue of items, a cursor, and the
// adaptive re-insertion of items the learner has not yet retained.
//
// Every transition (rate, skip, navigation, start, resume) mutates the queue
// and persists the result while holding the controller's lock. Rendering the
// new current item, which may wait on the detail provider, happens after the
// lock is released and then starts a prefetch for the following item.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/phrazzld/scry-kanji/internal/domain/srs"
	"github.com/phrazzld/scry-kanji/internal/events"
)

// ItemLookup reports whether an item exists in the catalog.
type ItemLookup interface {
	Contains(id string) bool
}

// ItemStore reads and writes progress records.
type ItemStore interface {
	Get(id string) domain.ProgressRecord
	Put(ctx context.Context, id string, rec domain.ProgressRecord) error
}

// QueueBuilder builds a queue from filter selections.
type QueueBuilder interface {
	Build(req domain.SessionRequest) ([]string, error)
}

// DetailSource serves display detail with one-ahead prefetch.
type DetailSource interface {
	Get(ctx context.Context, itemID string) *domain.Detail
	Prefetch(itemID string)
}

// Deps are the collaborators of a Controller. Details, Emitter, Logger and
// Clock are optional.
type Deps struct {
	Catalog   ItemLookup
	Items     ItemStore
	Builder   QueueBuilder
	Scheduler srs.Service
	Persister *Persister
	Details   DetailSource
	Emitter   events.EventEmitter
	Logger    *slog.Logger
	Clock     func() time.Time
}

type rendered struct {
	itemID string
	detail *domain.Detail
}

// Controller owns the single active study session. It is safe for
// concurrent use.
type Controller struct {
	catalog   ItemLookup
	items     ItemStore
	builder   QueueBuilder
	scheduler srs.Service
	persister *Persister
	details   DetailSource
	emitter   events.EventEmitter
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	id       uuid.UUID
	state    State
	queue    []string
	position int
	request  domain.SessionRequest
	rated    int
	skipped  int
	last     rendered
}

// NewController validates deps and returns an idle controller.
func NewController(d Deps) (*Controller, error) {
	switch {
	case d.Catalog == nil:
		return nil, errors.New("catalog cannot be nil")
	case d.Items == nil:
		return nil, errors.New("item store cannot be nil")
	case d.Builder == nil:
		return nil, errors.New("queue builder cannot be nil")
	case d.Scheduler == nil:
		return nil, errors.New("scheduler cannot be nil")
	case d.Persister == nil:
		return nil, errors.New("persister cannot be nil")
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Controller{
		catalog:   d.Catalog,
		items:     d.Items,
		builder:   d.Builder,
		scheduler: d.Scheduler,
		persister: d.Persister,
		details:   d.Details,
		emitter:   d.Emitter,
		logger:    logger.With(slog.String("component", "session")),
		now:       clock,
	}, nil
}

// Start installs queue at position 0 and discards any saved session.
// An empty queue returns domain.ErrEmptyQueue and leaves the controller as it was.
func (c *Controller) Start(ctx context.Context, queue []string, req domain.SessionRequest) (View, error) {
	if len(queue) == 0 {
		return View{}, domain.ErrEmptyQueue
	}

	c.mu.Lock()
	if err := c.persister.Clear(ctx); err != nil {
		c.logger.WarnContext(ctx, "could not clear saved session", slog.String("error", err.Error()))
	}
	c.install(uuid.New(), slices.Clone(queue), 0, req)
	c.persistLocked(ctx)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "session started",
		slog.String("session_id", snap.id.String()),
		slog.Int("length", len(snap.queue)))
	return c.render(ctx, snap), nil
}

// StartFromRequest builds a queue for req and starts it.
func (c *Controller) StartFromRequest(ctx context.Context, req domain.SessionRequest) (View, error) {
	queue, err := c.builder.Build(req)
	if err != nil {
		return View{}, err
	}
	return c.Start(ctx, queue, req)
}

// StudyItem replaces the session with a queue holding only itemID,
// bypassing every filter. The current filter selection is kept.
func (c *Controller) StudyItem(ctx context.Context, itemID string) (View, error) {
	if !c.catalog.Contains(itemID) {
		return View{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	c.mu.Lock()
	req := c.request
	c.mu.Unlock()
	return c.Start(ctx, []string{itemID}, req)
}

// Resume restores the saved session. It returns domain.ErrNothingToResume
// when there is none.
func (c *Controller) Resume(ctx context.Context) (View, error) {
	saved, err := c.persister.Load(ctx)
	if err != nil {
		return View{}, err
	}

	c.mu.Lock()
	id := saved.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	c.install(id, saved.Queue, saved.Position, saved.Request)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "session resumed",
		slog.String("session_id", snap.id.String()),
		slog.Int("position", snap.position),
		slog.Int("length", len(snap.queue)))
	return c.render(ctx, snap), nil
}

// ResumeOrStart resumes the saved session, or builds a fresh one from req when
// there is nothing to resume.
func (c *Controller) ResumeOrStart(ctx context.Context, req domain.SessionRequest) (View, error) {
	v, err := c.Resume(ctx)
	if errors.Is(err, domain.ErrNothingToResume) {
		return c.StartFromRequest(ctx, req)
	}
	return v, err
}

// Rate records rating for the current item and moves the session on.
//
// The long-term scheduler always updates the item's progress. Ratings 0 and 1
// push the item back into the queue and keep the position, so the following
// item becomes current; ratings 2 to 4 advance the position.
func (c *Controller) Rate(ctx context.Context, rating domain.Rating) (View, error) {
	if !rating.Valid() {
		return View{}, fmt.Errorf("%w: %d", domain.ErrInvalidRating, rating)
	}

	var pending []*events.Event
	snap, err := c.transition(ctx, &pending, func() error {
		itemID := c.queue[c.position]
		now := c.now()

		updated, err := c.scheduler.ApplyRating(c.items.Get(itemID), rating, now)
		if err != nil {
			return err
		}
		if err := c.items.Put(ctx, itemID, updated); err != nil {
			c.logger.ErrorContext(ctx, "progress not saved",
				slog.String("item", itemID),
				slog.String("error", err.Error()))
		}

		payload := events.ItemRatedPayload{
			SessionID: c.id,
			ItemID:    itemID,
			Rating:    int(rating),
		}
		if updated.NextDueAt != nil {
			payload.NextDueAt = *updated.NextDueAt
		}

		if rating.Retained() {
			c.position++
		} else {
			c.queue, payload.InsertIndex = Reinsert(c.queue, c.position)
			payload.Reinserted = true
		}
		c.rated++

		c.queueEvent(ctx, &pending, events.TypeItemRated, payload)
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return c.render(ctx, snap), nil
}

// Skip advances past the current item without touching its progress.
func (c *Controller) Skip(ctx context.Context) (View, error) {
	var pending []*events.Event
	snap, err := c.transition(ctx, &pending, func() error {
		c.position++
		c.skipped++
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return c.render(ctx, snap), nil
}

// Previous moves the cursor back one item, stopping at the first.
func (c *Controller) Previous(ctx context.Context) (View, error) {
	snap, err := c.transition(ctx, nil, func() error {
		if c.position > 0 {
			c.position--
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return c.render(ctx, snap), nil
}

// Next moves the cursor forward one item, stopping at the last. It never
// completes the session.
func (c *Controller) Next(ctx context.Context) (View, error) {
	snap, err := c.transition(ctx, nil, func() error {
		if c.position < len(c.queue)-1 {
			c.position++
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return c.render(ctx, snap), nil
}

// Leave saves the active session so it can be resumed later.
func (c *Controller) Leave(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return nil
	}
	return c.persister.Save(ctx, c.snapshotLocked().saved())
}

// Current returns the session as it stands. Detail is reused from the last
// render when the current item has not changed.
func (c *Controller) Current(ctx context.Context) View {
	c.mu.Lock()
	snap := c.snapshotLocked()
	last := c.last
	c.mu.Unlock()

	id := snap.current()
	if id == "" || c.details == nil || last.itemID != id {
		return c.render(ctx, snap)
	}

	v := snap.view()
	rec := c.items.Get(id)
	v.Progress = &rec
	v.Detail = last.detail
	return v
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// install replaces the session. Callers hold c.mu.
func (c *Controller) install(id uuid.UUID, queue []string, position int, req domain.SessionRequest) {
	c.id = id
	c.queue = queue
	c.position = position
	c.request = req
	c.state = StateActive
	c.rated = 0
	c.skipped = 0
	c.last = rendered{}
}

// transition runs mutate on an active session, detects completion, persists,
// and emits queued events once the lock is released.
func (c *Controller) transition(ctx context.Context, pending *[]*events.Event, mutate func() error) (snapshot, error) {
	if pending == nil {
		pending = new([]*events.Event)
	}
	defer c.emit(ctx, pending)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
		return snapshot{}, domain.ErrSessionNotActive
	case StateComplete:
		return snapshot{}, domain.ErrSessionComplete
	}

	if err := mutate(); err != nil {
		return snapshot{}, err
	}

	if c.position >= len(c.queue) {
		c.position = len(c.queue)
		c.state = StateComplete
		c.logger.InfoContext(ctx, "session complete",
			slog.String("session_id", c.id.String()),
			slog.Int("rated", c.rated),
			slog.Int("skipped", c.skipped))
		c.queueEvent(ctx, pending, events.TypeSessionCompleted, events.SessionCompletedPayload{
			SessionID: c.id,
			Length:    len(c.queue),
			Rated:     c.rated,
			Skipped:   c.skipped,
		})
	}

	c.persistLocked(ctx)
	return c.snapshotLocked(), nil
}

// persistLocked writes or clears the saved session. Failures are logged.
func (c *Controller) persistLocked(ctx context.Context) {
	var err error
	if c.state == StateComplete {
		err = c.persister.Clear(ctx)
	} else {
		err = c.persister.Save(ctx, c.snapshotLocked().saved())
	}
	if err != nil {
		c.logger.WarnContext(ctx, "session not persisted", slog.String("error", err.Error()))
	}
}

func (c *Controller) snapshotLocked() snapshot {
	return snapshot{
		id:       c.id,
		state:    c.state,
		queue:    slices.Clone(c.queue),
		position: c.position,
		request:  c.request,
	}
}

func (c *Controller) queueEvent(ctx context.Context, pending *[]*events.Event, eventType string, payload any) {
	if c.emitter == nil {
		return
	}
	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		c.logger.ErrorContext(ctx, "could not build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	*pending = append(*pending, event)
}

func (c *Controller) emit(ctx context.Context, pending *[]*events.Event) {
	for _, event := range *pending {
		if err := c.emitter.EmitEvent(ctx, event); err != nil {
			c.logger.WarnContext(ctx, "event handler failed",
				slog.String("event_type", event.Type),
				slog.String("error", err.Error()))
		}
	}
}

// render attaches progress and detail for the current item and starts the
// prefetch of the next one.
func (c *Controller) render(ctx context.Context, snap snapshot) View {
	v := snap.view()
	id := snap.current()
	if id == "" {
		return v
	}

	rec := c.items.Get(id)
	v.Progress = &rec

	if c.details == nil {
		return v
	}
	v.Detail = c.details.Get(ctx, id)
	if next := snap.next(); next != "" {
		c.details.Prefetch(next)
	}

	c.mu.Lock()
	if c.id == snap.id && c.state == StateActive && c.queue[c.position] == id {
		c.last = rendered{itemID: id, detail: v.Detail}
	}
	c.mu.Unlock()
	return v
}
