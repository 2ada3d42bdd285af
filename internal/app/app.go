// Package app assembles the scheduler from configuration. A SchedulerContext is
// built once at startup and shared by the HTTP API and the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/scry-kanji/internal/catalog"
	"github.com/phrazzld/scry-kanji/internal/config"
	"github.com/phrazzld/scry-kanji/internal/detail"
	"github.com/phrazzld/scry-kanji/internal/domain/srs"
	"github.com/phrazzld/scry-kanji/internal/events"
	"github.com/phrazzld/scry-kanji/internal/platform/jiten"
	"github.com/phrazzld/scry-kanji/internal/platform/sqlstore"
	"github.com/phrazzld/scry-kanji/internal/progress"
	"github.com/phrazzld/scry-kanji/internal/queue"
	"github.com/phrazzld/scry-kanji/internal/session"
	"github.com/phrazzld/scry-kanji/internal/store"
)

// Options override collaborators that New would otherwise build from config.
type Options struct {
	// Blobs replaces the database-backed blob store.
	Blobs store.BlobStore
	// Catalog replaces the catalog file named in config.
	Catalog *catalog.Catalog
	// Provider replaces the HTTP detail provider.
	Provider detail.Provider
	// HTTPClient is used by the default provider.
	HTTPClient *http.Client
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// SchedulerContext bundles the long-lived components of the scheduler.
type SchedulerContext struct {
	Config     *config.Config
	Logger     *slog.Logger
	Catalog    *catalog.Catalog
	Blobs      store.BlobStore
	Items      *progress.Store
	Builder    *queue.Builder
	Scheduler  srs.Service
	Persister  *session.Persister
	Details    *detail.Cache
	Emitter    *events.Dispatcher
	Controller *session.Controller
	Clock      func() time.Time

	db *sqlstore.BlobStore
}

// New builds a SchedulerContext. A missing or unreadable catalog yields an
// empty catalog; storage and configuration errors are returned.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*SchedulerContext, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	sc := &SchedulerContext{
		Config:    cfg,
		Logger:    logger,
		Scheduler: srs.NewDefaultService(),
		Clock:     clock,
	}

	sc.Catalog = opts.Catalog
	if sc.Catalog == nil {
		sc.Catalog = catalog.LoadFile(cfg.Catalog.Path, logger)
	}

	sc.Blobs = opts.Blobs
	if sc.Blobs == nil {
		db, err := sqlstore.Open(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open blob store: %w", err)
		}
		sc.db = db
		sc.Blobs = db
	}

	sc.Items = progress.NewStore(sc.Blobs, logger)
	if err := sc.Items.Load(ctx, sc.Catalog); err != nil {
		sc.Close()
		return nil, fmt.Errorf("failed to load item progress: %w", err)
	}

	provider := opts.Provider
	if provider == nil {
		client, err := jiten.NewClient(cfg.Detail, opts.HTTPClient, logger)
		if err != nil {
			sc.Close()
			return nil, fmt.Errorf("failed to create detail provider: %w", err)
		}
		provider = client
	}
	sc.Details = detail.NewCache(provider, logger,
		detail.WithTimeout(cfg.Detail.Timeout),
		detail.WithPrefetch(cfg.Detail.Prefetch),
		detail.WithMetrics(detail.NewMetrics()),
	)

	sc.Emitter = events.NewDispatcher(logger)
	sc.Emitter.Subscribe(events.NewLoggingHandler(logger))
	sc.Emitter.Subscribe(events.NewMetricsHandler(), events.TypeItemRated, events.TypeSessionCompleted)

	sc.Builder = queue.NewBuilder(sc.Catalog, sc.Items, queue.WithClock(clock))
	sc.Persister = session.NewPersister(sc.Blobs, logger)

	controller, err := session.NewController(session.Deps{
		Catalog:   sc.Catalog,
		Items:     sc.Items,
		Builder:   sc.Builder,
		Scheduler: sc.Scheduler,
		Persister: sc.Persister,
		Details:   sc.Details,
		Emitter:   sc.Emitter,
		Logger:    logger,
		Clock:     clock,
	})
	if err != nil {
		sc.Close()
		return nil, fmt.Errorf("failed to create session controller: %w", err)
	}
	sc.Controller = controller

	logger.Info("scheduler initialized",
		slog.Int("catalog_items", sc.Catalog.Len()),
		slog.Bool("prefetch", cfg.Detail.Prefetch))
	return sc, nil
}

// Close waits for in-flight prefetches and closes the database, if New opened one.
func (sc *SchedulerContext) Close() {
	if sc.Details != nil {
		sc.Details.Wait()
	}
	if sc.db != nil {
		if err := sc.db.Close(); err != nil {
			sc.Logger.Error("error closing database", slog.String("error", err.Error()))
		}
		sc.db = nil
	}
	sc.Logger.Debug("scheduler closed")
}
