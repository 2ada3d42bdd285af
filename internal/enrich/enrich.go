// Package enrich adds kun and on readings to catalog entries that lack them
// by querying the detail provider for each, then writes a new metadata file.
package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/phrazzld/scry-kanji/internal/catalog"
	"github.com/phrazzld/scry-kanji/internal/config"
	"github.com/phrazzld/scry-kanji/internal/platform/jiten"
	"github.com/phrazzld/scry-kanji/internal/task"
	"golang.org/x/time/rate"
)

// Metadata field names written by the enricher.
const (
	FieldKunReadings = "kunReadings"
	FieldOnReadings  = "onReadings"
)

// ReadingsFetcher looks up the readings of one item.
type ReadingsFetcher interface {
	FetchReadings(ctx context.Context, itemID string) (jiten.Readings, error)
}

// Stats summarizes one enrichment run.
type Stats struct {
	Total       int `json:"total"`
	Processed   int `json:"processed"`
	Success     int `json:"success"`
	Failed      int `json:"failed"`
	AlreadyHave int `json:"alreadyHave"`
}

// Result is the outcome of Run: the counters plus the fields to merge into
// the catalog, keyed by item.
type Result struct {
	Stats  Stats
	Fields map[string]map[string]any
}

// Enricher fetches missing readings for a catalog.
type Enricher struct {
	catalog *catalog.Catalog
	fetcher ReadingsFetcher
	limiter *rate.Limiter
	workers int
	logger  *slog.Logger
}

// New creates an Enricher. Requests are paced at cfg.RatePerSecond across
// all workers.
func New(cat *catalog.Catalog, fetcher ReadingsFetcher, cfg config.EnrichConfig, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	return &Enricher{
		catalog: cat,
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		workers: cfg.Workers,
		logger:  logger.With(slog.String("component", "enrich")),
	}
}

// collector gathers task outcomes from the workers.
type collector struct {
	mu      sync.Mutex
	stats   Stats
	fields  map[string]map[string]any
	onEvent func(Stats)
}

func (c *collector) success(id string, r jiten.Readings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields[id] = map[string]any{
		FieldKunReadings: r.Kun,
		FieldOnReadings:  r.On,
	}
	c.stats.Processed++
	c.stats.Success++
	c.notify()
}

func (c *collector) failure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Processed++
	c.stats.Failed++
	c.notify()
}

func (c *collector) notify() {
	if c.onEvent != nil {
		c.onEvent(c.stats)
	}
}

// fetchTask returns the task that fetches the readings of itemID.
func (e *Enricher) fetchTask(itemID string, results *collector) task.Task {
	return task.NewFunc(task.KindFetchReadings, itemID, func(ctx context.Context) error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		r, err := e.fetcher.FetchReadings(ctx, itemID)
		if err != nil {
			return err
		}
		results.success(itemID, r)
		return nil
	})
}

// Run fetches readings for every item missing either reading field.
// Progress is reported through onProgress, which may be nil. Run returns
// early with the partial result when ctx is cancelled.
func (e *Enricher) Run(ctx context.Context, onProgress func(Stats)) (*Result, error) {
	ids := e.catalog.IDs()
	results := &collector{
		fields:  make(map[string]map[string]any),
		onEvent: onProgress,
	}
	results.stats.Total = len(ids)

	queue := task.NewQueue(len(ids), e.logger)
	for _, id := range ids {
		if e.catalog.HasField(id, FieldKunReadings) && e.catalog.HasField(id, FieldOnReadings) {
			results.mu.Lock()
			results.stats.Processed++
			results.stats.AlreadyHave++
			results.mu.Unlock()
			continue
		}
		if err := queue.Push(e.fetchTask(id, results)); err != nil {
			return nil, fmt.Errorf("queueing %s: %w", id, err)
		}
	}
	queue.Seal()

	pool := task.NewWorkerPool(queue, task.PoolConfig{Workers: e.workers}, e.logger)
	pool.OnFailure(func(t task.Task, err error) {
		if ctx.Err() != nil {
			return
		}
		e.logger.Warn("readings unavailable",
			slog.String("item", t.Key()),
			slog.String("error", err.Error()))
		results.failure()
	})
	pool.Start(ctx)
	pool.Wait()

	results.mu.Lock()
	defer results.mu.Unlock()
	e.logger.Info("enrichment finished",
		slog.Int("total", results.stats.Total),
		slog.Int("success", results.stats.Success),
		slog.Int("failed", results.stats.Failed),
		slog.Int("already_have", results.stats.AlreadyHave))

	return &Result{Stats: results.stats, Fields: results.fields}, ctx.Err()
}

// Write encodes the catalog with the enriched fields merged in.
func (e *Enricher) Write(w io.Writer, res *Result) error {
	return e.catalog.Write(w, res.Fields)
}

// WriteFile writes the enriched catalog to path atomically.
func (e *Enricher) WriteFile(path string, res *Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".enrich-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := e.Write(tmp, res); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
