package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PoolConfig sizes a WorkerPool.
type PoolConfig struct {
	// Workers is the number of goroutines draining the source. Values below
	// one mean one.
	Workers int
}

// DefaultPoolConfig matches the enrichment default of two workers.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Workers: 2}
}

// WorkerPool runs tasks from a Source on a fixed number of goroutines.
type WorkerPool struct {
	source  Source
	workers int
	logger  *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc

	// onFailure, when set, receives every task that returned an error or
	// panicked. It may be called from several workers at once.
	onFailure func(t Task, err error)
}

// NewWorkerPool creates a pool over source. Call Start to begin work.
func NewWorkerPool(source Source, cfg PoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers < 1 {
		logger.Warn("worker count below one, using one", slog.Int("requested", cfg.Workers))
		workers = 1
	}
	return &WorkerPool{
		source:  source,
		workers: workers,
		logger:  logger.With(slog.String("component", "worker_pool")),
	}
}

// OnFailure registers fn to receive failed tasks. Call it before Start.
func (p *WorkerPool) OnFailure(fn func(t Task, err error)) {
	p.onFailure = fn
}

// Start launches the workers. They exit when the source is drained, when
// ctx is cancelled, or on Stop.
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := range p.workers {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
	p.logger.Debug("worker pool started", slog.Int("workers", p.workers))
}

// Wait blocks until every worker has exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Stop cancels the workers and waits for them. Tasks not yet picked up are
// dropped.
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *WorkerPool) work(ctx context.Context, worker int) {
	defer p.wg.Done()
	tasks := p.source.Tasks()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			// A cancelled pool must not start new work even if tasks remain.
			if ctx.Err() != nil {
				return
			}
			p.run(ctx, t, worker)
		}
	}
}

func (p *WorkerPool) run(ctx context.Context, t Task, worker int) {
	start := time.Now()
	err := safeRun(ctx, t)
	log := p.logger.With(
		slog.String("kind", t.Kind()),
		slog.String("key", t.Key()),
		slog.Int("worker", worker),
		slog.Duration("duration", time.Since(start)))

	if err == nil {
		log.Debug("task done")
		return
	}
	log.Debug("task failed", slog.String("error", err.Error()))
	if p.onFailure != nil {
		p.onFailure(t, err)
	}
}

func safeRun(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.Run(ctx)
}
