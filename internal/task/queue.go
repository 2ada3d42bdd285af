package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrQueueSealed = errors.New("task queue is sealed")
	ErrQueueFull   = errors.New("task queue is full")
)

// Queue is a bounded in-memory Source. Producers Push tasks and Seal the
// queue when done; workers drain it.
type Queue struct {
	mu     sync.Mutex
	tasks  chan Task
	sealed bool
	pushed int
	logger *slog.Logger
}

// NewQueue creates a queue that holds up to capacity tasks.
func NewQueue(capacity int, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		tasks:  make(chan Task, capacity),
		logger: logger,
	}
}

// Push adds t without blocking. It fails once the queue is sealed or full.
func (q *Queue) Push(t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sealed {
		return ErrQueueSealed
	}
	select {
	case q.tasks <- t:
		q.pushed++
		return nil
	default:
		return fmt.Errorf("%w: %d tasks waiting", ErrQueueFull, cap(q.tasks))
	}
}

// PushAll adds every task, stopping at the first failure.
func (q *Queue) PushAll(tasks ...Task) error {
	for _, t := range tasks {
		if err := q.Push(t); err != nil {
			return fmt.Errorf("queueing %s %s: %w", t.Kind(), t.Key(), err)
		}
	}
	return nil
}

// Seal stops further pushes. Queued tasks remain readable. Sealing twice is
// a no-op.
func (q *Queue) Seal() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sealed {
		return
	}
	q.sealed = true
	close(q.tasks)
	q.logger.Debug("task queue sealed", slog.Int("pushed", q.pushed))
}

// Pushed reports how many tasks were accepted.
func (q *Queue) Pushed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushed
}

// Tasks implements Source.
func (q *Queue) Tasks() <-chan Task {
	return q.tasks
}
