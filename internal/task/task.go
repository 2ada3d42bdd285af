package task

import "context"

// KindFetchReadings fetches kun and on readings for one catalog item.
const KindFetchReadings = "fetch_readings"

// Task is one unit of background work.
type Task interface {
	// Key identifies what the task works on, such as an item ID.
	Key() string

	// Kind names the sort of work, for logs.
	Kind() string

	// Run performs the work. A returned error marks the task failed.
	Run(ctx context.Context) error
}

// Func adapts a function to the Task interface.
type Func struct {
	kind string
	key  string
	fn   func(ctx context.Context) error
}

// NewFunc returns a task of the given kind and key that calls fn.
func NewFunc(kind, key string, fn func(ctx context.Context) error) *Func {
	return &Func{kind: kind, key: key, fn: fn}
}

func (f *Func) Key() string                   { return f.key }
func (f *Func) Kind() string                  { return f.kind }
func (f *Func) Run(ctx context.Context) error { return f.fn(ctx) }

// Source hands tasks to workers. The channel is closed once no more tasks
// will arrive.
type Source interface {
	Tasks() <-chan Task
}
