// Package task runs batches of background work on a fixed pool of workers
// fed from a bounded in-memory queue. The metadata enrichment job uses it to
// fetch readings for many kanji while the caller waits on a single result.
package task
