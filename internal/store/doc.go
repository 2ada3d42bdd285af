// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying storage medium from the scheduler,
// which only ever loads and saves whole serialized blobs (the item progress
// map, the saved session, preferences) under fixed keys.
package store
