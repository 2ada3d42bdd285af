// Package domain contains the core entities, value objects, and errors of the
// kanji study scheduler: catalog items, per-item progress records, session
// requests and snapshots, item detail, and the import/export envelope.
// It is independent of any specific storage or delivery mechanism.
package domain
