// Package sqlstore implements store.BlobStore on top of database/sql.
//
// PostgreSQL (through pgx) and SQLite (through modernc.org/sqlite) are both
// supported; the driver is chosen from the database URL. The schema is
// managed by goose migrations embedded in the binary.
package sqlstore
