package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-kanji/internal/store"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLSTATE classes the blob table can raise.
var pgSentinels = map[string]error{
	"23505": store.ErrDuplicate,
	"23514": store.ErrConstraint,
	"23502": store.ErrConstraint,
}

var sqliteSentinels = map[int]error{
	sqlite3.SQLITE_CONSTRAINT_UNIQUE:     store.ErrDuplicate,
	sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY: store.ErrDuplicate,
	sqlite3.SQLITE_CONSTRAINT_CHECK:      store.ErrConstraint,
	sqlite3.SQLITE_CONSTRAINT_NOTNULL:    store.ErrConstraint,
}

// classify returns the store sentinel for a driver error, or nil when the
// error has no portable meaning.
func classify(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgSentinels[pgErr.Code]
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return sqliteSentinels[liteErr.Code()]
	}
	return nil
}

// MapError wraps driver errors from either dialect in the matching store
// sentinel. Errors with no mapping are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	sentinel := classify(err)
	if sentinel == nil {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
