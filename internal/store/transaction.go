package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-kanji/internal/platform/logger"
)

// WithTx runs fn against a transaction on db and commits when fn returns
// nil. Any error or panic from fn rolls the transaction back; a panic is
// re-raised once the rollback is done.
func WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, q DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	rollback := func(cause any) error {
		rbErr := tx.Rollback()
		if rbErr != nil {
			logger.FromContextOrDefault(ctx, slog.Default()).WarnContext(ctx, "rollback failed",
				slog.String("error", rbErr.Error()),
				slog.Any("cause", cause))
		}
		return rbErr
	}

	defer func() {
		if p := recover(); p != nil {
			_ = rollback(p)
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := rollback(err); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
