package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the root of every "nothing stored here" error.
	ErrNotFound = errors.New("not found")

	// ErrBlobNotFound is returned by BlobStore.Get for a key with no payload.
	ErrBlobNotFound = fmt.Errorf("%w: blob", ErrNotFound)

	// ErrDuplicate reports a unique or primary key conflict from the driver.
	ErrDuplicate = errors.New("duplicate key")

	// ErrConstraint reports a check or not-null violation from the driver.
	ErrConstraint = errors.New("constraint violation")

	// ErrTransactionFailed marks a multi-key write that was rolled back.
	ErrTransactionFailed = errors.New("transaction failed")
)

// IsNotFoundError reports whether err means nothing is stored under a key.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// BlobError describes a failed blob store operation.
type BlobError struct {
	Op  string // get, put, put_many or delete
	Key string // empty for put_many
	Err error
}

func (e *BlobError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("blob %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("blob %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BlobError) Unwrap() error {
	return e.Err
}

// NewBlobError wraps err with the operation and key it came from.
func NewBlobError(op, key string, err error) *BlobError {
	return &BlobError{Op: op, Key: key, Err: err}
}
