package knowledge

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when an embedding does not have exactly
// VectorDim dimensions. The schema would reject it anyway; failing here
// gives the caller a useful error instead of a pgvector type error.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrEmptyContent is returned when a document with no content is inserted.
var ErrEmptyContent = errors.New("document content is empty")

// ErrNotFound is returned when an operation targets a document id that does
// not exist.
var ErrNotFound = errors.New("document not found")

// StorageError wraps a database failure with the store operation that hit it.
// It unwraps to the underlying error so callers can use errors.Is against
// pgx error values.
type StorageError struct {
	Op  string // "insert", "search", "count", "delete"
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e == nil {
		return "<nil StorageError>"
	}
	return fmt.Sprintf("knowledge: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// storageErr wraps err into a *StorageError unless it is nil.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
