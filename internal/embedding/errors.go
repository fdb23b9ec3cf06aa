package embedding

import (
	"errors"
	"fmt"
)

// ErrEmptyText is returned when an empty string is submitted for embedding.
var ErrEmptyText = errors.New("text is empty")

// ErrTextTooLong is returned by EmbedQuery when the input exceeds the model
// token limit. Document embedding splits oversized input instead.
var ErrTextTooLong = errors.New("text exceeds embedding token limit")

// EmbeddingError wraps an embedding failure with the operation that hit it.
// It unwraps to the underlying error so callers can use errors.Is.
type EmbeddingError struct {
	Op  string // "embed", "embed_query", "split"
	Err error
}

// Error implements the error interface.
func (e *EmbeddingError) Error() string {
	if e == nil {
		return "<nil EmbeddingError>"
	}
	return fmt.Sprintf("embedding: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *EmbeddingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// embeddingErr wraps err into an *EmbeddingError unless it is nil.
func embeddingErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EmbeddingError{Op: op, Err: err}
}
