package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures from the backing capabilities so callers can
// tell a fatal credential problem from a retryable blip or a per-document
// extraction failure.
type ErrorKind string

const (
	// KindCredential means the store rejected our credentials. Fatal for the
	// whole call, never retried.
	KindCredential ErrorKind = "credential"
	// KindTransient covers network errors, throttling and store-side 5xx.
	// Retried with backoff before being surfaced.
	KindTransient ErrorKind = "transient"
	// KindExtraction means the document bytes could not be turned into text.
	// Deterministic on the same bytes, never retried.
	KindExtraction ErrorKind = "extraction"
	// KindEmbedding means the embedding model failed on extracted text.
	KindEmbedding ErrorKind = "embedding"
	// KindInvalidArgument is a caller contract violation (e.g. k <= 0).
	KindInvalidArgument ErrorKind = "invalid_argument"
	// KindSearch covers total failure of a query path.
	KindSearch ErrorKind = "search"
)

// Error wraps a capability failure with the pipeline step and document it
// belongs to, so partial-ingestion reports can say exactly what broke.
type Error struct {
	Kind       ErrorKind
	Step       string
	DocumentID string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.DocumentID != "" && e.Step != "":
		return fmt.Sprintf("%s error at %s for document %s: %v", e.Kind, e.Step, e.DocumentID, e.Err)
	case e.Step != "":
		return fmt.Sprintf("%s error at %s: %v", e.Kind, e.Step, e.Err)
	default:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// WrapError tags err with a kind and pipeline context. A nil err returns nil.
func WrapError(kind ErrorKind, step, documentID string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Step: step, DocumentID: documentID, Err: err}
}

// KindOf extracts the ErrorKind from err, defaulting to KindTransient for
// untagged errors so unknown store failures still get retried.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Retryable reports whether err should be retried. Only transient store
// failures qualify; extraction and embedding are deterministic and
// credential errors cannot heal on their own.
func Retryable(err error) bool {
	return KindOf(err) == KindTransient
}
