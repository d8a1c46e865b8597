package models

import (
	"errors"
	"fmt"
)

// ValidationKind identifies why a raw record was rejected.
type ValidationKind string

const (
	// MissingTitle: the record has no title and is not an import.
	MissingTitle ValidationKind = "missing_title"
	// InvalidInterval: the record's end precedes its start.
	InvalidInterval ValidationKind = "invalid_interval"
)

// ValidationError reports a malformed raw record. It is returned by pure
// transformation code; there is nothing to retry, the input was bad.
type ValidationError struct {
	Kind  ValidationKind
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s (field %q)", e.Kind, e.Field)
}

// Sentinel errors for the two external collaborators. Implementations wrap
// these with fmt.Errorf("...: %w", ...) so callers can errors.Is them.
var (
	// ErrSourceUnavailable: the calendar provider or document store could
	// not be reached. Prior state is preserved; the caller decides whether
	// to retry.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrPermissionDenied: the collaborator refused the request. Distinct
	// from ErrSourceUnavailable so the caller can prompt a re-auth instead
	// of blindly retrying.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound: the requested document does not exist.
	ErrNotFound = errors.New("not found")
)
