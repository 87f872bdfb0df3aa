// Package ingestor collects the shared error domain type used across the
// codec, graph, sbom, and advisory packages.
package ingestor

import (
	"errors"
	"strings"
)

// Error is the domain error type for this module.
//
// Components should create an Error at the system boundary (parsing a
// document, making a database call) and intermediate layers should wrap with
// [fmt.Errorf] and "%w" rather than construct a new Error, except to refine
// the [ErrorKind].
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrInvalidIdentifier, ErrInvalidDocument, ErrTransport, ErrConstraint, ErrNotFound, ErrInternal:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]")
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Inner != nil {
		b.WriteString(": ")
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is] against one of the declared ErrorKind values.
func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind classifies an Error for callers that want to branch on failure
// category rather than inspect Message/Op.
type ErrorKind string

// Declared error kinds, per the failure semantics all ingestion components
// share.
var (
	// ErrInvalidIdentifier marks a malformed PURL, CPE, or CVSS vector.
	ErrInvalidIdentifier = ErrorKind("invalid identifier")
	// ErrInvalidDocument marks a malformed SPDX, CycloneDX, CVE, CSAF, or
	// OSV document.
	ErrInvalidDocument = ErrorKind("invalid document")
	// ErrTransport marks a failure reaching or reading from the backing
	// store.
	ErrTransport = ErrorKind("transport")
	// ErrConstraint marks a violated data-model invariant (a foreign key
	// or uniqueness constraint) surfaced from the store.
	ErrConstraint = ErrorKind("constraint")
	// ErrNotFound marks a lookup that found no matching row.
	ErrNotFound = ErrorKind("not found")
	// ErrInternal is used when no more specific kind applies.
	ErrInternal = ErrorKind("internal")
)

// Error implements error, so an ErrorKind can be compared with [errors.Is]
// directly.
func (k ErrorKind) Error() string {
	return string(k)
}

// wrap builds an *Error at a component boundary.
func wrap(op string, kind ErrorKind, inner error) error {
	if inner == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Inner: inner}
}

// Wrap builds an *Error at a component boundary, classifying inner under
// kind. Returns nil if inner is nil.
func Wrap(op string, kind ErrorKind, inner error) error {
	return wrap(op, kind, inner)
}
