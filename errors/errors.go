// Package errors defines the stable error taxonomy used across elfaes.
//
// Every error surfaced by the core carries a Kind that callers can
// switch on or test with errors.Is, and a Code in the form
// ELFAES-<component>-<NNNN> for triage — the code is for humans
// reading logs, never for programmatic matching.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// Kind is one of the abstract error categories from the taxonomy.
// Callers should match on Kind, never on Code or message text.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindNotFound            Kind = "not_found"
	KindConcurrencyConflict Kind = "concurrency_conflict"
	KindStreamTerminated    Kind = "stream_terminated"
	KindSchemaConflict      Kind = "schema_conflict"
	KindUpcasterCycle       Kind = "upcaster_cycle"
	KindBackendFailure      Kind = "backend_failure"
)

// Code is a stable identifier of the form ELFAES-<component>-<NNNN>.
type Code string

// Error is the concrete error type returned by elfaes components.
type Error struct {
	Code    Code
	Kind    Kind
	Message string
	Cause   error
}

func New(code Code, kind Kind, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

func Wrap(code Code, kind Kind, message string, cause error) *Error {
	return &Error{Code: code, Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Code, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Code, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches e against a sentinel produced by Sentinel(kind), so
// callers can write errors.Is(err, errors.StreamTerminated) instead of
// inspecting e.Kind directly.
func (e *Error) Is(target error) bool {
	var sentinel *kindSentinel
	if stdErrors.As(target, &sentinel) {
		return e.Kind == sentinel.kind
	}
	var other *Error
	if stdErrors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// kindSentinel lets a bare Kind be used as an errors.Is target.
type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return string(s.kind) }

// Sentinel returns a value usable with errors.Is to test for a Kind,
// e.g. errors.Is(err, errors.Sentinel(errors.KindNotFound)).
func Sentinel(k Kind) error { return &kindSentinel{kind: k} }

var (
	InvalidInput        = Sentinel(KindInvalidInput)
	NotFound            = Sentinel(KindNotFound)
	ConcurrencyConflict = Sentinel(KindConcurrencyConflict)
	StreamTerminated    = Sentinel(KindStreamTerminated)
	SchemaConflict      = Sentinel(KindSchemaConflict)
	UpcasterCycle       = Sentinel(KindUpcasterCycle)
	BackendFailure      = Sentinel(KindBackendFailure)
)

// Is reports whether err has the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	return stdErrors.Is(err, Sentinel(kind))
}

// VersionConflictError carries structured detail about a document or
// stream hash/version mismatch detected during a compare-and-swap.
// It matches errors.Is(err, ConcurrencyConflict).
type VersionConflictError struct {
	Code            Code
	StreamID        string
	ExpectedVersion int64
	ActualVersion   int64
}

func (e *VersionConflictError) Error() string {
	code := e.Code
	if code == "" {
		code = CodeDocConflict
	}
	return fmt.Sprintf("%s: version conflict on stream %s: expected=%d actual=%d",
		code, e.StreamID, e.ExpectedVersion, e.ActualVersion)
}

func (e *VersionConflictError) Is(target error) bool {
	var sentinel *kindSentinel
	return stdErrors.As(target, &sentinel) && sentinel.kind == KindConcurrencyConflict
}

// DocumentConflictError reports a compare-and-swap failure on an
// ObjectDocument's hash/prevHash pair. It matches
// errors.Is(err, ConcurrencyConflict).
type DocumentConflictError struct {
	ObjectName   string
	ObjectID     string
	ExpectedHash string
	ActualHash   string
}

func (e *DocumentConflictError) Error() string {
	return fmt.Sprintf("%s: document conflict on %s/%s: expected hash=%s actual hash=%s",
		CodeDocConflict, e.ObjectName, e.ObjectID, e.ExpectedHash, e.ActualHash)
}

func (e *DocumentConflictError) Is(target error) bool {
	var sentinel *kindSentinel
	return stdErrors.As(target, &sentinel) && sentinel.kind == KindConcurrencyConflict
}

// Stable codes referenced throughout the core. Not exhaustive — new
// components may mint their own under the same component prefix.
const (
	CodeIdentityInvalid Code = "ELFAES-IDN-1001"
	CodeTokenInvalid    Code = "ELFAES-IDN-1002"
	CodeDocNotFound     Code = "ELFAES-DOC-1000"
	CodeDocConflict     Code = "ELFAES-DOC-1001"
	CodeStreamTerm      Code = "ELFAES-STR-1001"
	CodeEmptyBatch      Code = "ELFAES-STR-1002"
	CodeStreamGap       Code = "ELFAES-STR-1003"
	CodeSchemaConflict  Code = "ELFAES-REG-1001"
	CodeUpcasterCycle   Code = "ELFAES-UPC-1001"
	CodeInvalidDuration Code = "ELFAES-POL-1001"
	CodeBackend         Code = "ELFAES-BCK-1000"
	CodeNoSuchStream    Code = "ELFAES-SES-1001"
	CodeStaleDecision   Code = "ELFAES-DEC-1001"
	CodeRetentionConfig Code = "ELFAES-RET-1001"
)
