// Package errs - Error kinds reported by the mask pipeline.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is used for errors that were not produced by this package.
	KindUnknown Kind = iota
	// KindConfiguration covers unresolvable models, missing weights and invalid settings.
	KindConfiguration
	// KindEngine covers session creation and inference-run failures.
	KindEngine
	// KindData covers empty frames and mismatched buffer sizes.
	KindData
	// KindInvariant covers shape and type violations detected mid-pipeline.
	KindInvariant
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindEngine:
		return "engine"
	case KindData:
		return "data"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is a pipeline error tagged with a Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Cause returns the underlying error for github.com/pkg/errors.Cause.
func (e *Error) Cause() error {
	return e.Err
}

// New creates an error of the given kind.
//
// Arguments:
//   - kind: The error classification.
//   - op: The operation that failed, e.g. "filter.tick".
//   - err: The underlying error. May be nil.
//
// Returns:
//   - error: A *Error.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Configuration wraps err as a configuration error.
func Configuration(op string, err error) error { return New(KindConfiguration, op, err) }

// Engine wraps err as an engine error.
func Engine(op string, err error) error { return New(KindEngine, op, err) }

// Data wraps err as a data error.
func Data(op string, err error) error { return New(KindData, op, err) }

// Invariant wraps err as an invariant violation.
func Invariant(op string, err error) error { return New(KindInvariant, op, err) }

// Configurationf formats a configuration error.
func Configurationf(op, format string, args ...interface{}) error {
	return Configuration(op, errors.Errorf(format, args...))
}

// Dataf formats a data error.
func Dataf(op, format string, args ...interface{}) error {
	return Data(op, errors.Errorf(format, args...))
}

// Invariantf formats an invariant violation.
func Invariantf(op, format string, args ...interface{}) error {
	return Invariant(op, errors.Errorf(format, args...))
}

// Enginef formats an engine error.
func Enginef(op, format string, args ...interface{}) error {
	return Engine(op, errors.Errorf(format, args...))
}

// KindOf returns the kind of the outermost *Error in err's chain.
//
// Arguments:
//   - err: Any error, possibly wrapped.
//
// Returns:
//   - Kind: KindUnknown when err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
