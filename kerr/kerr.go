// Package kerr defines the discriminable error kinds shared by every
// component of the k-mer search core (see spec §7). Callers that need to
// tell error kinds apart should use errors.As against *Error and switch on
// Kind; callers that only care about the wrapped cause can keep using
// errors.Is/errors.As against that cause, since Error implements Unwrap.
package kerr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind discriminates the error categories of spec §7.
type Kind int

const (
	// InvalidSymbol: a byte outside the active alphabet (C1).
	InvalidSymbol Kind = iota
	// OutOfRange: k/r outside their configured bounds, or a width*count
	// computation would overflow (C1/C2/C3).
	OutOfRange
	// ConfigMismatch: a persisted parameter tuple disagrees with the
	// current session configuration (C7 load, index open).
	ConfigMismatch
	// Transient: a retryable failure (shared-memory segment creation,
	// counter saturation above a safety cap).
	Transient
	// Cancelled: the host requested cancellation.
	Cancelled
	// Internal: an invariant violation; unrecoverable.
	Internal
)

func (k Kind) String() string {
	switch k {
	case InvalidSymbol:
		return "InvalidSymbol"
	case OutOfRange:
		return "OutOfRange"
	case ConfigMismatch:
		return "ConfigMismatch"
	case Transient:
		return "Transient"
	case Cancelled:
		return "Cancelled"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the concrete sum-type error used at every public component
// boundary. It never crosses the consistent() boundary (§7): callers on
// that path treat any error as "cannot judge, therefore non-matching".
type Error struct {
	Kind Kind
	// Hint is a remediation suggestion, populated for ConfigMismatch
	// ("required rate_max=0.500000, got 0.300000").
	Hint string
	msg  string
	// cause is the wrapped lower-level error, if any.
	cause error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.msg, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds a bare *Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// WithHint attaches a remediation hint, used for ConfigMismatch.
func (e *Error) WithHint(format string, args ...interface{}) *Error {
	e.Hint = fmt.Sprintf(format, args...)
	return e
}

// Wrap builds an *Error of the given kind around a lower-level cause,
// preserving cause's message via github.com/pkg/errors so stack traces
// collected by pkg/errors are not lost.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:  kind,
		msg:   fmt.Sprintf(format, args...),
		cause: pkgerrors.Wrap(cause, fmt.Sprintf(format, args...)),
	}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
