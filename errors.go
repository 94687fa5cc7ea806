package editorcore

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a failure so a Host or listener can decide
// whether it is recoverable (log and continue) or fatal (abandon the
// pending update and roll back to the last committed state, spec
// §4.8).
type ErrorKind uint8

const (
	// KindInternal covers bugs that should never surface in a correct
	// build: nil dereferences turned into errors at a recover() site,
	// missing switch cases, and the like.
	KindInternal ErrorKind = iota
	// KindInvariantViolation means a structural invariant (tree
	// integrity, key uniqueness, parent/child consistency) no longer
	// holds after a transform ran.
	KindInvariantViolation
	// KindRangeCacheSearch means a position->offset or offset->position
	// lookup against the range cache failed to resolve.
	KindRangeCacheSearch
	// KindSanityCheck means the post-commit sanity pass (spec §4.8 step
	// 11) found the reconciled buffer disagreeing with the state.
	KindSanityCheck
	// KindSerialization means encoding or decoding an EditorState
	// failed.
	KindSerialization
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvariantViolation:
		return "invariant_violation"
	case KindRangeCacheSearch:
		return "range_cache_search"
	case KindSanityCheck:
		return "sanity_check"
	case KindSerialization:
		return "serialization"
	default:
		return "internal"
	}
}

// CoreError is the error type every fallible editorcore operation
// returns. It carries a Kind so callers can switch on failure class
// without parsing message text, and wraps an underlying cause (if
// any) with pkg/errors so a logged CoreError keeps the originating
// stack trace.
type CoreError struct {
	Kind ErrorKind
	msg  string
	// Fatal marks an error that must abort the in-flight update and
	// trigger rollback rather than merely being reported to an error
	// listener (spec §4.8, §7).
	Fatal bool
	cause error
}

func (e *CoreError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *CoreError) Unwrap() error { return e.cause }

func newError(kind ErrorKind, fatal bool, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Fatal: fatal, msg: fmt.Sprintf(format, args...), cause: errors.New(fmt.Sprintf(format, args...))}
}

func wrapError(kind ErrorKind, fatal bool, cause error, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Fatal: fatal, msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

func newInvariantViolation(format string, args ...any) *CoreError {
	return newError(KindInvariantViolation, true, format, args...)
}

func newRangeCacheSearchError(format string, args ...any) *CoreError {
	return newError(KindRangeCacheSearch, false, format, args...)
}

func newSanityCheckError(format string, args ...any) *CoreError {
	return newError(KindSanityCheck, true, format, args...)
}

func wrapSerializationError(cause error, format string, args ...any) *CoreError {
	return wrapError(KindSerialization, false, cause, format, args...)
}

// IsFatal reports whether err (if it is, or wraps, a *CoreError)
// demands rollback of the in-flight update rather than merely being
// routed to an error listener.
func IsFatal(err error) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Fatal
	}
	return false
}
