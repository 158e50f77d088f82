package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/openpcli/pcli-setup/internal/messages"
)

// Kind classifies why a strategy failed. Every failed attempt carries
// exactly one Kind so callers can report and branch without string matching.
type Kind string

const (
	// KindPreconditionUnmet marks attempts ruled out before running.
	KindPreconditionUnmet Kind = "precondition_unmet"
	// KindNetwork marks connectivity and timeout failures.
	KindNetwork Kind = "network"
	// KindPermission marks denied filesystem or elevation failures.
	KindPermission Kind = "permission"
	// KindNotFound marks missing modules, versions, or binaries.
	KindNotFound Kind = "not_found"
	// KindPartialWrite marks failures that left the destination incomplete.
	KindPartialWrite Kind = "partial_write"
	// KindUnknown marks everything not identified as one of the above.
	KindUnknown Kind = "unknown"
)

// Error is the typed failure recorded per attempt. Op names the failing
// operation; Err preserves the underlying error chain including paths,
// URLs, and exit codes.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError builds an Error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf(messages.ResolverErrNoWrappedFmt, e.Kind, e.Op)
	}
	return fmt.Sprintf(messages.ResolverErrFmt, e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// AsError returns err as an *Error, classifying and wrapping it first when
// the strategy did not already produce one.
func AsError(op string, err error) *Error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return &Error{Kind: Classify(err), Op: op, Err: err}
}

// Classify maps an untyped error onto a Kind. Wrapped *Error values keep
// their kind; stdlib error shapes map to the closest kind; anything else is
// KindUnknown.
func Classify(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	var netErr net.Error
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	case errors.Is(err, fs.ErrPermission) || os.IsPermission(err):
		return KindPermission
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	default:
		return KindUnknown
	}
}
