package negotiation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrConflict           = errors.New("concurrent transition conflict")
	ErrListenerFailure    = errors.New("transition committed but a listener failed")
	ErrAlreadyInitialized = errors.New("state machine already initialized")

	// Sub-kinds of ErrInvalidTransition.
	ErrNoSuchEvent    = fmt.Errorf("%w: event not applicable in current state", ErrInvalidTransition)
	ErrRoleNotAllowed = fmt.Errorf("%w: role not allowed to trigger event", ErrInvalidTransition)
	ErrGuardRejected  = fmt.Errorf("%w: transition precondition not met", ErrInvalidTransition)
)

// ErrorCode is a stable, client-facing classification of an error.
type ErrorCode string

const (
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeNotApplicable      ErrorCode = "NOT_APPLICABLE"
	CodeNotAllowed         ErrorCode = "NOT_ALLOWED"
	CodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"
	CodeListenerFailure    ErrorCode = "LISTENER_FAILURE"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// Code classifies err. Sub-kinds are checked before their parent kind, and a
// listener failure wins over whatever its listeners wrapped.
func Code(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrListenerFailure):
		return CodeListenerFailure
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrRoleNotAllowed):
		return CodeNotAllowed
	case errors.Is(err, ErrGuardRejected):
		return CodePreconditionFailed
	case errors.Is(err, ErrInvalidTransition):
		return CodeNotApplicable
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrAlreadyInitialized):
		return CodeAlreadyInitialized
	default:
		return CodeInternal
	}
}

// TransitionError describes a rejected transition attempt.
type TransitionError struct {
	Scope  string
	From   string
	Event  string
	Role   user.Role
	Kind   error
	Detail string
}

func (e *TransitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s event %s from %s", e.Scope, e.Event, e.From)
	if e.Role != "" {
		fmt.Fprintf(&b, " as %s", e.Role)
	}
	fmt.Fprintf(&b, ": %v", e.Kind)
	if e.Detail != "" {
		b.WriteString(" (" + e.Detail + ")")
	}
	return b.String()
}

func (e *TransitionError) Unwrap() error {
	return e.Kind
}

// ListenerFailure is the error of one pipeline listener.
type ListenerFailure struct {
	Listener string
	Err      error
}

// ListenerError reports post-commit side effects that failed. The transition
// it belongs to is committed and stays committed.
type ListenerError struct {
	Failures []ListenerFailure
}

func (e *ListenerError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Listener+": "+f.Err.Error())
	}
	return ErrListenerFailure.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ListenerError) Is(target error) bool {
	return target == ErrListenerFailure
}

func (e *ListenerError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Warnings renders listener failures for clients.
func (e *ListenerError) Warnings() []string {
	out := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, fmt.Sprintf("%s failed: %v", f.Listener, f.Err))
	}
	return out
}

// IsCommitted reports whether a transition call that returned err still
// committed its state change.
func IsCommitted(err error) bool {
	return err == nil || errors.Is(err, ErrListenerFailure)
}

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
