package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by how the client reacts to it
type Kind int

const (
	KindInternal Kind = iota
	// KindConnectivity: channel or request failed. Transient toast, never retried.
	KindConnectivity
	// KindAuthorization: role lacks permission. Blocking message, not retried.
	KindAuthorization
	// KindDomain: normal outcome such as an empty queue. Silent no-op.
	KindDomain
	// KindSession: missing or malformed role. Sends the user to role selection.
	KindSession
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindAuthorization:
		return "authorization"
	case KindDomain:
		return "domain"
	case KindSession:
		return "session"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Connectivity(op string, err error) *Error {
	return &Error{Kind: KindConnectivity, Op: op, Message: "connection failed", Err: err}
}

func Authorization(op, msg string) *Error {
	return &Error{Kind: KindAuthorization, Op: op, Message: msg}
}

func Domain(op, msg string) *Error {
	return &Error{Kind: KindDomain, Op: op, Message: msg}
}

func Session(op, msg string) *Error {
	return &Error{Kind: KindSession, Op: op, Message: msg}
}

func InvalidInput(op, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Message: msg}
}

func InvalidInputf(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: "internal error", Err: err}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// FromStatus converts a non-2xx backend status into a classified error.
func FromStatus(op string, status int, msg string) *Error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return Authorization(op, msg)
	case status == http.StatusNotFound, status == http.StatusConflict, status == http.StatusTooManyRequests:
		return Domain(op, msg)
	case status >= 400 && status < 500:
		return InvalidInput(op, msg)
	default:
		return &Error{Kind: KindConnectivity, Op: op, Message: msg}
	}
}

// HTTPStatus maps a kind back to the status the local view answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthorization:
		return http.StatusForbidden
	case KindSession:
		return http.StatusUnauthorized
	case KindDomain:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindConnectivity:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func IsSilent(err error) bool {
	return err != nil && KindOf(err) == KindDomain
}

func IsBlocking(err error) bool {
	k := KindOf(err)
	return err != nil && (k == KindAuthorization || k == KindSession)
}

func NeedsRoleSelection(err error) bool {
	return err != nil && KindOf(err) == KindSession
}
