package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for callers. The set is closed.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindCapacityExceeded
	KindPolicyViolation
	KindInvalidRequest
	KindTransientStorage
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindCapacityExceeded:
		return "capacity_exceeded"
	case KindPolicyViolation:
		return "policy_violation"
	case KindInvalidRequest:
		return "invalid_request"
	case KindTransientStorage:
		return "transient_storage_failure"
	default:
		return "internal_error"
	}
}

// HTTPStatus is the response status the API boundary uses for this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindCapacityExceeded:
		return http.StatusConflict
	case KindPolicyViolation:
		return http.StatusUnprocessableEntity
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindTransientStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the whole operation may be attempted again from scratch.
func (k Kind) Retryable() bool {
	return k == KindTransientStorage
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind and code, so copies made by
// WithDetails still satisfy errors.Is against their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithDetails returns a copy carrying details, leaving shared sentinels untouched.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func NotFound(resource string) *Error {
	return New(KindNotFound, resource+"_not_found", resource+" not found")
}

func InvalidState(code, message string) *Error {
	return New(KindInvalidState, code, message)
}

func CapacityExceeded(code, message string) *Error {
	return New(KindCapacityExceeded, code, message)
}

func PolicyViolation(code, message string) *Error {
	return New(KindPolicyViolation, code, message)
}

func InvalidRequest(code, message string) *Error {
	return New(KindInvalidRequest, code, message)
}

func Transient(err error) *Error {
	return &Error{
		Kind:    KindTransientStorage,
		Code:    "transient_storage_failure",
		Message: "storage temporarily unavailable, retry the request",
		Err:     err,
	}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: message, Err: err}
}

// As extracts the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns KindInternal for errors that carry no classification.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
