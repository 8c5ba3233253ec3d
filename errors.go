package rpq

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an error for status mapping. Classification never looks at message text.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindTransport
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransport:
		return "transport"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Violation is a single field-level validation message.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed failure raised by reflection, validation, and use-case steps.
// Status is only meaningful for KindTransport, where the status is fixed by the failure itself.
type Error struct {
	Kind       Kind
	Status     int
	Message    string
	Violations []Violation
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Violations) > 0 {
		parts := make([]string, 0, len(e.Violations))
		for _, v := range e.Violations {
			parts = append(parts, v.Field+": "+v.Message)
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string, violations ...Violation) *Error {
	return &Error{Kind: KindValidation, Message: message, Violations: violations}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func MethodNotAllowed(method string) *Error {
	return &Error{Kind: KindTransport, Status: http.StatusMethodNotAllowed, Message: "method not allowed: " + method}
}

func PayloadTooLarge(size, max int) *Error {
	return &Error{
		Kind:    KindTransport,
		Status:  http.StatusRequestEntityTooLarge,
		Message: fmt.Sprintf("response size %d exceeds limit of %d bytes", size, max),
	}
}

// StoreFailure wraps a persistence error. A nil err returns nil.
func StoreFailure(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindStore, Message: "store failure", Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ErrNoDocument is returned by stores when a point lookup matches nothing.
var ErrNoDocument = errors.New("rpq: no document")
