// Package apperr defines the error taxonomy shared by the domain packages.
//
// Domain code returns either a sentinel *Error or its own typed error that
// implements Kind and Code. The HTTP layer maps kinds to status codes; errors
// without a kind are treated as internal failures.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a classified error with a machine-readable code and a message
// that is safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// ErrorKind returns the classification of e.
func (e *Error) ErrorKind() Kind { return e.Kind }

// ErrorCode returns the machine-readable code of e.
func (e *Error) ErrorCode() string { return e.Code }

// New returns a classified error.
func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Newf is like New but formats the message.
func Newf(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Classified is implemented by every error the API may expose to clients.
type Classified interface {
	error
	ErrorKind() Kind
	ErrorCode() string
}

// As returns the first classified error in err's chain.
func As(err error) (Classified, bool) {
	var c Classified
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal when err is unclassified.
func KindOf(err error) Kind {
	if c, ok := As(err); ok {
		return c.ErrorKind()
	}
	return KindInternal
}
