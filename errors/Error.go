// Package errors provides coded errors. Every failure that crosses a package
// boundary carries an ERR code, which the HTTP layer maps to a status and the
// engine uses to decide whether a transaction may be run again.
package errors

import (
	"errors"
	"fmt"
)

type Error struct {
	code       ERR
	message    string
	wrappedErr error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s (%d): %s", e.code, e.code, e.message)
	if e.wrappedErr != nil {
		msg += " -> " + e.wrappedErr.Error()
	}

	return msg
}

// Is matches any *Error in the chain carrying the same code as target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}

	for cur := e; cur != nil; {
		if cur.code == t.code {
			return true
		}

		next, ok := cur.wrappedErr.(*Error)
		if !ok {
			return false
		}

		cur = next
	}

	return false
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

func (e *Error) Code() ERR {
	if e == nil {
		return ERR_UNKNOWN
	}

	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}

	return e.message
}

// New creates a coded error. When the last param is an error it is wrapped,
// the remaining params are used to format the message.
func New(code ERR, message string, params ...interface{}) *Error {
	e := &Error{code: code}

	if n := len(params); n > 0 {
		if err, ok := params[n-1].(error); ok {
			e.wrappedErr = err
			params = params[:n-1]
		}
	}

	switch {
	case !code.valid():
		e.message = "invalid error code"
	case len(params) > 0:
		e.message = fmt.Sprintf(message, params...)
	default:
		e.message = message
	}

	return e
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// CodeOf returns the code of the outermost *Error in the chain, or ERR_UNKNOWN.
func CodeOf(err error) ERR {
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}

	return ERR_UNKNOWN
}
