// Package errs defines the coded failure values shared by the vault core
// components. Every recoverable failure carries a small numeric code; the
// codes are part of the public contract and are numbered per component.
package errs

import (
	"errors"
	"fmt"
)

type Error struct {
	Code    uint32
	Message string
}

func New(code uint32, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Code extracts the numeric failure code from err, if any.
func Code(err error) (uint32, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code, true
	}
	return 0, false
}
