// Package labelerr defines the error codes returned while dispatching a label.
//
// Every failure that aborts a print attempt carries one of four codes:
//
//   - CONFIG_ERROR: missing, contradictory or unresolvable printer settings
//   - INPUT_ERROR: the request carried neither an image nor a PDF
//   - RENDER_ERROR: the PDF could not be rasterized or inspected
//   - DEVICE_ERROR: the printer tool or transport failed
//
// None of them is retried; callers decide how to surface them.
package labelerr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeConfig Code = "CONFIG_ERROR"
	CodeInput  Code = "INPUT_ERROR"
	CodeRender Code = "RENDER_ERROR"
	CodeDevice Code = "DEVICE_ERROR"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Config, Input, Render and Device are shorthands for New with a fixed code.
func Config(format string, args ...any) *Error { return New(CodeConfig, format, args...) }
func Input(format string, args ...any) *Error  { return New(CodeInput, format, args...) }
func Render(format string, args ...any) *Error { return New(CodeRender, format, args...) }
func Device(format string, args ...any) *Error { return New(CodeDevice, format, args...) }

// Is reports whether any *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the code of the first *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
