// Package apierr carries an HTTP status and a stable machine-readable code
// alongside an error, so handlers can map domain failures without inspecting
// error strings.
package apierr

import (
	"fmt"
	"net/http"
)

// Codes surfaced by the API. Clients key on these, not on messages.
const (
	CodeItemNotFound     = "item_not_found"
	CodeTemplateNotFound = "template_not_found"
	CodeInvalidRequest   = "invalid_request"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	default:
		return fmt.Sprintf("api error (%d)", e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// NotFound wraps a lookup miss with a 404 and the given code.
func NotFound(code string, err error) *Error {
	return &Error{Status: http.StatusNotFound, Code: code, Err: err}
}
