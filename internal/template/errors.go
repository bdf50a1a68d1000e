package template

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("template not found")
	ErrDisabled = errors.New("template disabled")
	ErrInUse    = errors.New("template referenced by in-flight items")
)

// ValidationError is the caller's fault and is never retried.
type ValidationError struct {
	Missing []string // placeholders in body absent from the declared list
	Reasons []string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("undeclared placeholders: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Reasons) > 0 {
		parts = append(parts, strings.Join(e.Reasons, "; "))
	}
	if len(parts) == 0 {
		return "invalid template"
	}
	return "invalid template: " + strings.Join(parts, "; ")
}
