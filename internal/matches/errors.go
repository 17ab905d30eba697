package matches

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched (errors.Is) by every NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError is returned by UpdateMatch and DeleteMatch for an unknown id.
type NotFoundError struct {
	ID ID
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("match %q not found", string(e.ID)) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports a missing or invalid draft field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }
