package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("service unavailable")
	ErrConsoleDisabled = errors.New("console disabled: set ALLOW_SQL=true to enable")
	ErrNoValidItems    = errors.New("no valid items in order")
)

// ValidationError is a request the caller must fix
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransactionError is a failed write that was rolled back
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string { return e.Err.Error() }

func (e *TransactionError) Unwrap() error { return e.Err }

// CommandError wraps a console command the store rejected
type CommandError struct {
	Err error
}

func (e *CommandError) Error() string { return e.Err.Error() }

func (e *CommandError) Unwrap() error { return e.Err }
