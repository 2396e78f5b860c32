package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Concrete errors unwrap to one of these so callers can map
// them with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrPolicy      = errors.New("policy error")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence error")
)

// CommandNotFoundError is returned for names absent from the catalog.
type CommandNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *CommandNotFoundError) Error() string {
	msg := fmt.Sprintf("Command '%s' not found", e.Name)
	if len(e.Suggestions) > 0 {
		msg += ". Did you mean: " + strings.Join(e.Suggestions, ", ") + "?"
	}
	return msg
}

func (e *CommandNotFoundError) Unwrap() error { return ErrNotFound }

// CommandLockedError is returned when a disabled command is invoked.
type CommandLockedError struct {
	Name string
}

func (e *CommandLockedError) Error() string {
	return fmt.Sprintf("Command '%s' is disabled", e.Name)
}

func (e *CommandLockedError) Unwrap() error { return ErrPolicy }

// EnvironmentRestrictedError is returned when a development-only command is
// invoked in production.
type EnvironmentRestrictedError struct {
	Name        string
	Environment string
}

func (e *EnvironmentRestrictedError) Error() string {
	return fmt.Sprintf("Command '%s' cannot run in the %s environment", e.Name, e.Environment)
}

func (e *EnvironmentRestrictedError) Unwrap() error { return ErrPolicy }

// NoPriorExecutionError is returned by retry when a command has no history.
type NoPriorExecutionError struct {
	Name string
}

func (e *NoPriorExecutionError) Error() string {
	return fmt.Sprintf("No previous execution found for command '%s'", e.Name)
}

func (e *NoPriorExecutionError) Unwrap() error { return ErrNotFound }

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// ValidationError reports bad request input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
