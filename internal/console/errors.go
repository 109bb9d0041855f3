package console

import (
	"errors"
	"fmt"
)

// Errors reported to the operator. None of them ends the session.
var (
	// ErrUnknownCommand indicates no command table entry matched.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrBadBreakpointSyntax indicates a malformed breakpoint location.
	ErrBadBreakpointSyntax = errors.New("bad breakpoint syntax")

	// ErrNoSourceLoaded indicates no program modules are loaded.
	ErrNoSourceLoaded = errors.New("no source loaded")

	// ErrSourceFileNotFound indicates the file is not part of any module.
	ErrSourceFileNotFound = errors.New("no such source")

	// ErrBreakpointRejected indicates the engine refused the location.
	ErrBreakpointRejected = errors.New("breakpoint rejected")

	// ErrBreakpointNotFound indicates an unknown breakpoint id.
	ErrBreakpointNotFound = errors.New("breakpoint not found")

	// ErrMissingDebugInfo indicates the frame has no source or method metadata.
	ErrMissingDebugInfo = errors.New("missing debug info")

	// ErrTypeMismatch indicates a literal cannot take a variable's type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrMissingSourceFile indicates the source text could not be loaded.
	ErrMissingSourceFile = errors.New("source file missing")

	// ErrSourceTooLarge indicates a source file beyond the addressable size.
	ErrSourceTooLarge = errors.New("source file too large")

	// ErrInternal indicates the engine and the console disagree.
	ErrInternal = errors.New("internal error")
)

// OperationError records the console operation an error occurred in.
type OperationError struct {
	Op     string // Operation name (e.g., "break", "delete", "set")
	Target string // Target of the operation (e.g., location, variable)
	Err    error  // Underlying error
}

// NewOperationError creates a new OperationError.
func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{
		Op:     op,
		Target: target,
		Err:    err,
	}
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
