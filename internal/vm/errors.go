package vm

import (
	"errors"
	"fmt"
)

// Errors for VM operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrQuit is returned by Run when the operator quit from the console.
	ErrQuit = errors.New("quit from debugger")

	// ErrUnknownSource is returned for a source file no module owns.
	ErrUnknownSource = errors.New("unknown source file")

	// ErrNoCode is returned when a breakpoint line carries no code.
	ErrNoCode = errors.New("no code at line")

	// ErrBreakpointNotInstalled is returned when clearing a location that
	// holds no breakpoint.
	ErrBreakpointNotInstalled = errors.New("no breakpoint installed")

	// ErrNoSuchSlot is returned when a frame slot cannot be written.
	ErrNoSuchSlot = errors.New("no such variable slot")
)

// CompileError reports a chunk that failed to parse or compile.
type CompileError struct {
	Name string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// RuntimeError reports an error raised by a running chunk and not caught
// by the script.
type RuntimeError struct {
	Module string
	Err    error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("run %s: %v", e.Module, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}
