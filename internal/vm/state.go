package vm

import (
	"fmt"
	"io"
	"os"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luadbg/internal/console"
	"github.com/dshills/luadbg/internal/logging"
)

// DefaultExecutionTimeout of zero runs scripts without a deadline.
const DefaultExecutionTimeout time.Duration = 0

// State is an embedded Lua VM prepared for debugging. It loads chunks
// as program modules, exposes its paused call stack to the console and
// calls into the console at suspension points.
//
// gopher-lua's LState is not goroutine-safe and the console runs on the
// Lua call stack itself, so a State has no lock: every method must be
// called from the goroutine running the script.
type State struct {
	L *lua.LState

	stdout           io.Writer
	executionTimeout time.Duration
	unsafeLibs       bool
	stopOnEntry      bool
	logger           *logging.Logger

	sandbox *Sandbox

	// Loaded chunks in load order
	modules []*Module
	files   map[string]*SourceFile

	// Installed breakpoints, reference counted per location
	breakpoints map[location]int

	console    Console
	lastResume console.ResumeMode
	quitting   bool

	// Last value raised through error() after the console saw it
	reported lua.LValue

	closed bool
}

// Console is the debugger front end a State suspends into.
type Console interface {
	// Enter runs the command loop at a suspension point.
	Enter() console.ResumeMode

	// OnException is called while an uncaught error's stack is live.
	OnException(description string) (console.ResumeMode, bool)
}

// StateOption configures a State.
type StateOption func(*State)

// WithStdout redirects the script's print output.
func WithStdout(w io.Writer) StateOption {
	return func(s *State) {
		s.stdout = w
	}
}

// WithExecutionTimeout bounds the run time of a chunk. Time spent in the
// console counts against it.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithUnsafeLibraries opens the io, os and debug libraries.
func WithUnsafeLibraries(unsafe bool) StateOption {
	return func(s *State) {
		s.unsafeLibs = unsafe
	}
}

// WithStopOnEntry enters the console before a chunk's first statement.
func WithStopOnEntry(stop bool) StateOption {
	return func(s *State) {
		s.stopOnEntry = stop
	}
}

// WithVMLogger sets the diagnostic logger.
func WithVMLogger(l *logging.Logger) StateOption {
	return func(s *State) {
		s.logger = l
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{
		stdout:           os.Stdout,
		executionTimeout: DefaultExecutionTimeout,
		files:            make(map[string]*SourceFile),
		breakpoints:      make(map[location]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Get()
	}
	s.logger = s.logger.WithComponent("vm")

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	s.L = L

	openSafeLibraries(L)
	s.sandbox = NewSandbox(L, s.stdout)
	s.sandbox.Install()
	if s.unsafeLibs {
		s.sandbox.OpenUnsafe()
	}

	L.SetGlobal("debugger", L.NewFunction(s.debuggerBuiltin))
	L.SetGlobal("error", L.NewFunction(s.errorBuiltin))
	return s
}

// openSafeLibraries opens the Lua standard libraries without file or
// process access.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenPackage(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	lua.OpenCoroutine(L)
}

// Attach sets the console entered at suspension points.
func (s *State) Attach(c Console) {
	s.console = c
}

// LastResume returns the mode the console was last left with.
func (s *State) LastResume() console.ResumeMode {
	return s.lastResume
}

// SetArgs exposes the script name and arguments as the global table arg.
func (s *State) SetArgs(script string, args []string) {
	t := s.L.NewTable()
	t.RawSetInt(0, lua.LString(script))
	for i, a := range args {
		t.RawSetInt(i+1, lua.LString(a))
	}
	s.L.SetGlobal("arg", t)
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// Sandbox returns the sandbox of the state.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	return s.closed
}

// Close releases all resources associated with the Lua state.
func (s *State) Close() error {
	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

// doWithRecovery executes a function with panic recovery.
func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
