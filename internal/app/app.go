// Package app wires the debugger together: configuration, the Lua VM,
// the console session and its platform, and the optional source watcher.
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"

	"github.com/dshills/luadbg/internal/config"
	"github.com/dshills/luadbg/internal/console"
	"github.com/dshills/luadbg/internal/logging"
	"github.com/dshills/luadbg/internal/platform"
	"github.com/dshills/luadbg/internal/vm"
	"github.com/dshills/luadbg/internal/watch"
)

// ErrQuit signals that the operator ended the debugged program.
var ErrQuit = vm.ErrQuit

// ErrAlreadyRunning indicates Run was called twice.
var ErrAlreadyRunning = errors.New("application already running")

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string

	// Script is the Lua file to debug.
	Script string

	// Args are exposed to the script as the global table arg.
	Args []string

	// CommandScript is a file of console commands read before stdin.
	CommandScript string

	// StopOnEntry overrides the configured stop_on_entry when set.
	StopOnEntry bool

	// LogLevel overrides the configured log level when not empty.
	LogLevel string

	// Stdin, Stdout and Stderr default to the process streams. A
	// non-nil Stdin is read as a non-interactive input.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Exit replaces os.Exit for the quit command.
	Exit func(int)

	// Interrupts is paused while the console waits at an interactive
	// prompt.
	Interrupts platform.Interrupter
}

// Application owns every component of one debugging run.
type Application struct {
	opts Options

	config   config.Config
	logger   *logging.Logger
	state    *vm.State
	module   *vm.Module
	terminal *platform.Terminal
	session  *console.Session
	watcher  *watch.Watcher

	// Open command script, closed on shutdown
	commands io.Closer

	running  atomic.Bool
	shutdown atomic.Bool
}

// New creates an Application with the given options.
func New(opts Options) (*Application, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}

	app := &Application{opts: opts}
	if err := newBootstrapper(app).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Run executes the script under the console until it finishes, fails or
// the operator quits. Quitting returns ErrQuit.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	app.logger.Info("running %s", app.opts.Script)
	err := app.state.Run(ctx, app.module)
	if err != nil && !vm.IsQuit(err) {
		app.logger.Error("%v", err)
	}
	return err
}

// IsRunning reports whether the script is executing.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Config returns the effective configuration.
func (app *Application) Config() config.Config {
	return app.config
}

// Session returns the console session.
func (app *Application) Session() *console.Session {
	return app.session
}

// Shutdown releases every component. It is safe to call more than once.
func (app *Application) Shutdown() {
	if !app.shutdown.CompareAndSwap(false, true) {
		return
	}
	b := newBootstrapper(app)
	b.initOrder = []string{componentConfig, componentLogging, componentVM,
		componentProgram, componentWatcher, componentPlatform, componentSession}
	b.cleanup()
}

// InitError reports the component whose initialization failed.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
