package app

import (
	"os"

	"github.com/dshills/luadbg/internal/config"
	"github.com/dshills/luadbg/internal/console"
	"github.com/dshills/luadbg/internal/logging"
	"github.com/dshills/luadbg/internal/platform"
	"github.com/dshills/luadbg/internal/vm"
	"github.com/dshills/luadbg/internal/watch"
)

// Component names in initialization order.
const (
	componentConfig   = "config"
	componentLogging  = "logging"
	componentVM       = "vm"
	componentProgram  = "program"
	componentWatcher  = "watcher"
	componentPlatform = "platform"
	componentSession  = "session"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      app.opts,
		initOrder: make([]string, 0, 7),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		init func() error
	}{
		{componentConfig, b.initConfig},
		{componentLogging, b.initLogging},
		{componentVM, b.initVM},
		{componentProgram, b.initProgram},
		{componentWatcher, b.initWatcher},
		{componentPlatform, b.initPlatform},
		{componentSession, b.initSession},
	}

	for _, step := range steps {
		if err := step.init(); err != nil {
			b.cleanup()
			return &InitError{Component: step.name, Err: err}
		}
		b.initOrder = append(b.initOrder, step.name)
	}
	return nil
}

func (b *bootstrapper) initConfig() error {
	cfg, err := config.Load(b.opts.ConfigPath)
	if err != nil {
		return err
	}
	if b.opts.StopOnEntry {
		cfg.StopOnEntry = true
	}
	if b.opts.LogLevel != "" {
		cfg.LogLevel = b.opts.LogLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	b.app.config = cfg
	return nil
}

func (b *bootstrapper) initLogging() error {
	b.app.logger = logging.New(logging.Config{
		Level:  b.app.config.Level(),
		Output: b.opts.Stderr,
		Prefix: "luadbg",
	})
	logging.Set(b.app.logger)
	return nil
}

func (b *bootstrapper) initVM() error {
	cfg := b.app.config
	b.app.state = vm.NewState(
		vm.WithStdout(b.opts.Stdout),
		vm.WithExecutionTimeout(cfg.Timeout),
		vm.WithUnsafeLibraries(cfg.UnsafeLibraries),
		vm.WithStopOnEntry(cfg.StopOnEntry),
		vm.WithVMLogger(b.app.logger),
	)
	return nil
}

func (b *bootstrapper) initProgram() error {
	b.app.state.SetArgs(b.opts.Script, b.opts.Args)
	m, err := b.app.state.LoadFile(b.opts.Script)
	if err != nil {
		return err
	}
	b.app.module = m
	return nil
}

func (b *bootstrapper) initPlatform() error {
	var inputs []platform.Input
	if b.opts.CommandScript != "" {
		f, err := os.Open(b.opts.CommandScript)
		if err != nil {
			return err
		}
		b.app.commands = f
		inputs = append(inputs, platform.Script(b.opts.CommandScript, f))
	}
	if b.opts.Stdin != nil {
		inputs = append(inputs, platform.Script("stdin", b.opts.Stdin))
	} else {
		inputs = append(inputs, platform.Stdin())
	}

	opts := []platform.Option{
		platform.WithOutput(b.opts.Stdout),
		platform.WithExit(b.opts.Exit),
	}
	if b.opts.Interrupts != nil {
		opts = append(opts, platform.WithInterrupts(b.opts.Interrupts))
	}
	b.app.terminal = platform.NewTerminal(inputs, opts...)
	return nil
}

func (b *bootstrapper) initSession() error {
	cfg := b.app.config
	opts := []console.Option{
		console.WithOutput(b.opts.Stdout),
		console.WithLogger(b.app.logger),
		console.WithPrompt(cfg.Prompt),
		console.WithListSize(cfg.ListSize),
		console.WithWrapList(cfg.WrapList),
		console.WithBreakOnError(cfg.BreakOnError),
	}
	if b.app.watcher != nil {
		opts = append(opts, console.WithSourceWatcher(b.app.watcher))
	}
	b.app.session = console.NewSession(b.app.state, b.app.terminal, opts...)
	b.app.state.Attach(b.app.session)
	return nil
}

// initWatcher tracks the script's source file when watch_sources is on.
// A watcher that cannot start only costs stale listings.
func (b *bootstrapper) initWatcher() error {
	if !b.app.config.WatchSources {
		return nil
	}
	w, err := watch.New(watch.WithLogger(b.app.logger))
	if err != nil {
		b.app.logger.Warn("source watching disabled: %v", err)
		return nil
	}
	for _, f := range b.app.module.SourceFiles() {
		if err := w.Track(f.Name()); err != nil {
			b.app.logger.Warn("not watching %s: %v", f.Name(), err)
		}
	}
	b.app.watcher = w
	return nil
}

// cleanup releases initialized components in reverse order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(b.initOrder[i])
	}
}

func (b *bootstrapper) cleanupComponent(component string) {
	switch component {
	case componentWatcher:
		if b.app.watcher != nil {
			_ = b.app.watcher.Close()
			b.app.watcher = nil
		}
	case componentSession:
		if b.app.session != nil {
			b.app.session.Close()
		}
	case componentPlatform:
		if b.app.commands != nil {
			_ = b.app.commands.Close()
			b.app.commands = nil
		}
	case componentVM:
		if b.app.state != nil {
			_ = b.app.state.Close()
		}
	}
}
