// Package main is the entry point for the luadbg debugger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/dshills/luadbg/internal/app"
	"github.com/dshills/luadbg/internal/logging"
	"github.com/dshills/luadbg/internal/platform"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, ok := parseFlags()
	if !ok {
		return 2
	}

	// Interrupts stop the script. At the prompt they end the process.
	ctx, interrupts := platform.NotifyInterrupts(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer interrupts.Stop()
	opts.Interrupts = interrupts

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, app.ErrQuit) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() (app.Options, bool) {
	var opts app.Options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml)")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.CommandScript, "x", "", "Execute console commands from file before reading stdin")
	flag.BoolVar(&opts.StopOnEntry, "stop", false, "Stop before the first statement")
	flag.BoolVar(&opts.StopOnEntry, "s", false, "Stop before the first statement (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "luadbg - source-level debugger for Lua scripts\n\n")
		fmt.Fprintf(os.Stderr, "Usage: luadbg [options] script.lua [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nThe script suspends into the console when it calls debugger()\n")
		fmt.Fprintf(os.Stderr, "or raises an uncaught error.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  luadbg game.lua              Debug a script\n")
		fmt.Fprintf(os.Stderr, "  luadbg -s game.lua level1    Stop on entry, pass an argument\n")
		fmt.Fprintf(os.Stderr, "  luadbg -x cmds.txt game.lua  Run console commands from a file\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("luadbg %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.LogLevel != "" {
		if _, ok := logging.ParseLevel(opts.LogLevel); !ok {
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
			return opts, false
		}
	}

	if flag.NArg() == 0 {
		flag.Usage()
		return opts, false
	}
	opts.Script = flag.Arg(0)
	opts.Args = flag.Args()[1:]

	return opts, true
}
