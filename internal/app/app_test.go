package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/luadbg/internal/vm"
)

const addScript = `local function add(a, b)
  local sum = a + b
  debugger()
  return sum
end

result = add(1, 2)
print("result", result)
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// newTestApp builds an application reading commands from stdin.
func newTestApp(t *testing.T, opts Options, stdin string) (*Application, *bytes.Buffer, *int) {
	t.Helper()
	t.Setenv("LUADBG_WATCH_SOURCES", "false")

	var out bytes.Buffer
	exitCode := -1
	opts.Stdin = strings.NewReader(stdin)
	opts.Stdout = &out
	opts.Stderr = io.Discard
	opts.Exit = func(code int) { exitCode = code }

	app, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(app.Shutdown)
	return app, &out, &exitCode
}

func TestApplication_DebugSession(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "add.lua", addScript)

	app, out, _ := newTestApp(t, Options{Script: script},
		"info arguments\ninfo locals\nset sum = 40\nbt\ncontinue\n")

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"3\t  debugger()",
		"0: a = 1\n1: b = 2\n",
		"0: sum = 3\n",
		"sum = 40\n",
		"#0 add(a=1, b=2) at " + script + ":3",
		"#1 main chunk() at " + script + ":7",
		"result\t40\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestApplication_CommandScript(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "add.lua", addScript)
	commands := writeFile(t, dir, "cmds.txt", "# inspect then continue\nbreak 2\ncont\n")

	app, out, _ := newTestApp(t, Options{Script: script, CommandScript: commands}, "")
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "(dbg) break 2\nBreakpoint 1 at "+script+":2\n") {
		t.Errorf("scripted break not echoed and applied:\n%s", got)
	}
	if !strings.Contains(got, "result\t3\n") {
		t.Errorf("script did not finish:\n%s", got)
	}
}

func TestApplication_Quit(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "add.lua", addScript)

	app, out, exitCode := newTestApp(t, Options{Script: script}, "quit\n")
	err := app.Run(context.Background())
	if !errors.Is(err, ErrQuit) {
		t.Fatalf("Run() error = %v, want ErrQuit", err)
	}
	if *exitCode != 0 {
		t.Errorf("exit code = %d, want 0", *exitCode)
	}
	if strings.Contains(out.String(), "result") {
		t.Errorf("script kept running after quit:\n%s", out.String())
	}
}

func TestApplication_EndOfInputExits(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "add.lua", addScript)

	app, _, exitCode := newTestApp(t, Options{Script: script}, "")
	if err := app.Run(context.Background()); !vm.IsQuit(err) {
		t.Fatalf("Run() error = %v, want quit", err)
	}
	if *exitCode != 0 {
		t.Errorf("exit code = %d, want 0", *exitCode)
	}
}

func TestApplication_UncaughtError(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "boom.lua", "local t = nil\nprint(t.x)\n")

	app, out, _ := newTestApp(t, Options{Script: script}, "info locals\ncontinue\n")
	err := app.Run(context.Background())
	var re *vm.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("Run() error = %v, want *vm.RuntimeError", err)
	}
	if !strings.Contains(out.String(), "Exception: ") {
		t.Errorf("console not entered on error:\n%s", out.String())
	}
}

func TestApplication_StopOnEntry(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "plain.lua", "print(\"ran\")\n")

	app, out, _ := newTestApp(t, Options{Script: script, StopOnEntry: true}, "info files\ncontinue\n")
	if !app.Config().StopOnEntry {
		t.Fatal("StopOnEntry option not applied")
	}
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := out.String()
	if !strings.Contains(got, script+"\t(module plain)") {
		t.Errorf("info files output missing:\n%s", got)
	}
	if !strings.HasSuffix(got, "ran\n") {
		t.Errorf("script did not run after entry stop:\n%s", got)
	}
}

func TestNew_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.lua", "local = 1\n")
	good := writeFile(t, dir, "good.lua", "x = 1\n")

	tests := []struct {
		name      string
		opts      Options
		component string
	}{
		{"missing script", Options{Script: filepath.Join(dir, "none.lua")}, componentProgram},
		{"compile error", Options{Script: bad}, componentProgram},
		{"bad log level", Options{Script: good, LogLevel: "loud"}, componentConfig},
		{"missing command script", Options{Script: good, CommandScript: filepath.Join(dir, "none.txt")}, componentPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Stdout = io.Discard
			tt.opts.Stderr = io.Discard
			_, err := New(tt.opts)
			var ie *InitError
			if !errors.As(err, &ie) {
				t.Fatalf("New() error = %v, want *InitError", err)
			}
			if ie.Component != tt.component {
				t.Errorf("InitError.Component = %q, want %q", ie.Component, tt.component)
			}
		})
	}
}

func TestApplication_ShutdownIdempotent(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "x.lua", "x = 1\n")

	app, _, _ := newTestApp(t, Options{Script: script}, "")
	app.Shutdown()
	app.Shutdown()
	if app.IsRunning() {
		t.Error("IsRunning() = true after Shutdown()")
	}
}
