package console

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"
)

type fakeMethod struct {
	name        string
	first, last int
	args        []string
}

func (m *fakeMethod) Name() string         { return m.name }
func (m *fakeMethod) FirstLine() int       { return m.first }
func (m *fakeMethod) LastLine() int        { return m.last }
func (m *fakeMethod) NumArgs() int         { return len(m.args) }
func (m *fakeMethod) ArgName(i int) string { return m.args[i] }

type fakeSource struct {
	name    string
	methods []Method
}

func (s *fakeSource) Name() string      { return s.name }
func (s *fakeSource) Methods() []Method { return s.methods }

type fakeModule struct {
	name  string
	files []SourceFile
}

func (m *fakeModule) Name() string              { return m.name }
func (m *fakeModule) SourceFiles() []SourceFile { return m.files }

type fakeLocal struct {
	name  string
	value Value
}

type fakeFrame struct {
	receiver Value
	name     string
	source   SourceFile
	line     int
	args     []Value
	locals   []fakeLocal
	setErr   error
}

func (f *fakeFrame) Receiver() Value    { return f.receiver }
func (f *fakeFrame) Name() string       { return f.name }
func (f *fakeFrame) Source() SourceFile { return f.source }
func (f *fakeFrame) Line() int          { return f.line }
func (f *fakeFrame) NumArgs() int       { return len(f.args) }
func (f *fakeFrame) Arg(i int) Value    { return f.args[i] }
func (f *fakeFrame) NumLocals() int     { return len(f.locals) }

func (f *fakeFrame) Local(i int) (string, Value) {
	return f.locals[i].name, f.locals[i].value
}

func (f *fakeFrame) SetArg(i int, v Value) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.args[i] = v
	return nil
}

func (f *fakeFrame) SetLocal(i int, v Value) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.locals[i].value = v
	return nil
}

// fakeEngine records breakpoint calls and serves a fixed stack.
type fakeEngine struct {
	modules []Module
	frames  []*fakeFrame
	current string

	// Lines InstallBreakpoint accepts, per file; nil accepts all
	codeLines map[string]map[int]bool
	clearErr  error

	installed []string
	cleared   []string
}

func (e *fakeEngine) Frame(index int) (Frame, bool) {
	if index < 0 || index >= len(e.frames) {
		return nil, false
	}
	return e.frames[index], true
}

func (e *fakeEngine) Modules() []Module   { return e.modules }
func (e *fakeEngine) CurrentFile() string { return e.current }

func (e *fakeEngine) InstallBreakpoint(file SourceFile, line int) error {
	if e.codeLines != nil && !e.codeLines[file.Name()][line] {
		return fmt.Errorf("no code at line %d", line)
	}
	e.installed = append(e.installed, fmt.Sprintf("%s:%d", file.Name(), line))
	return nil
}

func (e *fakeEngine) ClearBreakpoint(file SourceFile, line int) error {
	if e.clearErr != nil {
		return e.clearErr
	}
	e.cleared = append(e.cleared, fmt.Sprintf("%s:%d", file.Name(), line))
	return nil
}

// scriptPlatform feeds a fixed list of lines and records prompts and
// exit codes.
type scriptPlatform struct {
	lines   []string
	prompts []string
	exits   []int

	// Called before a line is returned, by position
	hooks map[int]func()
	read  int
}

func (p *scriptPlatform) ReadLine(prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.read >= len(p.lines) {
		return "", io.EOF
	}
	n := p.read
	p.read++
	if hook := p.hooks[n]; hook != nil {
		hook()
	}
	return p.lines[n], nil
}

func (p *scriptPlatform) Exit(code int) {
	p.exits = append(p.exits, code)
}

// memFS is an in-memory FileSystem.
type memFS struct {
	files map[string][]byte
	sizes map[string]int64
	reads int
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	m.reads++
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *memFS) Stat(path string) (fs.FileInfo, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	size := int64(len(data))
	if s, ok := m.sizes[path]; ok {
		size = s
	}
	return memInfo{name: path, size: size}, nil
}

type memInfo struct {
	name string
	size int64
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() fs.FileMode  { return 0o644 }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return false }
func (i memInfo) Sys() any           { return nil }

// fakeWatcher reports a queued set of changed files once.
type fakeWatcher struct {
	pending []string
}

func (w *fakeWatcher) Changed() []string {
	out := w.pending
	w.pending = nil
	return out
}

var errSetRejected = errors.New("slot is read-only")

// newTestProgram builds a program with one module holding main.lua:
//
//	1 local function add(a, b)
//	...
//	5 end
//	...
//	8 function Point:move(dx)
//	...
//	12 end
func newTestProgram() (*fakeEngine, *fakeSource) {
	add := &fakeMethod{name: "add", first: 1, last: 5, args: []string{"a", "b"}}
	move := &fakeMethod{name: "Point:move", first: 8, last: 12, args: []string{"self", "dx"}}
	chunk := &fakeMethod{name: "main", first: 0, last: 20}
	src := &fakeSource{name: "main.lua", methods: []Method{chunk, add, move}}
	util := &fakeSource{name: "lib/util.lua"}

	eng := &fakeEngine{
		modules: []Module{
			&fakeModule{name: "main", files: []SourceFile{src}},
			&fakeModule{name: "util", files: []SourceFile{util}},
		},
		current: "main.lua",
	}
	return eng, src
}

const testSource = "local function add(a, b)\n" +
	"  local sum = a + b\n" +
	"  local label = \"sum\"\n" +
	"  return sum\n" +
	"end\n" +
	"\n" +
	"local Point = {}\n" +
	"function Point:move(dx)\n" +
	"  self.x = self.x + dx\n" +
	"  local moved = true\n" +
	"  return self\n" +
	"end\n"

func newTestFS() *memFS {
	return &memFS{files: map[string][]byte{
		"main.lua":     []byte(testSource),
		"lib/util.lua": []byte("return {}\n"),
	}}
}
