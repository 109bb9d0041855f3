package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/dshills/luadbg/internal/console"
)

// Module is one loaded chunk. It owns a single source file.
type Module struct {
	name string
	file *SourceFile
	fn   *lua.LFunction
}

// Name returns the module name, the chunk's file name without extension.
func (m *Module) Name() string { return m.name }

// SourceFiles implements console.Module.
func (m *Module) SourceFiles() []console.SourceFile {
	return []console.SourceFile{m.file}
}

// File returns the module's source file.
func (m *Module) File() *SourceFile { return m.file }

// SourceFile is the debug information of one chunk.
type SourceFile struct {
	name    string
	methods []console.Method

	// Lines holding at least one instruction
	code map[int]bool
}

// Name returns the chunk name the file was compiled under.
func (f *SourceFile) Name() string { return f.name }

// Methods returns the functions of the file, outer before inner.
func (f *SourceFile) Methods() []console.Method { return f.methods }

// HasCode reports whether any instruction was compiled from line.
func (f *SourceFile) HasCode(line int) bool { return f.code[line] }

// CodeLines returns the lines holding instructions, ascending.
func (f *SourceFile) CodeLines() []int {
	lines := make([]int, 0, len(f.code))
	for l := range f.code {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}

// Method is the debug information of one Lua function.
type Method struct {
	name        string
	first, last int
	params      []string
}

func (m *Method) Name() string         { return m.name }
func (m *Method) FirstLine() int       { return m.first }
func (m *Method) LastLine() int        { return m.last }
func (m *Method) NumArgs() int         { return len(m.params) }
func (m *Method) ArgName(i int) string { return m.params[i] }

// LoadFile compiles the chunk at path and registers it as a module.
func (s *State) LoadFile(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.load(path, bufio.NewReader(f))
}

// LoadString compiles code under the chunk name name and registers it as
// a module.
func (s *State) LoadString(name, code string) (*Module, error) {
	return s.load(name, strings.NewReader(code))
}

func (s *State) load(name string, r io.Reader) (*Module, error) {
	if s.closed {
		return nil, ErrStateClosed
	}

	chunk, err := parse.Parse(r, name)
	if err != nil {
		return nil, &CompileError{Name: name, Err: err}
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, &CompileError{Name: name, Err: err}
	}

	file := newSourceFile(name, proto, functionNames(chunk))
	m := &Module{
		name: moduleName(name),
		file: file,
		fn:   s.L.NewFunctionFromProto(proto),
	}
	s.modules = append(s.modules, m)
	if _, dup := s.files[name]; !dup {
		s.files[name] = file
	}
	s.logger.Debug("loaded module %s from %s (%d functions)", m.name, name, len(file.methods))
	return m, nil
}

func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// newSourceFile flattens the nested prototypes of a compiled chunk. The
// main chunk itself is not a method.
func newSourceFile(name string, main *lua.FunctionProto, names *nameTable) *SourceFile {
	f := &SourceFile{name: name, code: make(map[int]bool)}

	var walk func(p *lua.FunctionProto, isMain bool)
	walk = func(p *lua.FunctionProto, isMain bool) {
		for _, line := range p.DbgSourcePositions {
			if line > 0 {
				f.code[line] = true
			}
		}
		if !isMain {
			f.methods = append(f.methods, newMethod(p, names))
		}
		for _, child := range p.FunctionPrototypes {
			walk(child, false)
		}
	}
	walk(main, true)
	return f
}

func newMethod(p *lua.FunctionProto, names *nameTable) *Method {
	m := &Method{
		first: p.LineDefined,
		last:  p.LastLineDefined,
	}
	m.name = names.take(p.LineDefined, p.LastLineDefined)
	if m.name == "" {
		m.name = fmt.Sprintf("function@%d", p.LineDefined)
	}

	n := int(p.NumParameters)
	for i := 0; i < n && i < len(p.DbgLocals); i++ {
		m.params = append(m.params, p.DbgLocals[i].Name)
	}
	return m
}

// Modules implements console.Engine.
func (s *State) Modules() []console.Module {
	out := make([]console.Module, len(s.modules))
	for i, m := range s.modules {
		out[i] = m
	}
	return out
}

// SourceFile returns the loaded file compiled under name.
func (s *State) SourceFile(name string) (*SourceFile, bool) {
	f, ok := s.files[name]
	return f, ok
}

// CurrentFile implements console.Engine. It is the file of the innermost
// Lua frame, or the most recently loaded chunk when nothing runs.
func (s *State) CurrentFile() string {
	if fr, ok := s.Frame(0); ok {
		if src := fr.Source(); src != nil {
			return src.Name()
		}
	}
	if n := len(s.modules); n > 0 {
		return s.modules[n-1].file.name
	}
	return ""
}
