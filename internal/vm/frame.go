package vm

import (
	"fmt"
	"reflect"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luadbg/internal/console"
)

// maxStackLevels bounds the walk over the Lua call stack.
const maxStackLevels = 1 << 16

// Frame is one Lua activation record of the paused stack. It is only
// valid while the stack it was taken from is suspended.
type Frame struct {
	L    *lua.LState
	dbg  *lua.Debug
	fn   *lua.LFunction
	file *SourceFile

	// Names of the active locals past the parameters, in register order
	localNames []string

	// Frame runs the main chunk of a module
	main bool
}

// Frame implements console.Engine. Index 0 is the innermost Lua frame;
// frames of Go functions are skipped.
func (s *State) Frame(index int) (console.Frame, bool) {
	fr, ok := s.luaFrame(index)
	if !ok {
		return nil, false
	}
	return fr, true
}

func (s *State) luaFrame(index int) (*Frame, bool) {
	if index < 0 || s.closed {
		return nil, false
	}

	n := 0
	for level := 0; level < maxStackLevels; level++ {
		dbg, ok := s.L.GetStack(level)
		if !ok {
			return nil, false
		}
		fv, err := s.L.GetInfo("Slnf", dbg, lua.LNil)
		if err != nil {
			continue
		}
		fn, ok := fv.(*lua.LFunction)
		if !ok || fn.IsG || fn.Proto == nil {
			continue
		}
		if n == index {
			return s.newFrame(dbg, fn), true
		}
		n++
	}
	return nil, false
}

func (s *State) newFrame(dbg *lua.Debug, fn *lua.LFunction) *Frame {
	fr := &Frame{
		L:    s.L,
		dbg:  dbg,
		fn:   fn,
		file: s.files[fn.Proto.SourceName],
		main: dbg.What == "main" || s.isMainProto(fn.Proto),
	}
	if pc, ok := framePC(dbg); ok {
		fr.localNames = activeLocals(fn.Proto, pc-1)[fr.NumArgs():]
		return fr
	}
	for no := fr.NumArgs() + 1; ; no++ {
		name, _ := s.L.GetLocal(dbg, no)
		if name == "" || name == "(*temporary)" {
			break
		}
		fr.localNames = append(fr.localNames, name)
	}
	return fr
}

// framePC returns the program counter of the call frame behind dbg.
// The Debug record does not export it.
func framePC(dbg *lua.Debug) (int, bool) {
	frame := reflect.ValueOf(dbg).Elem().FieldByName("frame")
	if !frame.IsValid() || frame.Kind() != reflect.Pointer || frame.IsNil() {
		return 0, false
	}
	pc := frame.Elem().FieldByName("Pc")
	if !pc.IsValid() || !pc.CanInt() {
		return 0, false
	}
	return int(pc.Int()), true
}

// activeLocals lists the names of the locals in scope at pc, in
// register order, parameters first. A local is still in scope at its
// EndPc; the instruction there is the last one of its block.
func activeLocals(p *lua.FunctionProto, pc int) []string {
	names := make([]string, 0, len(p.DbgLocals))
	for i, l := range p.DbgLocals {
		param := i < int(p.NumParameters)
		if !param && l.StartPc >= pc {
			break
		}
		if param || pc <= l.EndPc {
			names = append(names, l.Name)
		}
	}
	for len(names) < int(p.NumParameters) {
		names = append(names, "")
	}
	return names
}

// Receiver returns the value of a first parameter named self.
func (f *Frame) Receiver() console.Value {
	p := f.fn.Proto
	if p.NumParameters == 0 || len(p.DbgLocals) == 0 || p.DbgLocals[0].Name != "self" {
		return nil
	}
	return f.Arg(0)
}

// Name returns the name the call site used for the function.
func (f *Frame) Name() string {
	if f.main {
		return "main chunk"
	}
	if f.dbg.Name == "?" {
		return ""
	}
	return f.dbg.Name
}

// Source returns the frame's source file, or nil for chunks not loaded
// through the State.
func (f *Frame) Source() console.SourceFile {
	if f.file == nil {
		return nil
	}
	return f.file
}

// Line returns the line being executed, or 0 when unknown.
func (f *Frame) Line() int {
	if f.dbg.CurrentLine < 0 {
		return 0
	}
	return f.dbg.CurrentLine
}

// NumArgs returns the number of declared parameters.
func (f *Frame) NumArgs() int {
	return int(f.fn.Proto.NumParameters)
}

// Arg returns parameter i.
func (f *Frame) Arg(i int) console.Value {
	_, lv := f.L.GetLocal(f.dbg, i+1)
	return NewValue(lv)
}

// SetArg overwrites parameter i.
func (f *Frame) SetArg(i int, v console.Value) error {
	if i < 0 || i >= f.NumArgs() {
		return fmt.Errorf("%w: argument %d", ErrNoSuchSlot, i)
	}
	return f.set(i+1, v)
}

// NumLocals returns the number of active locals past the parameters.
func (f *Frame) NumLocals() int {
	return len(f.localNames)
}

// Local returns local i and its name. Compiler-generated locals such
// as loop state are reported without a name.
func (f *Frame) Local(i int) (string, console.Value) {
	if i < 0 || i >= len(f.localNames) {
		return "", NewValue(lua.LNil)
	}
	name := f.localNames[i]
	_, lv := f.L.GetLocal(f.dbg, f.NumArgs()+1+i)
	if strings.HasPrefix(name, "(") {
		name = ""
	}
	return name, NewValue(lv)
}

// SetLocal overwrites local i.
func (f *Frame) SetLocal(i int, v console.Value) error {
	if i < 0 || i >= len(f.localNames) {
		return fmt.Errorf("%w: local %d", ErrNoSuchSlot, i)
	}
	return f.set(f.NumArgs()+1+i, v)
}

func (f *Frame) set(no int, v console.Value) error {
	lv, err := toLValue(v)
	if err != nil {
		return err
	}
	if f.L.SetLocal(f.dbg, no, lv) == "" {
		return fmt.Errorf("%w: slot %d", ErrNoSuchSlot, no)
	}
	return nil
}

func (s *State) isMainProto(p *lua.FunctionProto) bool {
	for _, m := range s.modules {
		if m.fn.Proto == p {
			return true
		}
	}
	return false
}
