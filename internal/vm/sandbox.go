package vm

import (
	"io"

	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts what debugged scripts can reach.
type Sandbox struct {
	L      *lua.LState
	stdout io.Writer

	// Modules require may load besides preloaded ones
	allowed map[string]bool
}

// NewSandbox creates a sandbox for L. Script output goes to stdout.
func NewSandbox(L *lua.LState, stdout io.Writer) *Sandbox {
	return &Sandbox{
		L:      L,
		stdout: stdout,
		allowed: map[string]bool{
			"string":    true,
			"table":     true,
			"math":      true,
			"coroutine": true,
		},
	}
}

// Install removes the chunk loaders, routes print to the sandbox output
// and restricts require.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.installPrint()
	s.installRequire()
}

// OpenUnsafe opens io, os and debug and lets require load them.
func (s *Sandbox) OpenUnsafe() {
	lua.OpenIo(s.L)
	lua.OpenOs(s.L)
	lua.OpenDebug(s.L)
	for _, name := range []string{"io", "os", "debug"} {
		s.allowed[name] = true
	}
}

// Allowed reports whether require may load name.
func (s *Sandbox) Allowed(name string) bool {
	return s.allowed[name]
}

func (s *Sandbox) installPrint() {
	w := s.stdout
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		for i := 1; i <= top; i++ {
			if i > 1 {
				_, _ = io.WriteString(w, "\t")
			}
			_, _ = io.WriteString(w, L.ToStringMeta(L.Get(i)).String())
		}
		_, _ = io.WriteString(w, "\n")
		return 0
	}))
}

// installRequire clears the search paths and replaces require with one
// that only loads allowed and preloaded modules.
func (s *Sandbox) installRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	original := s.L.GetGlobal("require")
	if original == lua.LNil {
		return
	}

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !s.allowed[name] && !preloaded(L, name) {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(original)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}

func preloaded(L *lua.LState, name string) bool {
	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return false
	}
	preload, ok := L.GetField(pkg, "preload").(*lua.LTable)
	if !ok {
		return false
	}
	return L.GetField(preload, name) != lua.LNil
}
