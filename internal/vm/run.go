package vm

import (
	"context"
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luadbg/internal/console"
)

// Run executes the main chunk of m. Every error raised by the script
// enters the console through OnException while the failing stack is
// still live, whether or not a pcall catches it. An uncaught error then
// makes Run return a *RuntimeError. Quitting from the console returns
// ErrQuit.
func (s *State) Run(ctx context.Context, m *Module) error {
	if s.closed {
		return ErrStateClosed
	}
	s.quitting = false
	s.reported = nil

	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	if s.stopOnEntry && s.console != nil {
		s.logger.Debug("stop on entry of %s", m.name)
		if s.resume(s.console.Enter()) == console.ResumeQuit {
			return ErrQuit
		}
	}

	top := s.L.GetTop()
	err := doWithRecovery(func() error {
		s.L.Push(m.fn)
		return s.L.PCall(0, lua.MultRet, s.L.NewFunction(s.errorHandler(ctx)))
	})
	s.L.SetTop(top)

	switch {
	case s.quitting:
		return ErrQuit
	case err != nil:
		return &RuntimeError{Module: m.name, Err: err}
	}
	return nil
}

// errorHandler returns the message handler of the main chunk's
// protected call. It runs on top of the failing stack.
func (s *State) errorHandler(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		obj := L.Get(1)
		seen := s.reported != nil && obj == s.reported
		s.reported = nil
		if s.console != nil && !s.quitting && !seen && ctx.Err() == nil {
			desc := L.ToStringMeta(obj).String()
			s.logger.Info("uncaught error: %s", desc)
			if mode, handled := s.console.OnException(desc); handled && s.resume(mode) == console.ResumeQuit {
				s.quitting = true
			}
		}
		L.Push(obj)
		return 1
	}
}

// errorBuiltin replaces the global error(). The console sees the raised
// value before it unwinds, so errors a pcall catches are reported too.
func (s *State) errorBuiltin(L *lua.LState) int {
	obj := L.CheckAny(1)
	level := L.OptInt(2, 1)

	if str, ok := obj.(lua.LString); ok && level > 0 {
		if where := L.Where(level); where != "" {
			obj = lua.LString(where + " " + string(str))
		}
	}
	if s.console != nil && !s.quitting && (L.Context() == nil || L.Context().Err() == nil) {
		desc := L.ToStringMeta(obj).String()
		s.logger.Info("error raised: %s", desc)
		mode, handled := s.console.OnException(desc)
		if handled && s.resume(mode) == console.ResumeQuit {
			s.quitting = true
			L.RaiseError("%s", ErrQuit)
		}
		s.reported = obj
	}
	L.Error(obj, 0)
	return 0
}

// debuggerBuiltin is the global debugger(): a scripted suspension point.
func (s *State) debuggerBuiltin(L *lua.LState) int {
	if s.console == nil || s.quitting {
		return 0
	}
	if s.resume(s.console.Enter()) == console.ResumeQuit {
		s.quitting = true
		L.RaiseError("%s", ErrQuit)
	}
	return 0
}

// resume records the mode the console was left with.
func (s *State) resume(mode console.ResumeMode) console.ResumeMode {
	s.lastResume = mode
	switch mode {
	case console.ResumeNext, console.ResumeStep, console.ResumeFinish:
		s.logger.Debug("resume %s runs to the next suspension point", mode)
	default:
		s.logger.Debug("resume %s", mode)
	}
	return mode
}

// IsQuit reports whether err ends the debugged program by operator
// request.
func IsQuit(err error) bool {
	return errors.Is(err, ErrQuit)
}
