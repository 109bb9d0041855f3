package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// dispatch runs cmd. done is true when the command loop must return mode.
func (s *Session) dispatch(act *activation, cmd Command) (mode ResumeMode, done bool) {
	switch c := cmd.(type) {
	case CommentCommand, AmbiguousCommand:
	case UnknownCommand:
		s.report(fmt.Errorf("%w %q; try \"help\"", ErrUnknownCommand, c.Name))
	case HelpCommand:
		s.help(c)
	case InfoCommand:
		s.info(c)
	case BreakCommand:
		s.setBreakpoint(c)
	case DeleteCommand:
		s.deleteBreakpoint(c)
	case ListCommand:
		s.list(act, c)
	case PrintCommand:
		fmt.Fprintln(s.out, "print: not implemented")
	case SetCommand:
		s.set(c)
	case BacktraceCommand:
		s.backtrace()
	case QuitCommand:
		s.platform.Exit(0)
		return ResumeQuit, true
	case ResumeCommand:
		return c.Mode, true
	default:
		panic(fmt.Sprintf("console: unhandled command %T", cmd))
	}
	return ResumeContinue, false
}

// report prints err to the operator.
func (s *Session) report(err error) {
	s.logger.Debug("%v", err)
	fmt.Fprintf(s.out, "%v.\n", err)
}

func (s *Session) help(c HelpCommand) {
	if c.Topic == "" {
		fmt.Fprintln(s.out, "Commands:")
		seen := make(map[CommandID]bool)
		for _, e := range topLevelCommands {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			fmt.Fprintf(s.out, "  %s\n", commandHelp[e.ID])
		}
		return
	}

	switch id := Resolve(s.out, topLevelCommands, c.Topic, CmdUnknown); id {
	case CmdAmbiguous:
	case CmdInfo:
		fmt.Fprintln(s.out, "Info topics:")
		for _, e := range infoCommands {
			fmt.Fprintf(s.out, "  %s\n", commandHelp[e.ID])
		}
	case CmdUnknown, CmdComment:
		s.report(NewOperationError("help", c.Topic, ErrUnknownCommand))
	default:
		fmt.Fprintln(s.out, commandHelp[id])
	}
}

func (s *Session) info(c InfoCommand) {
	switch c.Topic {
	case CmdAmbiguous:
	case InfoArguments, InfoLocals:
		index := 0
		if len(c.Args) > 0 {
			n, err := strconv.Atoi(c.Args[0])
			if err != nil || n < 0 {
				fmt.Fprintf(s.out, "Bad frame number %q.\n", c.Args[0])
				return
			}
			index = n
		}
		var err error
		if c.Topic == InfoLocals {
			err = s.frames.FormatLocals(s.out, index)
		} else {
			err = s.frames.FormatArguments(s.out, index)
		}
		if err != nil {
			s.report(err)
		}
	case InfoBreakpoints:
		s.listBreakpoints()
	case InfoFiles:
		s.listFiles()
	case InfoFunctions:
		s.listFunctions()
	case InfoStack:
		s.backtrace()
	default:
		if c.Name == "" {
			names := make([]string, len(infoCommands))
			for i, e := range infoCommands {
				names[i] = e.Text
			}
			fmt.Fprintf(s.out, "\"info\" must be followed by a topic: %s.\n", strings.Join(names, ", "))
			return
		}
		fmt.Fprintf(s.out, "Undefined info command %q. Try \"help info\".\n", c.Name)
	}
}

func (s *Session) listBreakpoints() {
	bps := s.breakpoints.List()
	if len(bps) == 0 {
		fmt.Fprintln(s.out, "No breakpoints.")
		return
	}
	fmt.Fprintln(s.out, "Num\tWhere")
	for _, bp := range bps {
		fmt.Fprintf(s.out, "%d\t%s\n", bp.ID, bp)
	}
}

func (s *Session) listFiles() {
	modules := s.engine.Modules()
	if len(modules) == 0 {
		s.report(ErrNoSourceLoaded)
		return
	}
	for _, m := range modules {
		for _, sf := range m.SourceFiles() {
			fmt.Fprintf(s.out, "%s\t(module %s)\n", sf.Name(), m.Name())
		}
	}
}

func (s *Session) listFunctions() {
	modules := s.engine.Modules()
	if len(modules) == 0 {
		s.report(ErrNoSourceLoaded)
		return
	}
	for _, m := range modules {
		for _, sf := range m.SourceFiles() {
			for _, fn := range sf.Methods() {
				fmt.Fprintf(s.out, "%s\t%s:%d-%d\n", fn.Name(), sf.Name(), fn.FirstLine(), fn.LastLine())
			}
		}
	}
}

func (s *Session) backtrace() {
	if s.frames.Backtrace(s.out) == 0 {
		fmt.Fprintln(s.out, "No stack.")
	}
}

func (s *Session) setBreakpoint(c BreakCommand) {
	sf, line, err := ResolveLocation(s.engine.Modules(), c.Location, s.sources.Filename())
	if err != nil {
		s.report(NewOperationError("break", c.Location, err))
		return
	}

	bp, err := s.breakpoints.Add(sf, sf.Name(), line)
	if err != nil {
		s.report(NewOperationError("break", c.Location, err))
		return
	}
	s.logger.Debug("breakpoint %d registered at %s", bp.ID, bp)
	fmt.Fprintf(s.out, "Breakpoint %d at %s\n", bp.ID, bp)

	if sf.Name() != s.sources.Filename() {
		s.sources.SetCurrent(sf.Name())
	}
}

func (s *Session) deleteBreakpoint(c DeleteCommand) {
	if c.BreakpointID == "" {
		fmt.Fprintln(s.out, "Usage: delete <breakpoint-id>")
		return
	}
	id, err := strconv.Atoi(c.BreakpointID)
	if err != nil {
		fmt.Fprintf(s.out, "Bad breakpoint number %q.\n", c.BreakpointID)
		return
	}

	err = s.breakpoints.Remove(id)
	switch {
	case err == nil:
		fmt.Fprintf(s.out, "Deleted breakpoint %d\n", id)
	case errors.Is(err, ErrBreakpointNotFound):
		fmt.Fprintf(s.out, "No breakpoint number %d.\n", id)
	default:
		s.logger.Error("delete breakpoint %d: %v", id, err)
		s.report(err)
	}
}

func (s *Session) list(act *activation, c ListCommand) {
	if s.sources.Filename() == "" {
		s.report(ErrNoSourceLoaded)
		return
	}

	var start int
	switch {
	case c.Line != "":
		n, err := strconv.Atoi(c.Line)
		if err != nil || n <= 0 {
			fmt.Fprintf(s.out, "Bad line number %q.\n", c.Line)
			return
		}
		start = n
	case act.listNext > 0:
		start = act.listNext
	default:
		start = 1
		if fr, ok := s.engine.Frame(0); ok && fr.Source() != nil && fr.Source().Name() == s.sources.Filename() && fr.Line() > 0 {
			start = fr.Line()
		}
	}

	printed := s.sources.DisplayWindow(s.out, start, s.listSize)
	act.listNext = start + printed
}

func (s *Session) set(c SetCommand) {
	if c.Name == "" || c.Assign != "=" || c.Literal == "" {
		fmt.Fprintln(s.out, "Usage: set <name> = <literal>")
		return
	}

	fr, ok := s.engine.Frame(0)
	if !ok {
		fmt.Fprintln(s.out, "No stack.")
		return
	}
	method, ok := ResolveMethod(fr)
	if !ok {
		s.report(NewOperationError("set", c.Name, ErrMissingDebugInfo))
		return
	}

	exemplar, assign, found := lookupVariable(fr, method, c.Name)
	if !found {
		fmt.Fprintf(s.out, "No variable %q in the current frame.\n", c.Name)
		return
	}

	v := Coerce(c.Literal, exemplar)
	if v == NoConversion {
		kind := KindNil
		if exemplar != nil {
			kind = exemplar.Kind()
		}
		s.report(NewOperationError("set", c.Name,
			fmt.Errorf("%w: cannot assign %q to a %s", ErrTypeMismatch, c.Literal, kind)))
		return
	}

	if err := assign(v); err != nil {
		s.report(NewOperationError("set", c.Name, err))
		return
	}
	fmt.Fprintf(s.out, "%s = %s\n", c.Name, v.Format())
}

// lookupVariable finds name among the frame's locals, innermost
// declaration first, then among its arguments.
func lookupVariable(fr Frame, method Method, name string) (Value, func(Value) error, bool) {
	for i := fr.NumLocals() - 1; i >= 0; i-- {
		if n, v := fr.Local(i); n == name {
			slot := i
			return v, func(nv Value) error { return fr.SetLocal(slot, nv) }, true
		}
	}
	for i := 0; i < fr.NumArgs() && i < method.NumArgs(); i++ {
		if method.ArgName(i) == name {
			slot := i
			return fr.Arg(i), func(nv Value) error { return fr.SetArg(slot, nv) }, true
		}
	}
	return nil, nil, false
}
