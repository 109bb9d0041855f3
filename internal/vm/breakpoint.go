package vm

import (
	"fmt"
	"sort"

	"github.com/dshills/luadbg/internal/console"
)

type location struct {
	file string
	line int
}

func (l location) String() string {
	return fmt.Sprintf("%s:%d", l.file, l.line)
}

// InstallBreakpoint implements console.Engine. Only lines that carry code
// are accepted. Installing the same location twice counts twice.
func (s *State) InstallBreakpoint(file console.SourceFile, line int) error {
	sf, ok := s.files[file.Name()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, file.Name())
	}
	if !sf.HasCode(line) {
		return fmt.Errorf("%w %d of %s", ErrNoCode, line, sf.name)
	}

	loc := location{file: sf.name, line: line}
	s.breakpoints[loc]++
	s.logger.Debug("installed breakpoint at %s (count %d)", loc, s.breakpoints[loc])
	return nil
}

// ClearBreakpoint implements console.Engine.
func (s *State) ClearBreakpoint(file console.SourceFile, line int) error {
	loc := location{file: file.Name(), line: line}
	n := s.breakpoints[loc]
	if n == 0 {
		return fmt.Errorf("%w at %s", ErrBreakpointNotInstalled, loc)
	}
	if n == 1 {
		delete(s.breakpoints, loc)
	} else {
		s.breakpoints[loc] = n - 1
	}
	s.logger.Debug("cleared breakpoint at %s", loc)
	return nil
}

// BreakpointCount returns how many times a breakpoint is installed at
// line of file.
func (s *State) BreakpointCount(file string, line int) int {
	return s.breakpoints[location{file: file, line: line}]
}

// Breakpoints returns the installed locations as "file:line", sorted.
func (s *State) Breakpoints() []string {
	out := make([]string, 0, len(s.breakpoints))
	for loc := range s.breakpoints {
		out = append(out, loc.String())
	}
	sort.Strings(out)
	return out
}
