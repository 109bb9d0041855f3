package console

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Breakpoint is a user-registered suspension point.
type Breakpoint struct {
	// ID is assigned from a session counter starting at 1 and never reused.
	ID int

	// File is the engine's source file handle.
	File SourceFile

	// Filename is the display name of the file.
	Filename string

	// Line is the line number (1-based).
	Line int
}

// String returns the breakpoint location as "file:line".
func (bp *Breakpoint) String() string {
	return fmt.Sprintf("%s:%d", bp.Filename, bp.Line)
}

// BreakpointRegistry tracks the breakpoints of one session and mirrors
// them into the engine.
type BreakpointRegistry struct {
	engine Engine

	// Registration order
	order []*Breakpoint

	// Breakpoints by ID
	byID map[int]*Breakpoint

	// Next breakpoint ID
	nextID int
}

// NewBreakpointRegistry creates an empty registry backed by engine.
func NewBreakpointRegistry(engine Engine) *BreakpointRegistry {
	return &BreakpointRegistry{
		engine: engine,
		byID:   make(map[int]*Breakpoint),
		nextID: 1,
	}
}

// allocateID allocates a new breakpoint ID.
func (r *BreakpointRegistry) allocateID() int {
	id := r.nextID
	r.nextID++
	return id
}

// Add installs a breakpoint at line of file and registers it. If the
// engine rejects the location nothing changes.
func (r *BreakpointRegistry) Add(file SourceFile, displayName string, line int) (*Breakpoint, error) {
	if err := r.engine.InstallBreakpoint(file, line); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBreakpointRejected, err)
	}

	bp := &Breakpoint{
		ID:       r.allocateID(),
		File:     file,
		Filename: displayName,
		Line:     line,
	}
	r.order = append(r.order, bp)
	r.byID[bp.ID] = bp
	return bp, nil
}

// Remove unregisters the breakpoint with id and clears it in the engine.
// A failure to clear is reported as ErrInternal; the breakpoint is gone
// from the registry either way.
func (r *BreakpointRegistry) Remove(id int) error {
	bp, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrBreakpointNotFound, id)
	}

	delete(r.byID, id)
	for i, b := range r.order {
		if b.ID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if err := r.engine.ClearBreakpoint(bp.File, bp.Line); err != nil {
		return fmt.Errorf("%w: clearing breakpoint %d at %s: %w", ErrInternal, id, bp, err)
	}
	return nil
}

// Get returns the breakpoint with id.
func (r *BreakpointRegistry) Get(id int) (*Breakpoint, bool) {
	bp, ok := r.byID[id]
	return bp, ok
}

// List returns all breakpoints in registration order.
func (r *BreakpointRegistry) List() []*Breakpoint {
	result := make([]*Breakpoint, len(r.order))
	copy(result, r.order)
	return result
}

// Len returns the number of registered breakpoints.
func (r *BreakpointRegistry) Len() int {
	return len(r.order)
}

// Location is a parsed "[file:]line" breakpoint target.
type Location struct {
	File string
	Line int
}

// ParseLocation parses "[file:]line". An omitted file yields File "".
func ParseLocation(s string) (Location, error) {
	if s == "" {
		return Location{}, fmt.Errorf("%w: missing location", ErrBadBreakpointSyntax)
	}

	file, lineText := "", s
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		file, lineText = s[:i], s[i+1:]
		if file == "" {
			return Location{}, fmt.Errorf("%w: empty file name in %q", ErrBadBreakpointSyntax, s)
		}
	}

	line, err := strconv.Atoi(lineText)
	if err != nil || line <= 0 {
		return Location{}, fmt.Errorf("%w: bad line number %q", ErrBadBreakpointSyntax, lineText)
	}
	return Location{File: file, Line: line}, nil
}

// FindSourceFile searches the modules in load order for a file called
// name, by full name or base name. The first match wins.
func FindSourceFile(modules []Module, name string) (SourceFile, error) {
	if len(modules) == 0 {
		return nil, ErrNoSourceLoaded
	}
	for _, m := range modules {
		for _, sf := range m.SourceFiles() {
			if sf.Name() == name || filepath.Base(sf.Name()) == name {
				return sf, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSourceFileNotFound, name)
}

// ResolveLocation turns a "[file:]line" string into a source file and
// line. current names the file used when the location has none.
func ResolveLocation(modules []Module, s, current string) (SourceFile, int, error) {
	loc, err := ParseLocation(s)
	if err != nil {
		return nil, 0, err
	}
	if len(modules) == 0 {
		return nil, 0, ErrNoSourceLoaded
	}

	name := loc.File
	if name == "" {
		name = current
	}
	if name == "" {
		return nil, 0, ErrNoSourceLoaded
	}

	sf, err := FindSourceFile(modules, name)
	if err != nil {
		return nil, 0, err
	}
	return sf, loc.Line, nil
}
