package console

import (
	"fmt"
	"io"
	"strings"
)

// FrameFormatter renders frames of the engine's call stack.
type FrameFormatter struct {
	engine Engine
}

// NewFrameFormatter creates a formatter over engine.
func NewFrameFormatter(engine Engine) *FrameFormatter {
	return &FrameFormatter{engine: engine}
}

// ResolveMethod finds the function of the frame's source file whose line
// range contains the frame's current line. Nested functions win over the
// functions enclosing them.
func ResolveMethod(fr Frame) (Method, bool) {
	src := fr.Source()
	line := fr.Line()
	if src == nil || line <= 0 {
		return nil, false
	}

	var best Method
	for _, m := range src.Methods() {
		if line < m.FirstLine() || line > m.LastLine() {
			continue
		}
		if best == nil || m.LastLine()-m.FirstLine() < best.LastLine()-best.FirstLine() {
			best = m
		}
	}
	return best, best != nil
}

func formatValue(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Format()
}

// FormatFrame renders frame index as
//
//	#<index> [<receiver>] <method>(<name>=<value>, ...) at <file>:<line>
//
// ok is false when there is no frame at index.
func (f *FrameFormatter) FormatFrame(index int) (text string, ok bool) {
	fr, ok := f.engine.Frame(index)
	if !ok {
		return "", false
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d ", index)
	if recv := fr.Receiver(); recv != nil {
		fmt.Fprintf(&sb, "[%s] ", recv.Format())
	}

	method, resolved := ResolveMethod(fr)
	switch {
	case resolved:
		sb.WriteString(method.Name())
	case fr.Name() != "":
		sb.WriteString(fr.Name())
	default:
		sb.WriteString("???")
	}

	sb.WriteByte('(')
	for i := 0; i < fr.NumArgs(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		if resolved && i < method.NumArgs() {
			sb.WriteString(method.ArgName(i))
			sb.WriteByte('=')
		}
		sb.WriteString(formatValue(fr.Arg(i)))
	}
	sb.WriteString(") ")

	if src := fr.Source(); src != nil && fr.Line() > 0 {
		fmt.Fprintf(&sb, "at %s:%d", src.Name(), fr.Line())
	} else {
		sb.WriteString("???")
	}
	return sb.String(), true
}

// frameWithMethod returns frame index and its resolved method.
func (f *FrameFormatter) frameWithMethod(index int) (Frame, Method, error) {
	fr, ok := f.engine.Frame(index)
	if !ok {
		return nil, nil, fmt.Errorf("no frame %d", index)
	}
	method, ok := ResolveMethod(fr)
	if !ok {
		return nil, nil, fmt.Errorf("%w for frame %d", ErrMissingDebugInfo, index)
	}
	return fr, method, nil
}

// FormatLocals writes "<position>: <name> = <value>" for every local of
// frame index. Locals without a debug name get a positional placeholder.
func (f *FrameFormatter) FormatLocals(w io.Writer, index int) error {
	fr, _, err := f.frameWithMethod(index)
	if err != nil {
		return err
	}
	if fr.NumLocals() == 0 {
		fmt.Fprintln(w, "No locals.")
		return nil
	}
	for i := 0; i < fr.NumLocals(); i++ {
		name, v := fr.Local(i)
		if name == "" {
			name = fmt.Sprintf("(local %d)", i)
		}
		fmt.Fprintf(w, "%d: %s = %s\n", i, name, formatValue(v))
	}
	return nil
}

// FormatArguments writes "<position>: <name> = <value>" for every
// argument of frame index.
func (f *FrameFormatter) FormatArguments(w io.Writer, index int) error {
	fr, method, err := f.frameWithMethod(index)
	if err != nil {
		return err
	}
	if fr.NumArgs() == 0 {
		fmt.Fprintln(w, "No arguments.")
		return nil
	}
	for i := 0; i < fr.NumArgs(); i++ {
		name := ""
		if i < method.NumArgs() {
			name = method.ArgName(i)
		}
		if name == "" {
			name = fmt.Sprintf("(arg %d)", i)
		}
		fmt.Fprintf(w, "%d: %s = %s\n", i, name, formatValue(fr.Arg(i)))
	}
	return nil
}

// Backtrace writes every frame, innermost first, and returns the count.
func (f *FrameFormatter) Backtrace(w io.Writer) int {
	n := 0
	for {
		text, ok := f.FormatFrame(n)
		if !ok {
			return n
		}
		fmt.Fprintln(w, text)
		n++
	}
}
