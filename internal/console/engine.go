package console

import (
	"strconv"
)

// Kind classifies a runtime value for display and coercion.
type Kind int

const (
	// KindNil is the absent value.
	KindNil Kind = iota
	// KindBool is a boolean.
	KindBool
	// KindNumber is a number.
	KindNumber
	// KindString is a string.
	KindString
	// KindObject is anything else (tables, functions, userdata).
	KindObject
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a runtime value as seen by the console.
type Value interface {
	// Kind returns the runtime type class of the value.
	Kind() Kind

	// Format returns the display form of the value.
	Format() string
}

// Number is a numeric literal produced by coercion.
type Number float64

// Kind implements Value.
func (Number) Kind() Kind { return KindNumber }

// Format implements Value.
func (n Number) Format() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

// Bool is a boolean literal produced by coercion.
type Bool bool

// Kind implements Value.
func (Bool) Kind() Kind { return KindBool }

// Format implements Value.
func (b Bool) Format() string {
	return strconv.FormatBool(bool(b))
}

// String is a string literal produced by coercion.
type String string

// Kind implements Value.
func (String) Kind() Kind { return KindString }

// Format implements Value.
func (s String) Format() string {
	return strconv.Quote(string(s))
}

type noConversion struct{}

func (noConversion) Kind() Kind     { return KindNil }
func (noConversion) Format() string { return "<no conversion>" }

// NoConversion is returned by Coerce when a literal cannot take the
// exemplar's type.
var NoConversion Value = noConversion{}

// Method is the static debug information of one function.
type Method interface {
	// Name returns the function name.
	Name() string

	// FirstLine returns the line the function is defined on.
	FirstLine() int

	// LastLine returns the line the function definition ends on.
	LastLine() int

	// NumArgs returns the number of declared parameters.
	NumArgs() int

	// ArgName returns the name of parameter i (0-based).
	ArgName(i int) string
}

// SourceFile is a named source file of a loaded module.
type SourceFile interface {
	// Name returns the file name as the engine knows it.
	Name() string

	// Methods returns the functions defined in the file.
	Methods() []Method
}

// Module is a loaded program unit.
type Module interface {
	// Name returns the module name.
	Name() string

	// SourceFiles returns the source files of the module.
	SourceFiles() []SourceFile
}

// Frame is one activation record of the paused call stack.
type Frame interface {
	// Receiver returns the receiver value, or nil if the frame has none.
	Receiver() Value

	// Name returns the name the engine reports for the frame's function,
	// or "" when unknown.
	Name() string

	// Source returns the frame's source file, or nil when unknown.
	Source() SourceFile

	// Line returns the current line, or 0 when unknown.
	Line() int

	// NumArgs returns the number of arguments.
	NumArgs() int

	// Arg returns argument i (0-based).
	Arg(i int) Value

	// SetArg overwrites argument i.
	SetArg(i int, v Value) error

	// NumLocals returns the number of locals, arguments excluded.
	NumLocals() int

	// Local returns local i (0-based) and its debug name. The name is ""
	// when the local has no debug name.
	Local(i int) (string, Value)

	// SetLocal overwrites local i.
	SetLocal(i int, v Value) error
}

// Engine is the execution engine the console inspects.
type Engine interface {
	// Frame returns the frame at index, 0 being the innermost.
	Frame(index int) (Frame, bool)

	// Modules returns the loaded modules in load order.
	Modules() []Module

	// CurrentFile returns the name of the file execution is paused in,
	// or "" when unknown.
	CurrentFile() string

	// InstallBreakpoint installs a breakpoint at line of file.
	InstallBreakpoint(file SourceFile, line int) error

	// ClearBreakpoint removes a breakpoint previously installed.
	ClearBreakpoint(file SourceFile, line int) error
}

// Platform provides line input and process exit.
type Platform interface {
	// ReadLine blocks for one line of input without its terminator.
	// It returns io.EOF at end of input.
	ReadLine(prompt string) (string, error)

	// Exit terminates the process.
	Exit(code int)
}
