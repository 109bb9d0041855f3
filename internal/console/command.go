package console

import (
	"fmt"
	"io"
	"strings"
)

// CommandID identifies a command table entry.
type CommandID int

// CmdAmbiguous is returned by Resolve when a prefix matches several
// entries and no tie-break applies. The caller takes no further action.
const CmdAmbiguous CommandID = -1

// Command identifiers of the top-level and info tables.
const (
	CmdUnknown CommandID = iota
	CmdComment
	CmdHelp
	CmdInfo
	CmdBreak
	CmdDelete
	CmdList
	CmdPrint
	CmdSet
	CmdBacktrace
	CmdQuit
	CmdContinue
	CmdNext
	CmdStep
	CmdFinish

	InfoArguments
	InfoBreakpoints
	InfoFiles
	InfoFunctions
	InfoLocals
	InfoStack
)

// CommandEntry is one row of a command table.
type CommandEntry struct {
	Text string
	ID   CommandID
}

// Table order decides which entry a single-character prefix selects
// and the order candidates are listed in for an ambiguous prefix.
var (
	topLevelCommands = []CommandEntry{
		{"break", CmdBreak},
		{"bt", CmdBacktrace},
		{"continue", CmdContinue},
		{"delete", CmdDelete},
		{"finish", CmdFinish},
		{"help", CmdHelp},
		{"info", CmdInfo},
		{"list", CmdList},
		{"next", CmdNext},
		{"print", CmdPrint},
		{"quit", CmdQuit},
		{"step", CmdStep},
		{"set", CmdSet},
		{"where", CmdBacktrace},
		{"?", CmdHelp},
	}

	infoCommands = []CommandEntry{
		{"arguments", InfoArguments},
		{"breakpoints", InfoBreakpoints},
		{"files", InfoFiles},
		{"functions", InfoFunctions},
		{"locals", InfoLocals},
		{"stack", InfoStack},
	}

	commandHelp = map[CommandID]string{
		CmdBreak:        "break [<file>:]<line>    set a breakpoint",
		CmdBacktrace:    "bt, where                print the call stack",
		CmdContinue:     "continue                 resume execution",
		CmdDelete:       "delete <id>              remove a breakpoint",
		CmdFinish:       "finish                   run until the current function returns",
		CmdHelp:         "help [info|<command>]    describe commands",
		CmdInfo:         "info <topic>             show program state (help info lists topics)",
		CmdList:         "list [<line>]            list source lines",
		CmdNext:         "next                     step over calls",
		CmdPrint:        "print <name>             print a variable (not implemented)",
		CmdQuit:         "quit                     exit the debugger and the program",
		CmdStep:         "step                     step into calls",
		CmdSet:          "set <name> = <literal>   assign to a local or argument",
		InfoArguments:   "arguments [<frame>]      arguments of a frame",
		InfoBreakpoints: "breakpoints              registered breakpoints",
		InfoFiles:       "files                    source files of loaded modules",
		InfoFunctions:   "functions                functions of loaded modules",
		InfoLocals:      "locals [<frame>]         locals of a frame",
		InfoStack:       "stack                    the call stack",
	}
)

// Resolve matches input against table by unambiguous prefix.
//
// An empty input yields CmdUnknown and an input starting with '#'
// yields CmdComment. When nothing matches, def is returned. A single
// character, a unique hit or an exact hit select an entry. Anything else
// is ambiguous: the candidates are written to w and CmdAmbiguous is
// returned.
func Resolve(w io.Writer, table []CommandEntry, input string, def CommandID) CommandID {
	if input == "" {
		return CmdUnknown
	}
	if input[0] == '#' {
		return CmdComment
	}

	var hits []int
	for i, e := range table {
		if strings.HasPrefix(e.Text, input) {
			hits = append(hits, i)
		}
	}

	switch {
	case len(hits) == 0:
		return def
	case len(hits) == 1, len(input) == 1:
		return table[hits[0]].ID
	}

	for _, i := range hits {
		if table[i].Text == input {
			return table[i].ID
		}
	}

	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = table[h].Text
	}
	fmt.Fprintf(w, "Ambiguous command %q: %s.\n", input, strings.Join(names, ", "))
	return CmdAmbiguous
}

// NameFor returns the text of the first entry with id, or "?".
func NameFor(table []CommandEntry, id CommandID) string {
	for _, e := range table {
		if e.ID == id {
			return e.Text
		}
	}
	return "?"
}

// ResumeMode tells the host how to continue after the console returns.
type ResumeMode int

const (
	// ResumeContinue runs until the next suspension.
	ResumeContinue ResumeMode = iota
	// ResumeNext steps over calls.
	ResumeNext
	// ResumeStep steps into calls.
	ResumeStep
	// ResumeFinish runs until the current function returns.
	ResumeFinish
	// ResumeQuit ends the program.
	ResumeQuit
)

// String returns a string representation of the mode.
func (m ResumeMode) String() string {
	switch m {
	case ResumeContinue:
		return "continue"
	case ResumeNext:
		return "next"
	case ResumeStep:
		return "step"
	case ResumeFinish:
		return "finish"
	case ResumeQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Command is a parsed console command. The set of implementations is
// closed; Session.dispatch handles every one of them.
type Command interface {
	ID() CommandID
}

// HelpCommand lists commands, info topics, or describes one command.
type HelpCommand struct{ Topic string }

// InfoCommand shows one kind of program state.
type InfoCommand struct {
	Name  string
	Topic CommandID
	Args  []string
}

// BreakCommand registers a breakpoint at Location.
type BreakCommand struct{ Location string }

// DeleteCommand removes the breakpoint named by ID.
type DeleteCommand struct{ BreakpointID string }

// ListCommand lists source lines around Line.
type ListCommand struct{ Line string }

// PrintCommand prints a variable.
type PrintCommand struct{ Name string }

// SetCommand assigns Literal to the variable Name.
type SetCommand struct {
	Name    string
	Assign  string
	Literal string
}

// BacktraceCommand prints the call stack.
type BacktraceCommand struct{}

// QuitCommand ends the program.
type QuitCommand struct{}

// ResumeCommand leaves the console.
type ResumeCommand struct{ Mode ResumeMode }

// CommentCommand does nothing.
type CommentCommand struct{}

// UnknownCommand is input that matched nothing.
type UnknownCommand struct{ Name string }

// AmbiguousCommand is input whose candidates were already reported.
type AmbiguousCommand struct{ Name string }

func (HelpCommand) ID() CommandID      { return CmdHelp }
func (InfoCommand) ID() CommandID      { return CmdInfo }
func (BreakCommand) ID() CommandID     { return CmdBreak }
func (DeleteCommand) ID() CommandID    { return CmdDelete }
func (ListCommand) ID() CommandID      { return CmdList }
func (PrintCommand) ID() CommandID     { return CmdPrint }
func (SetCommand) ID() CommandID       { return CmdSet }
func (BacktraceCommand) ID() CommandID { return CmdBacktrace }
func (QuitCommand) ID() CommandID      { return CmdQuit }
func (CommentCommand) ID() CommandID   { return CmdComment }
func (UnknownCommand) ID() CommandID   { return CmdUnknown }
func (AmbiguousCommand) ID() CommandID { return CmdAmbiguous }

// ID implements Command.
func (c ResumeCommand) ID() CommandID {
	switch c.Mode {
	case ResumeNext:
		return CmdNext
	case ResumeStep:
		return CmdStep
	case ResumeFinish:
		return CmdFinish
	default:
		return CmdContinue
	}
}

// ParseCommand tokenizes line and resolves it into a Command. Ambiguity
// reports go to w.
func ParseCommand(w io.Writer, line string) Command {
	tz := NewTokenizer(line)
	name, _ := tz.Next()

	switch id := Resolve(w, topLevelCommands, name, CmdUnknown); id {
	case CmdComment:
		return CommentCommand{}
	case CmdAmbiguous:
		return AmbiguousCommand{Name: name}
	case CmdHelp:
		topic, _ := tz.Next()
		return HelpCommand{Topic: topic}
	case CmdInfo:
		sub, _ := tz.Next()
		topic := CmdUnknown
		if sub != "" {
			topic = Resolve(w, infoCommands, sub, CmdUnknown)
		}
		return InfoCommand{Name: sub, Topic: topic, Args: tz.Tokens()}
	case CmdBreak:
		loc, _ := tz.Next()
		return BreakCommand{Location: loc}
	case CmdDelete:
		bpID, _ := tz.Next()
		return DeleteCommand{BreakpointID: bpID}
	case CmdList:
		ln, _ := tz.Next()
		return ListCommand{Line: ln}
	case CmdPrint:
		return PrintCommand{Name: tz.Rest()}
	case CmdSet:
		return parseSet(tz)
	case CmdBacktrace:
		return BacktraceCommand{}
	case CmdQuit:
		return QuitCommand{}
	case CmdContinue:
		return ResumeCommand{Mode: ResumeContinue}
	case CmdNext:
		return ResumeCommand{Mode: ResumeNext}
	case CmdStep:
		return ResumeCommand{Mode: ResumeStep}
	case CmdFinish:
		return ResumeCommand{Mode: ResumeFinish}
	default:
		return UnknownCommand{Name: name}
	}
}

// parseSet accepts both "x = 1" and "x=1".
func parseSet(tz *Tokenizer) SetCommand {
	first, _ := tz.Next()
	if name, lit, found := strings.Cut(first, "="); found {
		if lit == "" {
			lit = tz.Rest()
		}
		return SetCommand{Name: name, Assign: "=", Literal: lit}
	}
	op, _ := tz.Next()
	if rest, found := strings.CutPrefix(op, "="); found && rest != "" {
		return SetCommand{Name: first, Assign: "=", Literal: rest}
	}
	return SetCommand{Name: first, Assign: op, Literal: tz.Rest()}
}
