// Package platform provides the line input and process exit the console
// runs on.
package platform

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Input is one source of command lines.
type Input struct {
	// Name identifies the source in diagnostics.
	Name string
	// Reader supplies the lines.
	Reader io.Reader
	// Interactive inputs get a prompt; others are echoed after it.
	Interactive bool
}

// Stdin returns the process's standard input, interactive when it is a
// terminal.
func Stdin() Input {
	return Input{
		Name:        "stdin",
		Reader:      os.Stdin,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// Script returns a command script input.
func Script(name string, r io.Reader) Input {
	return Input{Name: name, Reader: r}
}

// Terminal reads command lines from a chain of inputs, one after the
// other, and exits the process on request.
type Terminal struct {
	inputs []Input
	cur    *bufio.Reader
	out    io.Writer
	exit   func(int)
	intr   Interrupter

	// Echo lines read from non-interactive inputs
	echo bool
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithOutput sets where prompts and echoed lines are written.
func WithOutput(w io.Writer) Option {
	return func(t *Terminal) {
		t.out = w
	}
}

// WithExit replaces os.Exit.
func WithExit(exit func(int)) Option {
	return func(t *Terminal) {
		t.exit = exit
	}
}

// WithInterrupts pauses intr while an interactive line is read.
func WithInterrupts(intr Interrupter) Option {
	return func(t *Terminal) {
		t.intr = intr
	}
}

// WithEcho controls whether scripted lines are echoed after the prompt.
func WithEcho(echo bool) Option {
	return func(t *Terminal) {
		t.echo = echo
	}
}

// NewTerminal creates a terminal reading inputs in order.
func NewTerminal(inputs []Input, opts ...Option) *Terminal {
	t := &Terminal{
		inputs: inputs,
		out:    os.Stdout,
		exit:   os.Exit,
		echo:   true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ReadLine prints prompt and returns the next line without its
// terminator. It returns io.EOF once every input is exhausted.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	for len(t.inputs) > 0 {
		in := t.inputs[0]
		if t.cur == nil {
			t.cur = bufio.NewReader(in.Reader)
		}

		if in.Interactive {
			fmt.Fprint(t.out, prompt)
		}
		line, err := t.readString(in.Interactive)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading %s: %w", in.Name, err)
		}
		if line == "" && err != nil {
			t.inputs = t.inputs[1:]
			t.cur = nil
			continue
		}

		line = strings.TrimRight(line, "\r\n")
		if !in.Interactive && t.echo {
			fmt.Fprintf(t.out, "%s%s\n", prompt, line)
		}
		return line, nil
	}
	return "", io.EOF
}

func (t *Terminal) readString(interactive bool) (string, error) {
	if interactive && t.intr != nil {
		t.intr.Pause()
		defer t.intr.Resume()
	}
	return t.cur.ReadString('\n')
}

// Exit terminates the process with code.
func (t *Terminal) Exit(code int) {
	t.exit(code)
}
