package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/luadbg/internal/logging"
)

// DefaultPrompt is printed before every command line.
const DefaultPrompt = "(dbg) "

// DefaultListSize is the number of lines "list" shows.
const DefaultListSize = 10

// SourceWatcher reports source files changed on disk.
type SourceWatcher interface {
	// Changed returns the files modified since the last call. It must
	// not block.
	Changed() []string
}

// Session is one debugger console. It owns the breakpoint registry and
// the source cache for its whole lifetime; every activation of the
// command loop shares them.
type Session struct {
	id       string
	engine   Engine
	platform Platform
	out      io.Writer
	logger   *logging.Logger

	prompt   string
	listSize int

	// Enter the console when the host reports an exception
	active bool

	breakpoints *BreakpointRegistry
	sources     *SourceCache
	frames      *FrameFormatter
	watcher     SourceWatcher

	sourceOpts []SourceOption

	// Nesting level of running command loops
	depth int
}

// Option configures a Session.
type Option func(*Session)

// WithOutput sets where console output is written. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		s.out = w
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithPrompt sets the prompt string.
func WithPrompt(prompt string) Option {
	return func(s *Session) {
		s.prompt = prompt
	}
}

// WithListSize sets how many lines "list" shows.
func WithListSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.listSize = n
		}
	}
}

// WithWrapList makes "list" restart at line 1 past end-of-file.
func WithWrapList(wrap bool) Option {
	return func(s *Session) {
		s.sourceOpts = append(s.sourceOpts, WithWrap(wrap))
	}
}

// WithSourceFileSystem sets the file system source text is read from.
func WithSourceFileSystem(fsys FileSystem) Option {
	return func(s *Session) {
		s.sourceOpts = append(s.sourceOpts, WithFileSystem(fsys))
	}
}

// WithBreakOnError sets whether exceptions enter the console.
func WithBreakOnError(active bool) Option {
	return func(s *Session) {
		s.active = active
	}
}

// WithSourceWatcher invalidates cached source text when files change.
func WithSourceWatcher(w SourceWatcher) Option {
	return func(s *Session) {
		s.watcher = w
	}
}

// NewSession creates a console over engine, reading commands through
// platform.
func NewSession(engine Engine, platform Platform, opts ...Option) *Session {
	s := &Session{
		id:       uuid.New().String(),
		engine:   engine,
		platform: platform,
		out:      os.Stdout,
		prompt:   DefaultPrompt,
		listSize: DefaultListSize,
		active:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Get()
	}
	s.logger = s.logger.WithComponent("console").WithField("session", s.id)

	s.breakpoints = NewBreakpointRegistry(engine)
	s.sources = NewSourceCache(s.out, s.sourceOpts...)
	s.frames = NewFrameFormatter(engine)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Breakpoints returns the session's breakpoint registry.
func (s *Session) Breakpoints() *BreakpointRegistry {
	return s.breakpoints
}

// Sources returns the session's source cache.
func (s *Session) Sources() *SourceCache {
	return s.sources
}

// Active reports whether exceptions enter the console.
func (s *Session) Active() bool {
	return s.active
}

// SetActive sets whether exceptions enter the console.
func (s *Session) SetActive(active bool) {
	s.active = active
}

// Depth returns how many command loops are running.
func (s *Session) Depth() int {
	return s.depth
}

// Close releases the cached source text.
func (s *Session) Close() {
	s.sources.Release()
}

// activation is the state of one run of the command loop.
type activation struct {
	// Last non-empty command line
	lastLine string

	// Line a bare "list" continues from, 0 when nothing was listed
	listNext int
}

// Enter runs the command loop until a resume command or quit, and
// returns how execution should continue. Enter may be called again from
// inside a command handler's call stack; each call has its own repeat
// and list state.
func (s *Session) Enter() ResumeMode {
	s.depth++
	defer func() { s.depth-- }()

	if name := s.engine.CurrentFile(); name != "" {
		s.sources.SetCurrent(name)
	}
	s.logger.Debug("enter console at depth %d", s.depth)

	act := &activation{}
	for {
		s.pollWatcher()
		s.showExecutionPoint()

		line, err := s.platform.ReadLine(s.prompt)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Error("reading command: %v", err)
			}
			fmt.Fprintln(s.out)
			s.platform.Exit(0)
			return ResumeQuit
		}

		if strings.TrimSpace(line) == "" {
			if act.lastLine == "" {
				continue
			}
			line = act.lastLine
		} else {
			act.lastLine = line
		}

		cmd := ParseCommand(s.out, line)
		s.logger.Debug("command %q resolved to %T", line, cmd)
		if mode, done := s.dispatch(act, cmd); done {
			s.logger.Debug("leave console with %s", mode)
			return mode
		}
	}
}

// OnException is called by the host when an exception propagates. If
// the session is active the description is printed and the command loop
// runs; handled reports whether it did.
func (s *Session) OnException(description string) (mode ResumeMode, handled bool) {
	if !s.active {
		return ResumeContinue, false
	}
	fmt.Fprintf(s.out, "Exception: %s\n", description)
	return s.Enter(), true
}

func (s *Session) pollWatcher() {
	if s.watcher == nil {
		return
	}
	for _, name := range s.watcher.Changed() {
		s.logger.Debug("source %s changed on disk", name)
		s.sources.Invalidate(name)
	}
}

// showExecutionPoint prints the current line of the innermost frame.
func (s *Session) showExecutionPoint() {
	fr, ok := s.engine.Frame(0)
	if !ok {
		return
	}
	src := fr.Source()
	if src == nil || fr.Line() <= 0 {
		return
	}
	if src.Name() != s.sources.Filename() {
		fmt.Fprintf(s.out, "%s:%d\n", src.Name(), fr.Line())
		return
	}
	s.sources.DisplayWindow(s.out, fr.Line(), 1)
}
