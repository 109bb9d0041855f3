package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/luadbg/internal/logging"
)

// pausedInAdd returns an engine paused at line 3 of main.lua, inside
// add(1, 2).
func pausedInAdd() *fakeEngine {
	eng, src := newTestProgram()
	eng.frames = []*fakeFrame{
		{
			source: src,
			line:   3,
			args:   []Value{Number(1), Number(2)},
			locals: []fakeLocal{
				{"sum", Number(3)},
				{"label", String("sum")},
			},
		},
		{source: src, line: 14},
	}
	return eng
}

func newTestSession(eng *fakeEngine, plat *scriptPlatform, opts ...Option) (*Session, *bytes.Buffer) {
	out := &bytes.Buffer{}
	base := []Option{
		WithOutput(out),
		WithLogger(logging.Null),
		WithSourceFileSystem(newTestFS()),
	}
	return NewSession(eng, plat, append(base, opts...)...), out
}

func runLines(t *testing.T, eng *fakeEngine, lines []string, opts ...Option) (ResumeMode, string, *scriptPlatform) {
	t.Helper()
	plat := &scriptPlatform{lines: lines}
	s, out := newTestSession(eng, plat, opts...)
	mode := s.Enter()
	return mode, out.String(), plat
}

func TestSession_PromptAndResume(t *testing.T) {
	tests := []struct {
		line string
		want ResumeMode
	}{
		{"continue", ResumeContinue},
		{"c", ResumeContinue},
		{"next", ResumeNext},
		{"step", ResumeStep},
		{"finish", ResumeFinish},
	}

	for _, tt := range tests {
		mode, _, plat := runLines(t, pausedInAdd(), []string{tt.line})
		if mode != tt.want {
			t.Errorf("%q: mode = %s, want %s", tt.line, mode, tt.want)
		}
		if diff := cmp.Diff([]string{DefaultPrompt}, plat.prompts); diff != "" {
			t.Errorf("%q: prompts mismatch (-want +got):\n%s", tt.line, diff)
		}
		if len(plat.exits) != 0 {
			t.Errorf("%q: exited with %v", tt.line, plat.exits)
		}
	}
}

func TestSession_CustomPrompt(t *testing.T) {
	_, _, plat := runLines(t, pausedInAdd(), []string{"c"}, WithPrompt("lua> "))
	if plat.prompts[0] != "lua> " {
		t.Errorf("prompt = %q, want %q", plat.prompts[0], "lua> ")
	}
}

func TestSession_ShowsExecutionPoint(t *testing.T) {
	_, out, _ := runLines(t, pausedInAdd(), []string{"c"})
	if want := "3\t  local label = \"sum\"\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestSession_EndOfInputExits(t *testing.T) {
	mode, out, plat := runLines(t, pausedInAdd(), nil)
	if mode != ResumeQuit {
		t.Errorf("mode = %s, want quit", mode)
	}
	if diff := cmp.Diff([]int{0}, plat.exits); diff != "" {
		t.Errorf("exits mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("output %q should end with a newline", out)
	}
}

func TestSession_Quit(t *testing.T) {
	mode, _, plat := runLines(t, pausedInAdd(), []string{"quit", "c"})
	if mode != ResumeQuit {
		t.Errorf("mode = %s, want quit", mode)
	}
	if diff := cmp.Diff([]int{0}, plat.exits); diff != "" {
		t.Errorf("exits mismatch (-want +got):\n%s", diff)
	}
	if plat.read != 1 {
		t.Errorf("read %d lines after quit, want 1", plat.read)
	}
}

func TestSession_EmptyLineRepeats(t *testing.T) {
	_, out, _ := runLines(t, pausedInAdd(), []string{"bt", "", "  ", "c"})
	if n := strings.Count(out, "#0 add(a=1, b=2) at main.lua:3"); n != 3 {
		t.Errorf("backtrace printed %d times, want 3; output:\n%s", n, out)
	}
}

func TestSession_EmptyLineFirstDoesNothing(t *testing.T) {
	mode, out, _ := runLines(t, pausedInAdd(), []string{"", "n"})
	if mode != ResumeNext {
		t.Errorf("mode = %s, want next", mode)
	}
	if strings.Contains(out, "unknown command") {
		t.Errorf("empty first line reported: %q", out)
	}
}

func TestSession_CommentAndUnknown(t *testing.T) {
	_, out, _ := runLines(t, pausedInAdd(), []string{"# setup", "frobnicate", "c"})
	if strings.Contains(out, "setup") {
		t.Errorf("comment produced output: %q", out)
	}
	if !strings.Contains(out, `unknown command "frobnicate"; try "help".`) {
		t.Errorf("missing unknown command message: %q", out)
	}
}

func TestSession_Print(t *testing.T) {
	_, out, _ := runLines(t, pausedInAdd(), []string{"print sum", "c"})
	if !strings.Contains(out, "print: not implemented\n") {
		t.Errorf("output = %q", out)
	}
}

func TestSession_Help(t *testing.T) {
	_, out, _ := runLines(t, pausedInAdd(), []string{"help", "c"})
	if !strings.Contains(out, "Commands:") || !strings.Contains(out, commandHelp[CmdBreak]) {
		t.Errorf("help output = %q", out)
	}
	if n := strings.Count(out, commandHelp[CmdBacktrace]); n != 1 {
		t.Errorf("bt described %d times, want 1", n)
	}

	_, out, _ = runLines(t, pausedInAdd(), []string{"help info", "c"})
	if !strings.Contains(out, "Info topics:") || !strings.Contains(out, commandHelp[InfoLocals]) {
		t.Errorf("help info output = %q", out)
	}

	_, out, _ = runLines(t, pausedInAdd(), []string{"? del", "c"})
	if !strings.Contains(out, commandHelp[CmdDelete]) {
		t.Errorf("help delete output = %q", out)
	}

	_, out, _ = runLines(t, pausedInAdd(), []string{"help frob", "c"})
	if !strings.Contains(out, "help frob: unknown command.\n") {
		t.Errorf("help frob output = %q", out)
	}
}

func TestSession_Info(t *testing.T) {
	_, out, _ := runLines(t, pausedInAdd(), []string{
		"info",
		"info bogus",
		"info locals",
		"info args",
		"info locals 1",
		"info locals x",
		"info files",
		"info functions",
		"info stack",
		"c",
	})

	for _, want := range []string{
		`"info" must be followed by a topic: arguments, breakpoints, files, functions, locals, stack.`,
		`Undefined info command "bogus". Try "help info".`,
		"0: sum = 3\n1: label = \"sum\"\n",
		"0: a = 1\n1: b = 2\n",
		"No locals.\n",
		`Bad frame number "x".`,
		"main.lua\t(module main)\n",
		"lib/util.lua\t(module util)\n",
		"add\tmain.lua:1-5\n",
		"Point:move\tmain.lua:8-12\n",
		"#1 main() at main.lua:14\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSession_BreakAndDelete(t *testing.T) {
	eng := pausedInAdd()
	plat := &scriptPlatform{lines: []string{
		"info breakpoints",
		"break 2",
		"b util.lua:1",
		"break nowhere.lua:3",
		"break main.lua:x",
		"info breakpoints",
		"delete",
		"delete one",
		"delete 9",
		"delete 1",
		"info breakpoints",
		"c",
	}}
	s, out := newTestSession(eng, plat)
	s.Enter()

	for _, want := range []string{
		"No breakpoints.\n",
		"Breakpoint 1 at main.lua:2\n",
		"Breakpoint 2 at lib/util.lua:1\n",
		"no such source",
		"bad breakpoint syntax",
		"Num\tWhere\n1\tmain.lua:2\n2\tlib/util.lua:1\n",
		"Usage: delete <breakpoint-id>\n",
		`Bad breakpoint number "one".`,
		"No breakpoint number 9.\n",
		"Deleted breakpoint 1\n",
		"Num\tWhere\n2\tlib/util.lua:1\n",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	if diff := cmp.Diff([]string{"main.lua:2", "lib/util.lua:1"}, eng.installed); diff != "" {
		t.Errorf("installed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"main.lua:2"}, eng.cleared); diff != "" {
		t.Errorf("cleared mismatch (-want +got):\n%s", diff)
	}
	if s.Sources().Filename() != "lib/util.lua" {
		t.Errorf("current file = %q, want lib/util.lua", s.Sources().Filename())
	}
}

func TestSession_BreakRejected(t *testing.T) {
	eng := pausedInAdd()
	eng.codeLines = map[string]map[int]bool{"main.lua": {2: true}}
	_, out, _ := runLines(t, eng, []string{"break 6", "c"})
	if !strings.Contains(out, "breakpoint rejected") {
		t.Errorf("output = %q", out)
	}
}

func TestSession_BreakNoModules(t *testing.T) {
	_, out, _ := runLines(t, &fakeEngine{}, []string{"break 3", "list", "info files", "c"})
	if n := strings.Count(out, "no source loaded"); n != 3 {
		t.Errorf("no source loaded reported %d times, want 3:\n%s", n, out)
	}
}

func TestSession_List(t *testing.T) {
	_, out, _ := runLines(t, pausedInAdd(), []string{"list", "", "list 11", "list 0", "c"}, WithListSize(4))

	want := "3\t  local label = \"sum\"\n" + // execution point
		"3\t  local label = \"sum\"\n" +
		"4\t  return sum\n" +
		"5\tend\n" +
		"6\t\n"
	if !strings.HasPrefix(out, want) {
		t.Fatalf("first list:\n%s\nwant prefix:\n%s", out, want)
	}

	for _, w := range []string{
		"7\tlocal Point = {}\n8\tfunction Point:move(dx)\n9\t  self.x = self.x + dx\n10\t  local moved = true\n",
		"11\t  return self\n12\tend\n",
		`Bad line number "0".`,
	} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestSession_ListStartsAtLine(t *testing.T) {
	_, out, _ := runLines(t, pausedInAdd(), []string{"list 8", "c"}, WithListSize(4))

	want := "8\tfunction Point:move(dx)\n" +
		"9\t  self.x = self.x + dx\n" +
		"10\t  local moved = true\n" +
		"11\t  return self\n"
	if !strings.Contains(out, want) {
		t.Errorf("output = %q, want window %q", out, want)
	}
	if strings.Contains(out, "7\tlocal Point") || strings.Contains(out, "12\tend") {
		t.Errorf("window does not start at line 8: %q", out)
	}
}

func TestSession_ListPastEnd(t *testing.T) {
	_, out, _ := runLines(t, pausedInAdd(), []string{"list 40", "c"}, WithListSize(4))
	if !strings.Contains(out, "main.lua:40 \n") {
		t.Errorf("output = %q", out)
	}
}

func TestSession_ListWraps(t *testing.T) {
	_, out, _ := runLines(t, pausedInAdd(), []string{"list 12", "c"},
		WithListSize(4), WithWrapList(true))
	if !strings.Contains(out, "12\tend\n1\tlocal function add(a, b)\n2\t  local sum = a + b\n3\t  local label = \"sum\"\n") {
		t.Errorf("output = %q", out)
	}
}

func TestSession_Set(t *testing.T) {
	eng := pausedInAdd()
	_, out, _ := runLines(t, eng, []string{
		"set sum = 10",
		"set a=5",
		"set label = \"total\"",
		"set sum = abc",
		"set nope = 1",
		"set sum",
		"c",
	})

	for _, want := range []string{
		"sum = 10\n",
		"a = 5\n",
		`cannot assign "\"total\"" to a string`,
		`cannot assign "abc" to a number`,
		`No variable "nope" in the current frame.`,
		"Usage: set <name> = <literal>\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	fr := eng.frames[0]
	if fr.locals[0].value != Number(10) {
		t.Errorf("sum = %v, want 10", fr.locals[0].value)
	}
	if fr.args[0] != Number(5) {
		t.Errorf("a = %v, want 5", fr.args[0])
	}
	if fr.locals[1].value != String("sum") {
		t.Errorf("label = %v, want it unchanged", fr.locals[1].value)
	}
}

func TestSession_SetShadowedLocal(t *testing.T) {
	eng := pausedInAdd()
	fr := eng.frames[0]
	fr.locals = append(fr.locals, fakeLocal{"sum", Number(100)})

	runLines(t, eng, []string{"set sum = 1", "c"})
	if fr.locals[0].value != Number(3) {
		t.Errorf("outer sum changed to %v", fr.locals[0].value)
	}
	if fr.locals[2].value != Number(1) {
		t.Errorf("inner sum = %v, want 1", fr.locals[2].value)
	}
}

func TestSession_SetMissingDebugInfo(t *testing.T) {
	eng := &fakeEngine{frames: []*fakeFrame{{name: "native", locals: []fakeLocal{{"x", Number(1)}}}}}
	_, out, _ := runLines(t, eng, []string{"set x = 2", "c"})
	if !strings.Contains(out, "missing debug info") {
		t.Errorf("output = %q", out)
	}
	if eng.frames[0].locals[0].value != Number(1) {
		t.Error("value changed without debug info")
	}
}

func TestSession_SetEngineFailure(t *testing.T) {
	eng := pausedInAdd()
	eng.frames[0].setErr = errSetRejected
	_, out, _ := runLines(t, eng, []string{"set sum = 4", "c"})
	if !strings.Contains(out, errSetRejected.Error()) {
		t.Errorf("output = %q", out)
	}
}

func TestSession_BacktraceEmpty(t *testing.T) {
	_, out, _ := runLines(t, &fakeEngine{}, []string{"where", "c"})
	if out != "No stack.\n" {
		t.Errorf("output = %q", out)
	}
}

func TestSession_OnException(t *testing.T) {
	eng := pausedInAdd()
	plat := &scriptPlatform{lines: []string{"bt", "c"}}
	s, out := newTestSession(eng, plat)

	mode, handled := s.OnException("attempt to index a nil value")
	if !handled || mode != ResumeContinue {
		t.Errorf("OnException() = %s, %v", mode, handled)
	}
	if !strings.HasPrefix(out.String(), "Exception: attempt to index a nil value\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSession_OnExceptionInactive(t *testing.T) {
	plat := &scriptPlatform{lines: []string{"c"}}
	s, out := newTestSession(pausedInAdd(), plat, WithBreakOnError(false))

	if _, handled := s.OnException("boom"); handled {
		t.Error("inactive session handled the exception")
	}
	if out.Len() != 0 || plat.read != 0 {
		t.Errorf("inactive session produced output %q and read %d lines", out.String(), plat.read)
	}

	s.SetActive(true)
	if _, handled := s.OnException("boom"); !handled {
		t.Error("reactivated session ignored the exception")
	}
}

func TestSession_NestedActivationsAreIndependent(t *testing.T) {
	eng := pausedInAdd()
	plat := &scriptPlatform{lines: []string{"bt", "c", "", "n"}}
	s, out := newTestSession(eng, plat)

	var nestedDepth int
	var nestedMode ResumeMode
	plat.hooks = map[int]func(){
		0: func() {
			nestedMode, _ = s.OnException("nested")
		},
		1: func() {
			nestedDepth = s.Depth()
		},
	}

	mode := s.Enter()
	if nestedDepth != 2 {
		t.Errorf("depth inside nested loop = %d, want 2", nestedDepth)
	}
	if nestedMode != ResumeContinue {
		t.Errorf("nested mode = %s, want continue", nestedMode)
	}
	// The outer loop repeats its own last command, not the nested one.
	if mode != ResumeNext {
		t.Errorf("outer mode = %s, want next", mode)
	}
	if n := strings.Count(out.String(), "#0 add"); n != 2 {
		t.Errorf("backtrace printed %d times, want 2:\n%s", n, out.String())
	}
	if s.Depth() != 0 {
		t.Errorf("depth after return = %d", s.Depth())
	}
}

func TestSession_BreakpointsOutliveActivations(t *testing.T) {
	eng := pausedInAdd()
	plat := &scriptPlatform{lines: []string{"break 2", "c", "break 4", "c"}}
	s, _ := newTestSession(eng, plat)

	s.Enter()
	s.Enter()
	if diff := cmp.Diff([]int{1, 2}, breakpointIDs(s.Breakpoints())); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_WatcherInvalidatesSource(t *testing.T) {
	eng := pausedInAdd()
	fsys := newTestFS()
	w := &fakeWatcher{}
	plat := &scriptPlatform{lines: []string{"list 1", "list 1", "c"}}
	s, out := newTestSession(eng, plat, WithSourceFileSystem(fsys), WithSourceWatcher(w), WithListSize(1))

	plat.hooks = map[int]func(){
		0: func() {
			fsys.files["main.lua"] = []byte("-- edited\n")
			w.pending = []string{"main.lua"}
		},
	}
	s.Enter()

	if !strings.Contains(out.String(), "1\t-- edited\n") {
		t.Errorf("edited source not shown:\n%s", out.String())
	}
}

func TestSession_Close(t *testing.T) {
	plat := &scriptPlatform{lines: []string{"c"}}
	s, _ := newTestSession(pausedInAdd(), plat)
	s.Enter()
	s.Close()
	if s.Sources().Loaded() {
		t.Error("Close() kept the source buffer")
	}
	if s.ID() == "" {
		t.Error("session has no id")
	}
}
