package eval_test

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"grol.io/rpncalc/eval"
	"grol.io/rpncalc/functions"
	"grol.io/rpncalc/lexer"
	"grol.io/rpncalc/number"
	"grol.io/rpncalc/stack"
)

// fakeUI records what the engine shows and answers the debugger with the
// scripted commands (then resume).
type fakeUI struct {
	mu       sync.Mutex
	messages []string
	halts    []eval.DebugInfo
	commands []eval.DebugState
	visible  bool
	hidden   int
	progress []string
	prompt   chan *apd.Decimal
	onMsg    func(msg string)
}

func (f *fakeUI) DisplayMessage(msg string) {
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	cb := f.onMsg
	f.mu.Unlock()
	if cb != nil {
		cb(msg)
	}
}

func (f *fakeUI) Prompt(string) (*apd.Decimal, error) {
	if f.prompt == nil {
		return nil, eval.ErrPromptCancelled
	}
	v, ok := <-f.prompt
	if !ok {
		return nil, eval.ErrPromptCancelled
	}
	return v, nil
}

func (f *fakeUI) ShowProgress(msg string, _ float64) {
	f.mu.Lock()
	f.progress = append(f.progress, msg)
	f.mu.Unlock()
}

func (f *fakeUI) RefreshStack([]*apd.Decimal) {}

func (f *fakeUI) ShowDebugger(info eval.DebugInfo) {
	f.visible = true
	f.halts = append(f.halts, info)
}

func (f *fakeUI) HideDebugger() {
	f.visible = false
	f.hidden++
}

func (f *fakeUI) DebuggerVisible() bool {
	return f.visible
}

func (f *fakeUI) DebugCommand() eval.DebugState {
	if len(f.commands) == 0 {
		return eval.DebugNone
	}
	c := f.commands[0]
	f.commands = f.commands[1:]
	return c
}

// haltTokens are the tokens the debugger stopped before.
func (f *fakeUI) haltTokens() string {
	var res []string
	for _, h := range f.halts {
		if h.Err == nil {
			res = append(res, h.Token)
		}
	}
	return strings.Join(res, " ")
}

func newEngine(ui *fakeUI, opts eval.Options) *eval.Engine {
	opts.UI = ui
	if opts.Functions == nil {
		opts.Functions = functions.New()
	}
	return eval.New(opts)
}

func run(t *testing.T, script string) (*stack.Machine, *fakeUI, error) {
	t.Helper()
	ui := &fakeUI{}
	m, err := newEngine(ui, eval.Options{}).Run(context.Background(), script)
	return m, ui, err
}

func TestRun(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "[]"},
		{"1 2 +", "[3]"},
		{"0.1 0.2 +", "[0.3]"},
		{"1 if 5 end_if", "[1 5]"},
		{"0 if 5 end_if", "[0]"},
		{"1 if 5 else 6 end_if", "[1 5]"},
		{"0 if 5 else 6 end_if", "[0 6]"},
		{"1 if 1 if 7 end_if end_if", "[1 1 7]"},
		{"1 if 0 if 7 else 8 end_if else 9 end_if", "[1 0 8]"},
		{"0 if 1 if 7 end_if else 9 end_if", "[0 9]"},
		{"0 while 99 end_while", "[0]"},
		{"3 while 1 - end_while", "[0]"},
		{"0 ->i 3 while i 1 + ->i 1 - end_while drop i", "[3]"},
		{"2 while 2 while 1 - end_while drop 0 end_while", "[2 0]"},
		{"3 ->x x x *", "[9]"},
		{"y", "[NaN]"},
		{"1 ->x 1 if 2 ->x end_if drop x", "[2]"},
		{"1 if 5 ->local end_if local", "[1 NaN]"},
		{"7 2 ->a[] 2 a[] 5 a[]", "[7 NaN]"},
		{"fundef sq dup * end_fundef 3 funcall sq", "[9]"},
		{"fundef f 1 end_fundef fundel f fundel f", "[]"},
		{"fundef fact dup 1 > if drop dup 1 - funcall fact * else drop end_if end_fundef 5 funcall fact", "[120]"},
		{"fundef setx 42 ->x end_fundef 0 ->x funcall setx x", "[42]"},
		{"4 math_call sqrt", "[2]"},
		{"1 2 math_call max", "[2]"},
		{"math_call pi 0 >", "[1]"},
		{"1 exit 2", "[1]"},
		{"1 if 3 while exit end_while end_if 2", "[1 3]"},
		{"fundef out 7 exit end_fundef funcall out 8", "[7]"},
		{"1 2 3 3 dupn", "[1 2 3 1 2 3]"},
		{"1 0 /", "[Inf]"},
		{"1 debug_break 2", "[1 2]"},
		{"# comment only\n4 # trailing\n5", "[4 5]"},
	}
	for _, tt := range tests {
		m, ui, err := run(t, tt.input)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.input, err)
			continue
		}
		if got := m.String(); got != tt.expected {
			t.Errorf("%q: got %s, expected %s", tt.input, got, tt.expected)
		}
		if len(ui.messages) != 0 {
			t.Errorf("%q: unexpected messages %v", tt.input, ui.messages)
		}
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"1 if 2", "line 1, unexpected token end of input"},
		{"end_if", "line 1, unexpected token end_if"},
		{"else", "line 1, unexpected token else"},
		{"1\n2 end_while", "line 2, unexpected token end_while"},
		{"end_fundef", "line 1, unexpected token end_fundef"},
		{"1 if else else end_if", "line 1, unexpected token else"},
		{"1 if\n 2 while 3 end_if", "line 2, unexpected token end of input"},
		{"fundef f 1", "line 1, unexpected token end of input"},
		{"1 if 2 x!y end_if", "line 1, unexpected token x!y"},
		{"1..2", "line 1, unexpected token 1..2"},
		{"1 if\n\n 1 if 3 end_while end_if end_if", "line 3, unexpected token end_while"},
	}
	for _, tt := range tests {
		_, ui, err := run(t, tt.input)
		var se *eval.SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("%q: expected a syntax error, got %v", tt.input, err)
			continue
		}
		if len(ui.messages) != 1 || ui.messages[0] != tt.message {
			t.Errorf("%q: got messages %q, expected %q", tt.input, ui.messages, tt.message)
		}
	}
}

func TestUnderflowIsSilent(t *testing.T) {
	for _, input := range []string{"+", "1 swap", "5 dupn", "1 if drop drop end_if", "fundef f + end_fundef funcall f"} {
		_, ui, err := run(t, input)
		if !errors.Is(err, stack.ErrUnderflow) && !errors.Is(err, stack.ErrBadCount) {
			t.Errorf("%q: expected underflow, got %v", input, err)
		}
		if len(ui.messages) != 0 {
			t.Errorf("%q: unexpected messages %v", input, ui.messages)
		}
	}
}

func TestDupNTooLargeIsShown(t *testing.T) {
	m, ui, err := run(t, "5 100000000000 dupn")
	if !errors.Is(err, stack.ErrTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
	if got := m.String(); got != "[5 100000000000]" {
		t.Errorf("stack changed: %s", got)
	}
	if len(ui.messages) != 1 || !strings.Contains(ui.messages[0], "stack too large") {
		t.Errorf("expected the error shown, got %v", ui.messages)
	}
}

func TestRunsShareTokenCache(t *testing.T) {
	cache := lexer.NewCache(8)
	e := newEngine(&fakeUI{}, eval.Options{Lexers: cache})
	for range 2 {
		if _, err := e.Run(context.Background(), "1 2 +"); err != nil {
			t.Fatal(err)
		}
	}
	if hits, misses := cache.Stats(); hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit 1 miss, got %d %d", hits, misses)
	}
}

func TestFailureAbortsRun(t *testing.T) {
	m, ui, err := run(t, "1 2 while drop drop drop end_while 99")
	if !errors.Is(err, stack.ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	if strings.Contains(m.String(), "99") {
		t.Errorf("run continued after failure: %s", m)
	}
	if ui.progress[len(ui.progress)-1] != "done" {
		t.Errorf("expected final progress, got %v", ui.progress)
	}
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		input    string
		err      error
		expected string // stack left.
	}{
		{"1 funcall nope", eval.ErrUnknownFunction, "[1]"},
		{"1 math_call nope", eval.ErrUnknownMath, "[1]"},
		{"-1 math_call factorial", nil, "[-1]"},
		{"1 2 plot", eval.ErrNoPlotter, "[1 2]"},
		{"1.5 a[]", eval.ErrInvalidArrayIndex, "[1.5]"},
		{"7 -1 ->a[]", eval.ErrInvalidArrayIndex, "[7 -1]"},
		{"run_script ../etc/passwd", eval.ErrInvalidFileName, "[]"},
		{"prompt_message \"value?\"", eval.ErrPromptCancelled, "[]"},
	}
	for _, tt := range tests {
		m, ui, err := run(t, tt.input)
		if err == nil || (tt.err != nil && !errors.Is(err, tt.err)) {
			t.Errorf("%q: got error %v, expected %v", tt.input, err, tt.err)
		}
		if len(ui.messages) != 1 {
			t.Errorf("%q: expected one message, got %v", tt.input, ui.messages)
		}
		if got := m.String(); got != tt.expected {
			t.Errorf("%q: stack %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayMessage(t *testing.T) {
	_, ui, err := run(t, "display_message \"hello world\" 1 if display_message \"two\\nlines\" end_if")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	expected := []string{"hello world", "two\nlines"}
	if len(ui.messages) != 2 || ui.messages[0] != expected[0] || ui.messages[1] != expected[1] {
		t.Errorf("got %q, expected %q", ui.messages, expected)
	}
}

func TestMalformedEntry(t *testing.T) {
	m := stack.New()
	m.SetEntry("1.2.3")
	ui := &fakeUI{}
	e := newEngine(ui, eval.Options{Stack: m})
	res, err := e.Run(context.Background(), "4")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if res != m || m.String() != "[4]" {
		t.Errorf("unexpected stack %s", res)
	}
	if len(ui.messages) != 1 {
		t.Errorf("expected the malformed entry message, got %v", ui.messages)
	}
	m.SetEntry("5")
	if _, err = e.Run(context.Background(), "neg"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if m.String() != "[4]" || m.Entry() != "-5" {
		t.Errorf("neg should apply to the entry, got %s %q", m, m.Entry())
	}
	if _, err = e.Run(context.Background(), "1"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if m.String() != "[4 -5 1]" {
		t.Errorf("entry should be committed first, got %s", m)
	}
}

func TestMaxDepth(t *testing.T) {
	ui := &fakeUI{}
	e := newEngine(ui, eval.Options{MaxDepth: 50})
	_, err := e.Run(context.Background(), "fundef f funcall f end_fundef funcall f")
	if !errors.Is(err, eval.ErrMaxDepth) {
		t.Fatalf("expected max depth error, got %v", err)
	}
	if len(ui.messages) != 1 {
		t.Errorf("expected one message, got %v", ui.messages)
	}
}

func TestStopThreeLevelsDeep(t *testing.T) {
	ui := &fakeUI{}
	e := newEngine(ui, eval.Options{})
	ui.onMsg = func(string) {
		if !e.Stop() {
			t.Errorf("nothing running")
		}
	}
	script := "fundef f display_message \"deep\" 5 end_fundef 1 while funcall f end_while 6"
	m, err := e.Run(context.Background(), script)
	if !errors.Is(err, eval.ErrStopped) {
		t.Fatalf("expected stopped, got %v", err)
	}
	if got := m.String(); got != "[1]" {
		t.Errorf("run went on after the stop: %s", got)
	}
	if len(ui.messages) != 1 {
		t.Errorf("stop should be silent, got %v", ui.messages)
	}
	if e.Stop() {
		t.Errorf("stop after the run should report nothing running")
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := newEngine(&fakeUI{}, eval.Options{}).Run(ctx, "1 2")
	if !errors.Is(err, eval.ErrStopped) {
		t.Fatalf("expected stopped, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("expected empty stack, got %s", m)
	}
}

func TestAlreadyRunning(t *testing.T) {
	ui := &fakeUI{prompt: make(chan *apd.Decimal)}
	e := newEngine(ui, eval.Options{})
	h, err := e.Start(context.Background(), "prompt_message \"x?\" 2 *")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !e.Running() {
		t.Errorf("expected a run in progress")
	}
	if _, err = e.Run(context.Background(), "1"); !errors.Is(err, eval.ErrAlreadyRunning) {
		t.Errorf("expected already running, got %v", err)
	}
	if _, err = e.Start(context.Background(), "1"); !errors.Is(err, eval.ErrAlreadyRunning) {
		t.Errorf("expected already running, got %v", err)
	}
	ui.prompt <- number.FromInt(21)
	m, err := h.Wait()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if m.String() != "[42]" {
		t.Errorf("got %s", m)
	}
	<-h.Done()
	if e.Running() {
		t.Errorf("run should be over")
	}
	if _, err = e.Run(context.Background(), "1"); err != nil {
		t.Errorf("a new run should be allowed: %v", err)
	}
}

func TestRunScript(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "double.rpn"), []byte("2 *\n->res"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.rpn"), []byte("1\nend_if"), 0o644); err != nil {
		t.Fatal(err)
	}
	ui := &fakeUI{}
	e := newEngine(ui, eval.Options{ScriptDir: dir})
	m, err := e.Run(context.Background(), "0 ->res 21 run_script double res run_script double.rpn res")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if m.String() != "[84]" {
		t.Errorf("got %s", m)
	}
	_, err = e.Run(context.Background(), "run_script bad")
	var se *eval.SyntaxError
	if !errors.As(err, &se) || se.Line != 2 {
		t.Errorf("expected syntax error at line 2, got %v", err)
	}
	_, err = e.Run(context.Background(), "run_script missing")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not exist, got %v", err)
	}
	free := newEngine(&fakeUI{}, eval.Options{ScriptDir: dir, UnrestrictedIO: true})
	m, err = free.Run(context.Background(), "0 ->res 4 run_script "+filepath.Join(dir, "double.rpn")+" res")
	if err != nil || m.String() != "[8]" {
		t.Errorf("unrestricted: got %s %v", m, err)
	}
}

type call struct {
	name string
	args []float64
}

type fakePlotter struct {
	calls []call
}

func (p *fakePlotter) add(name string, args ...float64) {
	p.calls = append(p.calls, call{name, args})
}

func (p *fakePlotter) Erase(c color.RGBA) { p.add("erase", float64(c.R), float64(c.G), float64(c.B)) }
func (p *fakePlotter) SetColor(c color.RGBA) {
	p.add("color", float64(c.R), float64(c.G), float64(c.B))
}

func (p *fakePlotter) SetDotSize(s float64) error {
	if s <= 0 {
		return errors.New("bad dot size")
	}
	p.add("dot_size", s)
	return nil
}

func (p *fakePlotter) SetRange(xmin, xmax, ymin, ymax float64) error {
	p.add("range", xmin, xmax, ymin, ymax)
	return nil
}
func (p *fakePlotter) SetViewpoint(x, y, z float64) { p.add("pov3d", x, y, z) }
func (p *fakePlotter) Plot(x, y float64)             { p.add("plot", x, y) }
func (p *fakePlotter) Plot3D(x, y, z float64)        { p.add("plot3d", x, y, z) }
func (p *fakePlotter) Line(x0, y0, x1, y1 float64)   { p.add("line", x0, y0, x1, y1) }
func (p *fakePlotter) Line3D(x0, y0, z0, x1, y1, z1 float64) {
	p.add("line3d", x0, y0, z0, x1, y1, z1)
}

func TestGraphics(t *testing.T) {
	p := &fakePlotter{}
	ui := &fakeUI{}
	e := newEngine(ui, eval.Options{Plotter: p})
	script := "255 255 255 erase 255 0 0 color 2 dot_size -1 1 -2 2 range 1 2 3 pov3d " +
		"0.5 1 plot 1 2 3 plot3d 0 0 1 1 line 0 0 0 1 1 1 line3d"
	m, err := e.Run(context.Background(), script)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("operands should be consumed, got %s", m)
	}
	expected := []string{"erase", "color", "dot_size", "range", "pov3d", "plot", "plot3d", "line", "line3d"}
	if len(p.calls) != len(expected) {
		t.Fatalf("got %v", p.calls)
	}
	for i, c := range p.calls {
		if c.name != expected[i] {
			t.Errorf("call %d: got %s, expected %s", i, c.name, expected[i])
		}
	}
	if r := p.calls[3].args; r[0] != -1 || r[1] != 1 || r[2] != -2 || r[3] != 2 {
		t.Errorf("range operands out of order: %v", r)
	}
	if c := p.calls[5].args; c[0] != 0.5 || c[1] != 1 {
		t.Errorf("plot operands out of order: %v", c)
	}
	m, err = e.Run(context.Background(), "1 2 300 color")
	if err == nil || m.String() != "[1 2 300]" {
		t.Errorf("bad color should fail without popping: %s %v", m, err)
	}
	m, err = e.Run(context.Background(), "0 dot_size")
	if err == nil || m.String() != "[0]" {
		t.Errorf("bad dot size should fail without popping: %s %v", m, err)
	}
	if _, err = e.Run(context.Background(), "1 2 line"); !errors.Is(err, stack.ErrUnderflow) {
		t.Errorf("expected underflow, got %v", err)
	}
}
