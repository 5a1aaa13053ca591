package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"fortio.org/log"
	"fortio.org/progressbar"
	"github.com/cockroachdb/apd/v3"
	"grol.io/rpncalc/eval"
	"grol.io/rpncalc/number"
)

// LineReader is the interactive input, a fortio.org/terminal Terminal or a
// Scanner.
type LineReader interface {
	SetPrompt(p string)
	ReadLine() (string, error)
}

// Scanner is the LineReader for non terminal input.
type Scanner struct {
	s      *bufio.Scanner
	out    io.Writer
	prompt string
}

// NewScanner reads lines from in; prompts are written to out.
func NewScanner(in io.Reader, out io.Writer) *Scanner {
	return &Scanner{s: bufio.NewScanner(in), out: out}
}

func (s *Scanner) SetPrompt(p string) {
	s.prompt = p
}

func (s *Scanner) ReadLine() (string, error) {
	if s.prompt != "" && s.out != nil {
		fmt.Fprint(s.out, s.prompt)
	}
	if !s.s.Scan() {
		if err := s.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.s.Text(), nil
}

// DebugPrompt is shown when the debugger waits for a command.
const DebugPrompt = "debug> "

// Console is the line oriented front end. Its methods must be called from a
// single goroutine: directly for batch runs, through a Bridge otherwise.
type Console struct {
	In  LineReader // nil: prompts fail and the debugger resumes.
	Out io.Writer
	// DefaultPrompt is the normal prompt, restored after value prompts.
	DefaultPrompt string
	// ShowStack prints the stack at each refresh.
	ShowStack bool
	// Progress shows a progress bar while a script runs.
	Progress bool

	bar     *progressbar.Bar
	visible bool
	last    []*apd.Decimal
}

func (c *Console) endBar() {
	if c.bar != nil {
		c.bar.End()
		c.bar = nil
	}
}

func (c *Console) DisplayMessage(msg string) {
	c.endBar()
	fmt.Fprintln(c.Out, msg)
}

func (c *Console) readLine(prompt string) (string, error) {
	c.In.SetPrompt(prompt)
	defer c.In.SetPrompt(c.DefaultPrompt)
	return c.In.ReadLine()
}

// Prompt asks until a valid number is entered.
func (c *Console) Prompt(msg string) (*apd.Decimal, error) {
	if c.In == nil {
		return nil, eval.ErrPromptCancelled
	}
	c.endBar()
	for {
		line, err := c.readLine(msg + " ")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", eval.ErrPromptCancelled, err)
		}
		v, err := number.Parse(strings.TrimSpace(line))
		if err == nil {
			return v, nil
		}
		fmt.Fprintf(c.Out, "%sinvalid number %q%s\n", log.Colors.Red, line, log.Colors.Reset)
	}
}

func (c *Console) ShowProgress(msg string, percent float64) {
	if !c.Progress {
		return
	}
	if c.bar == nil {
		if percent >= 100 {
			return
		}
		cfg := progressbar.DefaultConfig()
		cfg.ScreenWriter = c.Out
		c.bar = cfg.NewBar()
	}
	c.bar.UpdatePrefix(msg + " ")
	c.bar.Progress(percent)
	if percent >= 100 {
		c.endBar()
	}
}

func (c *Console) RefreshStack(values []*apd.Decimal) {
	c.last = values
	if c.ShowStack {
		fmt.Fprintln(c.Out, FormatStack(values))
	}
}

// Stack is the last refreshed stack.
func (c *Console) Stack() []*apd.Decimal {
	return c.last
}

func (c *Console) ShowDebugger(info eval.DebugInfo) {
	c.endBar()
	c.visible = true
	fmt.Fprint(c.Out, Panel(info))
}

func (c *Console) HideDebugger() {
	c.visible = false
}

func (c *Console) DebuggerVisible() bool {
	return c.visible
}

// DebugCommand reads commands until a valid one. End of input or an
// interrupt quits the run.
func (c *Console) DebugCommand() eval.DebugState {
	if c.In == nil {
		return eval.DebugNone
	}
	for {
		line, err := c.readLine(DebugPrompt)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.LogVf("debugger input: %v", err)
			}
			return eval.DebugExit
		}
		if cmd, ok := ParseCommand(line); ok {
			return cmd
		}
		fmt.Fprintln(c.Out, DebugHelp)
	}
}

// DebugHelp lists the debugger commands.
const DebugHelp = "s(tep) or empty: step in, n(ext): step over, o(ut): step out, c(ontinue): resume, q(uit): stop the run"

// ParseCommand maps a debugger command line to the next debug state.
func ParseCommand(line string) (eval.DebugState, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "s", "step":
		return eval.StepIn, true
	case "n", "next", "over":
		return eval.StepOver, true
	case "o", "out":
		return eval.StepOut, true
	case "c", "continue", "r", "resume":
		return eval.DebugNone, true
	case "q", "quit", "exit":
		return eval.DebugExit, true
	}
	return eval.DebugNone, false
}
