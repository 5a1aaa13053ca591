// Package repl is the interactive calculator: a line session over the
// engine where bare numbers are the value being edited, other lines run as
// scripts and lines starting with ':' are session commands.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"fortio.org/log"
	"fortio.org/terminal"
	"grol.io/rpncalc/eval"
	"grol.io/rpncalc/functions"
	"grol.io/rpncalc/hostmath"
	"grol.io/rpncalc/plot"
	"grol.io/rpncalc/stack"
	"grol.io/rpncalc/token"
	"grol.io/rpncalc/ui"
)

const PROMPT = "rpn> "

type Options struct {
	// Engine options, UI and Stack are set by the session.
	Engine eval.Options
	// Canvas is the plotting surface for :plot, also set as Engine.Plotter
	// when that one is nil.
	Canvas        *plot.Canvas
	HistoryFile   string
	FunctionsFile string
	RefreshDelay  time.Duration
	ShowStack     bool // print the stack after each line.
	Progress      bool
}

// Session is one interactive calculator: a persistent stack, the engine
// running on a worker and the console serving it from the input goroutine.
type Session struct {
	opts     Options
	out      io.Writer
	console  *ui.Console
	bridge   *ui.Bridge
	engine   *eval.Engine
	stack    *stack.Machine
	funcs    *functions.Table
	complete *AutoComplete
	nfuncs   int
	history  []string
}

func NewSession(in ui.LineReader, out io.Writer, opts Options) *Session {
	funcs := opts.Engine.Functions
	if funcs == nil {
		funcs = functions.Default
	}
	if opts.Engine.Plotter == nil && opts.Canvas != nil {
		opts.Engine.Plotter = opts.Canvas
	}
	s := &Session{
		opts:    opts,
		out:     out,
		console: &ui.Console{In: in, Out: out, DefaultPrompt: PROMPT, Progress: opts.Progress},
		stack:   stack.New(),
		funcs:   funcs,
	}
	s.bridge = ui.NewBridge(s.console, opts.RefreshDelay)
	eo := opts.Engine
	eo.UI = s.bridge
	eo.Functions = funcs
	eo.Stack = s.stack
	s.engine = eval.New(eo)
	if err := funcs.LoadFile(opts.FunctionsFile); err != nil {
		log.Errf("Error loading functions: %v", err)
	}
	s.complete = NewCompletion(s.words()...)
	s.nfuncs = funcs.Len()
	return s
}

// words are the completion candidates.
func (s *Session) words() []string {
	words := slices.Sorted(maps.Keys(token.Info().Keywords))
	words = append(words, commandNames()...)
	if l, ok := s.opts.Engine.Math.(*hostmath.Library); ok {
		words = append(words, l.Names()...)
	} else if s.opts.Engine.Math == nil {
		words = append(words, hostmath.Default().Names()...)
	}
	return append(words, s.functionNames()...)
}

func (s *Session) functionNames() []string {
	return slices.Sorted(maps.Keys(s.funcs.Names()))
}

// Completion is the tab completion of the session.
func (s *Session) Completion() *AutoComplete {
	return s.complete
}

// Stack is the session's persistent stack.
func (s *Session) Stack() *stack.Machine {
	return s.stack
}

// Loop evaluates lines from in until end of input or :quit.
func (s *Session) Loop(ctx context.Context, in ui.LineReader) {
	in.SetPrompt(PROMPT)
	for {
		line, err := in.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Infof("Exiting on %v", err)
			}
			return
		}
		if s.Eval(ctx, line) {
			return
		}
	}
}

// isEntry tells if line is typed as a number, well formed or not.
func isEntry(line string) bool {
	digit := false
	for _, c := range []byte(line) {
		switch {
		case c >= '0' && c <= '9':
			digit = true
		case strings.IndexByte("+-.eE", c) >= 0:
		default:
			return false
		}
	}
	return digit
}

// Eval handles one input line, returns true when the session should end.
func (s *Session) Eval(ctx context.Context, line string) (quit bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed != "" {
		s.history = append(s.history, line)
	}
	switch {
	case trimmed == "":
		// Enter commits the value being edited.
		if err := s.stack.Commit(); err != nil {
			fmt.Fprintf(s.out, "%smalformed entry discarded: %v%s\n", log.Colors.Red, err, log.Colors.Reset)
		}
	case strings.HasPrefix(trimmed, ":"):
		return s.command(ctx, trimmed[1:])
	case isEntry(trimmed):
		if err := s.stack.Commit(); err != nil {
			fmt.Fprintf(s.out, "%smalformed entry discarded: %v%s\n", log.Colors.Red, err, log.Colors.Reset)
		}
		s.stack.SetEntry(trimmed)
	default:
		_ = s.run(ctx, line, false)
	}
	s.printStack()
	return false
}

func (s *Session) printStack() {
	if !s.opts.ShowStack {
		return
	}
	if e := s.stack.Entry(); e != "" {
		fmt.Fprintf(s.out, "%s %s%s_%s\n", s.stack, log.Colors.Cyan, e, log.Colors.Reset)
		return
	}
	fmt.Fprintln(s.out, s.stack)
}

// run executes script on the engine's worker while this goroutine serves the
// UI. Ctrl-C stops the run.
func (s *Session) run(ctx context.Context, script string, debug bool) error {
	s.engine.SetDebug(debug)
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	h, err := s.engine.Start(runCtx, script)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return err
	}
	s.bridge.Serve(h.Done())
	_, err = h.Wait()
	switch {
	case errors.Is(err, eval.ErrStopped):
		fmt.Fprintf(s.out, "%sstopped%s\n", log.Colors.Yellow, log.Colors.Reset)
	case err != nil:
		log.LogVf("run: %v", err)
	}
	if n := s.funcs.Len(); n != s.nfuncs {
		s.nfuncs = n
		s.complete.Add(s.functionNames()...)
	}
	return err
}

// Close saves the functions, returns the exit code.
func (s *Session) Close() int {
	if err := s.funcs.SaveFile(s.opts.FunctionsFile); err != nil {
		return log.FErrf("Error saving functions: %v", err)
	}
	return 0
}

// Interactive runs a session on the terminal.
func Interactive(opts Options) int {
	t, err := terminal.Open(context.Background())
	if err != nil {
		return log.FErrf("Error creating terminal: %v", err)
	}
	defer t.Close()
	terminal.LoggerSetup(t.Out)
	if opts.HistoryFile != "" {
		if err = t.SetHistoryFile(opts.HistoryFile); err != nil {
			log.Warnf("History file %s: %v", opts.HistoryFile, err)
		}
	}
	s := NewSession(t, t.Out, opts)
	t.SetAutoCompleteCallback(s.complete.AutoComplete())
	fmt.Fprintln(t.Out, "Type :help for commands, Ctrl-D to exit.")
	s.Loop(context.Background(), t)
	return s.Close()
}

// Batch runs script on the calling goroutine with a console on in and out
// (in may be nil: prompts then fail). The stack is printed at the end.
func Batch(ctx context.Context, script string, in ui.LineReader, out io.Writer, opts Options) (*stack.Machine, error) {
	if opts.Engine.Plotter == nil && opts.Canvas != nil {
		opts.Engine.Plotter = opts.Canvas
	}
	eo := opts.Engine
	eo.UI = &ui.Console{In: in, Out: out, Progress: opts.Progress}
	m, err := eval.New(eo).Run(ctx, script)
	if m != nil {
		fmt.Fprintln(out, m)
	}
	return m, err
}

// EvalString runs script without input. Returns what was displayed
// followed by the final stack, and the error messages.
func EvalString(script string) (string, []string) {
	var b strings.Builder
	_, err := Batch(context.Background(), script, nil, &b, Options{Engine: eval.Options{Functions: functions.New()}})
	if err != nil && !eval.Silent(err) {
		return b.String(), []string{err.Error()}
	}
	return b.String(), nil
}
