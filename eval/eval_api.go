// Package eval is the block scoped RPN script interpreter: it consumes
// tokens, drives the value stack, slices out block bodies by counting
// nested openers and runs them as new instances, and hosts the debugger.
package eval

import (
	"context"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/apd/v3"
	"grol.io/rpncalc/functions"
	"grol.io/rpncalc/hostmath"
	"grol.io/rpncalc/lexer"
	"grol.io/rpncalc/scope"
	"grol.io/rpncalc/stack"
)

// Exported part of the eval package.

// DefaultMaxDepth is the default limit of nested instances (blocks, loop
// iterations in flight, function calls, scripts) of one run.
const DefaultMaxDepth = 10_000

// ScriptExtension is appended to run_script file names in restricted mode.
const ScriptExtension = ".rpn"

// UI is the user facing collaborator. DisplayMessage, Prompt and
// DebugCommand block the calling (worker) goroutine until answered.
type UI interface {
	DisplayMessage(msg string)
	// Prompt asks for a value, an error means no value (cancelled, EOF).
	Prompt(msg string) (*apd.Decimal, error)
	ShowProgress(msg string, percent float64)
	RefreshStack(values []*apd.Decimal)
	ShowDebugger(info DebugInfo)
	HideDebugger()
	DebuggerVisible() bool
	// DebugCommand waits for the user's next debugger command.
	DebugCommand() DebugState
}

// Plotter is the drawing surface. Operands come off the stack in the
// order they were pushed (x y plot, r g b color ...).
type Plotter interface {
	Erase(c color.RGBA)
	SetColor(c color.RGBA)
	SetDotSize(size float64) error
	SetRange(xmin, xmax, ymin, ymax float64) error
	SetViewpoint(x, y, z float64)
	Plot(x, y float64)
	Plot3D(x, y, z float64)
	Line(x0, y0, x1, y1 float64)
	Line3D(x0, y0, z0, x1, y1, z1 float64)
}

// MathLib resolves math_call names.
type MathLib interface {
	Lookup(name string) (hostmath.Function, bool)
}

// DebugInfo is what the debugger shows when halted (or at a failure).
type DebugInfo struct {
	Line   int
	Column int
	Source string // text of the current line.
	Token  string
	Depth  int // number of contexts.
	Vars   []scope.Entry
	Stack  []*apd.Decimal
	Err    error // set when showing the point of failure.
}

type Options struct {
	UI        UI               // defaults to NoUI.
	Plotter   Plotter          // graphics fail with ErrNoPlotter when nil.
	Math      MathLib          // defaults to hostmath.Default().
	Functions *functions.Table // defaults to functions.Default.
	// Stack to run against; a fresh one per run when nil.
	Stack *stack.Machine
	// Lexers defaults to a token cache shared by the runs of the Engine.
	Lexers   lexer.Factory
	MaxDepth int  // defaults to DefaultMaxDepth.
	Debug    bool // start runs halted on the first token (step_in).
	// ScriptDir is where run_script files are read from, defaults to ".".
	ScriptDir      string
	UnrestrictedIO bool // run_script of any path.
}

// Engine holds what lives across runs and guards against two runs at once.
type Engine struct {
	opts    Options
	running atomic.Bool
	mu      sync.Mutex
	current *State
}

func New(opts Options) *Engine {
	if opts.UI == nil {
		opts.UI = NoUI{}
	}
	if opts.Math == nil {
		opts.Math = hostmath.Default()
	}
	if opts.Functions == nil {
		opts.Functions = functions.Default
	}
	if opts.Lexers == nil {
		opts.Lexers = lexer.NewCache(lexer.DefaultCacheSize)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.ScriptDir == "" {
		opts.ScriptDir = "."
	}
	return &Engine{opts: opts}
}

// SetDebug changes whether the next runs start in the debugger.
func (e *Engine) SetDebug(debug bool) {
	e.mu.Lock()
	e.opts.Debug = debug
	e.mu.Unlock()
}

// SetStack changes the stack the next runs use, nil for a fresh one per run.
func (e *Engine) SetStack(m *stack.Machine) {
	e.mu.Lock()
	e.opts.Stack = m
	e.mu.Unlock()
}

// Running tells if a run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Stop asks the current run, if any, to stop at its next token.
// Returns false when nothing was running.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return false
	}
	e.current.Stop()
	return true
}

func (e *Engine) acquire(ctx context.Context) (*State, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = newState(ctx, e.opts)
	return e.current, nil
}

func (e *Engine) release() {
	e.mu.Lock()
	e.current = nil
	e.mu.Unlock()
	e.running.Store(false)
}

// Run runs script on the calling goroutine and returns the stack it ran
// against. exit and the end of the script are successes.
func (e *Engine) Run(ctx context.Context, script string) (*stack.Machine, error) {
	st, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer e.release()
	err = st.run(script)
	return st.stack, err
}

// Handle is a run in progress on its worker goroutine.
type Handle struct {
	st   *State
	done chan struct{}
	err  error
}

// Start runs script on a new worker goroutine. Only one run at a time:
// ErrAlreadyRunning is returned right away otherwise.
func (e *Engine) Start(ctx context.Context, script string) (*Handle, error) {
	st, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	h := &Handle{st: st, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer e.release()
		h.err = st.run(script)
	}()
	return h, nil
}

// Done is closed when the run is over.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Stop requests a stop, see State.Stop.
func (h *Handle) Stop() {
	h.st.Stop()
}

// Wait blocks until the run is over.
func (h *Handle) Wait() (*stack.Machine, error) {
	<-h.done
	return h.st.stack, h.err
}

// NoUI is the UI for batch runs: messages are logged, prompts fail and
// the debugger never halts.
type NoUI struct{}

func (NoUI) DisplayMessage(msg string) { logMessage(msg) }
func (NoUI) Prompt(string) (*apd.Decimal, error) {
	return nil, ErrPromptCancelled
}
func (NoUI) ShowProgress(string, float64) {}
func (NoUI) RefreshStack([]*apd.Decimal)  {}
func (NoUI) ShowDebugger(DebugInfo)       {}
func (NoUI) HideDebugger()                {}
func (NoUI) DebuggerVisible() bool        { return false }
func (NoUI) DebugCommand() DebugState     { return DebugNone }
