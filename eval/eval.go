package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"fortio.org/log"
	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"grol.io/rpncalc/functions"
	"grol.io/rpncalc/lexer"
	"grol.io/rpncalc/number"
	"grol.io/rpncalc/scope"
	"grol.io/rpncalc/stack"
	"grol.io/rpncalc/token"
)

// State is one top level run: its value stack and the context stack shared
// by every nested instance of the run.
type State struct {
	id       string
	ctx      context.Context
	opts     Options
	ui       UI
	stack    *stack.Machine
	contexts []*Context
	stop     atomic.Bool
	debug    bool
	depth    int
	reported bool // failure already shown.
}

func newState(ctx context.Context, opts Options) *State {
	st := &State{
		id:    uuid.NewString(),
		ctx:   ctx,
		opts:  opts,
		ui:    opts.UI,
		stack: opts.Stack,
		debug: opts.Debug,
	}
	if st.stack == nil {
		st.stack = stack.New()
	}
	return st
}

// ID is the run id used in logs.
func (st *State) ID() string {
	return st.id
}

// Stop makes the run return ErrStopped at its next token, at every level.
// A blocking UI call already in progress isn't interrupted.
func (st *State) Stop() {
	st.stop.Store(true)
}

func (st *State) stopped() bool {
	return st.stop.Load() || st.ctx.Err() != nil
}

func (st *State) run(script string) error {
	start := time.Now()
	log.S(log.Info, "run start", log.Str("run", st.id), log.Attr("bytes", len(script)), log.Attr("debug", st.debug))
	err := st.exec(script, 1, nil)
	if errors.Is(err, errExit) {
		err = nil
	}
	if st.ui.DebuggerVisible() {
		st.ui.HideDebugger()
	}
	st.ui.ShowProgress("done", 100)
	st.ui.RefreshStack(st.stack.Values())
	outcome := "ok"
	if err != nil {
		outcome = err.Error()
	}
	attrs := []log.KeyVal{
		log.Str("run", st.id), log.Str("result", outcome),
		log.Attr("stack", st.stack.Len()), log.Str("duration", time.Since(start).String()),
	}
	if c, ok := st.opts.Lexers.(*lexer.Cache); ok {
		hits, misses := c.Stats()
		attrs = append(attrs, log.Attr("cache_hits", hits), log.Attr("cache_misses", misses))
	}
	log.S(log.Info, "run end", attrs...)
	return err
}

// instance is one execution of a script text: the top level script, a
// block body, a loop iteration, a function call or a run_script file.
type instance struct {
	st    *State
	scope *scope.Scope
	text  string
	ctx   *Context
}

// exec runs text, whose first line is line, as a new instance whose scope
// is a child of parent.
func (st *State) exec(text string, line int, parent *scope.Scope) error {
	if st.depth >= st.opts.MaxDepth {
		return fmt.Errorf("%w (%d)", ErrMaxDepth, st.opts.MaxDepth)
	}
	in := &instance{st: st, scope: scope.New(parent), text: text}
	c := &Context{Mode: Running, End: len(text), Line: line}
	if err := st.push(c); err != nil {
		return err
	}
	in.ctx = c
	st.depth++
	defer func() {
		st.depth--
		// Blocks left open by a failure, then this instance.
		for st.top() != c {
			st.pop()
		}
		st.pop()
	}()
	src := st.opts.Lexers.Source(text, line)
	for {
		tok := src.NextToken()
		if st.stopped() {
			return ErrStopped
		}
		if log.LogDebug() {
			log.Debugf("[%d] %s %s", st.depth, st.top().Mode, tok.DebugString())
		}
		var err error
		top := st.top()
		switch {
		case top.Mode != Running:
			err = in.analyze(top, tok)
		case tok.Type == token.EOF:
			return nil
		default:
			err = in.step(tok)
		}
		if err != nil {
			st.report(in, tok, err)
			return err
		}
	}
}

// step runs one token in Running mode.
func (in *instance) step(tok token.Token) error {
	st := in.st
	if in.ctx.Debug.halts() {
		st.ui.ShowDebugger(in.debugInfo(tok, nil))
		in.ctx.Debug = st.ui.DebugCommand()
		log.LogVf("debugger command %s", in.ctx.Debug)
		if in.ctx.Debug == DebugExit {
			return ErrDebugExit
		}
	}
	if tok.Type != token.NEG {
		if err := st.stack.Commit(); err != nil {
			st.ui.DisplayMessage(err.Error())
		}
	}
	if err := in.dispatch(tok); err != nil {
		return err
	}
	if st.depth == 1 && len(in.text) > 0 {
		st.ui.ShowProgress(fmt.Sprintf("line %d", tok.Line), 100*float64(tok.Pos+tok.Len)/float64(len(in.text)))
	}
	st.ui.RefreshStack(st.stack.Values())
	return nil
}

// report shows the first failure of the run: the debugger at the failure
// point when it's open, then the message unless the error is silent.
func (st *State) report(in *instance, tok token.Token, err error) {
	if st.reported || errors.Is(err, errExit) {
		return
	}
	st.reported = true
	log.LogVf("run %s failed at line %d: %v", st.id, tok.Line, err)
	if st.ui.DebuggerVisible() {
		st.ui.ShowDebugger(in.debugInfo(tok, err))
	}
	if !Silent(err) {
		st.ui.DisplayMessage(err.Error())
	}
}

func (in *instance) debugInfo(tok token.Token, err error) DebugInfo {
	return DebugInfo{
		Line:   tok.Line,
		Column: tok.Column,
		Source: lexer.LineAt(in.text, tok.Pos),
		Token:  tok.String(),
		Depth:  len(in.st.contexts),
		Vars:   in.scope.Dump(),
		Stack:  in.st.stack.Values(),
		Err:    err,
	}
}

// open pushes the context of a block whose body starts after tok.
func (in *instance) open(tok token.Token, mode Mode) error {
	end := tok.Pos + tok.Len
	c := &Context{
		Mode:  mode,
		Start: end,
		Line:  tok.Line + strings.Count(in.text[tok.Pos:end], "\n"),
		Name:  tok.Payload,
	}
	return in.st.push(c)
}

// analyze handles a token while a block body is being delimited. Only
// openers and closers of the same kind matter, counted so inner blocks
// don't close the outer one.
func (in *instance) analyze(c *Context, tok token.Token) error {
	if tok.Type == token.EOF || tok.Type == token.ILLEGAL {
		return syntaxError(tok)
	}
	var opener, closer token.Type
	switch c.Mode {
	case AnalyzingIf, AnalyzingElse:
		opener, closer = token.IF, token.ENDIF
	case AnalyzingWhile:
		opener, closer = token.WHILE, token.ENDWHILE
	case AnalyzingFundef:
		opener, closer = token.FUNDEF, token.ENDFUNDEF
	case Running:
		panic("analyze called in running mode")
	}
	switch tok.Type {
	case opener:
		c.nesting++
		return nil
	case closer:
		if c.nesting > 0 {
			c.nesting--
			return nil
		}
		c.End = tok.Pos
		in.st.pop()
		return in.close(c)
	case token.ELSE:
		if c.nesting > 0 {
			return nil
		}
		switch c.Mode { //nolint:exhaustive // only if and else know about else.
		case AnalyzingIf:
			c.ElseAt = tok.Pos
			return in.open(tok, AnalyzingElse)
		case AnalyzingElse:
			return syntaxError(tok)
		}
	}
	return nil
}

// close dispatches a block whose context was just popped.
func (in *instance) close(c *Context) error {
	switch c.Mode {
	case AnalyzingIf:
		return in.runIf(c, nil)
	case AnalyzingElse:
		return in.runIf(in.st.pop(), c)
	case AnalyzingWhile:
		return in.runWhile(c)
	case AnalyzingFundef:
		in.st.opts.Functions.Define(c.Name, functions.Body{Text: in.text[c.Start:c.End], Line: c.Line})
		return nil
	case Running:
	}
	return nil
}

func (in *instance) body(start, end, line int) error {
	return in.st.exec(in.text[start:end], line, in.scope)
}

// runIf runs the if or else body depending on the top value, which stays
// on the stack.
func (in *instance) runIf(ifc, elsec *Context) error {
	v, err := in.st.stack.Peek()
	if err != nil {
		return err
	}
	switch {
	case number.Truthy(v) && elsec != nil:
		return in.body(ifc.Start, ifc.ElseAt, ifc.Line)
	case number.Truthy(v):
		return in.body(ifc.Start, ifc.End, ifc.Line)
	case elsec != nil:
		return in.body(elsec.Start, elsec.End, elsec.Line)
	}
	return nil
}

// runWhile runs the body, as a new instance each time, while the top value
// is true.
func (in *instance) runWhile(c *Context) error {
	for {
		if in.st.stopped() {
			return ErrStopped
		}
		v, err := in.st.stack.Peek()
		if err != nil {
			return err
		}
		if !number.Truthy(v) {
			return nil
		}
		if err := in.body(c.Start, c.End, c.Line); err != nil {
			return err
		}
	}
}

// dispatch runs one Running mode token.
func (in *instance) dispatch(tok token.Token) error {
	st := in.st
	switch tok.Type {
	case token.NUMBER:
		v, err := number.Parse(tok.Literal)
		if err != nil {
			return syntaxError(tok)
		}
		st.stack.Push(v)
	case token.IDENT:
		st.stack.Push(in.scope.Get(tok.Payload))
	case token.ASSIGN:
		v, err := st.stack.Pop()
		if err != nil {
			return err
		}
		in.scope.Set(tok.Payload, v)
	case token.ARRAYGET:
		return in.arrayGet(tok.Payload)
	case token.ARRAYSET:
		return in.arraySet(tok.Payload)
	case token.IF, token.WHILE, token.FUNDEF:
		return in.open(tok, analyzing(tok.Type))
	case token.FUNDEL:
		st.opts.Functions.Delete(tok.Payload)
	case token.FUNCALL:
		return in.funcall(tok.Payload)
	case token.MATHCALL:
		return in.mathCall(tok.Payload)
	case token.RUNSCRIPT:
		return in.runScript(tok.Payload)
	case token.DISPLAY:
		st.ui.DisplayMessage(tok.Payload)
	case token.PROMPT:
		v, err := st.ui.Prompt(tok.Payload)
		if err != nil {
			return fmt.Errorf("prompt_message %q: %w", tok.Payload, err)
		}
		st.stack.Push(v)
	case token.DEBUGBREAK:
		in.ctx.Debug = StepIn
	case token.EXIT:
		return errExit
	case token.ELSE, token.ENDIF, token.ENDWHILE, token.ENDFUNDEF, token.ILLEGAL, token.EOF:
		return syntaxError(tok)
	default:
		switch {
		case token.IsStackOp(tok.Type):
			return st.stack.Apply(tok.Literal)
		case token.IsGraphics(tok.Type):
			return in.graphics(tok.Type)
		}
		return syntaxError(tok)
	}
	return nil
}

func (in *instance) arrayIndex(d *apd.Decimal) (int, error) {
	idx, err := number.Count(d)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArrayIndex, err)
	}
	return idx, nil
}

// arrayGet pops the index and pushes name[index].
func (in *instance) arrayGet(name string) error {
	st := in.st
	top, err := st.stack.Peek()
	if err != nil {
		return err
	}
	idx, err := in.arrayIndex(top)
	if err != nil {
		return err
	}
	v, err := in.scope.GetArray(name, idx)
	if err != nil {
		return err
	}
	_, _ = st.stack.Pop()
	st.stack.Push(v)
	return nil
}

// arraySet pops the index (top) then the value and stores name[index].
func (in *instance) arraySet(name string) error {
	st := in.st
	args, err := st.stack.PeekN(2)
	if err != nil {
		return err
	}
	idx, err := in.arrayIndex(args[1])
	if err != nil {
		return err
	}
	if err := in.scope.SetArray(name, idx, args[0]); err != nil {
		return err
	}
	_, _ = st.stack.PopN(2)
	return nil
}
