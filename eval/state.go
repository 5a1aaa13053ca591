package eval

import (
	"fmt"

	"fortio.org/log"
	"grol.io/rpncalc/token"
)

// Mode is the interpreter state of a context.
type Mode uint8

const (
	Running Mode = iota
	AnalyzingIf
	AnalyzingElse
	AnalyzingWhile
	AnalyzingFundef
)

func (m Mode) String() string {
	switch m {
	case Running:
		return "running"
	case AnalyzingIf:
		return "analyzing if"
	case AnalyzingElse:
		return "analyzing else"
	case AnalyzingWhile:
		return "analyzing while"
	case AnalyzingFundef:
		return "analyzing fundef"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// DebugState is both the debugger state of a context and the command the
// user gives when the debugger halts.
type DebugState uint8

const (
	DebugNone DebugState = iota // run to completion.
	StepIn
	StepOver
	StepOut
	DebugExit
)

func (d DebugState) String() string {
	switch d {
	case DebugNone:
		return "none"
	case StepIn:
		return "step_in"
	case StepOver:
		return "step_over"
	case StepOut:
		return "step_out"
	case DebugExit:
		return "exit"
	default:
		return fmt.Sprintf("DebugState(%d)", d)
	}
}

// halts is true for the states where the debugger stops before each token.
func (d DebugState) halts() bool {
	return d == StepIn || d == StepOver
}

// Context is the bookkeeping of one running instance or one block being
// analyzed. Start and End are byte offsets of the body in the text of the
// instance that owns the context.
type Context struct {
	Mode  Mode
	Debug DebugState
	Start int
	End   int
	Line  int    // line number of the first body byte.
	Name  string // function name for fundef.

	// else part of an if: the if body is [Start, ElseAt) and the else
	// context holds the rest.
	ElseAt int

	nesting int
}

// analyzing returns the Mode for a block opener.
func analyzing(t token.Type) Mode {
	switch t { //nolint:exhaustive // only openers.
	case token.IF:
		return AnalyzingIf
	case token.ELSE:
		return AnalyzingElse
	case token.WHILE:
		return AnalyzingWhile
	case token.FUNDEF:
		return AnalyzingFundef
	default:
		panic("not a block opener: " + t.String())
	}
}

// push adds c on top of the run's context stack, inheriting the debug
// state: a step_over parent gives a step_out child, an exiting parent
// refuses the push.
func (st *State) push(c *Context) error {
	if n := len(st.contexts); n > 0 {
		parent := st.contexts[n-1]
		switch parent.Debug {
		case DebugExit:
			return ErrDebugExit
		case StepOver:
			c.Debug = StepOut
		default:
			c.Debug = parent.Debug
		}
	} else if st.debug {
		c.Debug = StepIn
	}
	st.contexts = append(st.contexts, c)
	log.Debugf("push %s debug %s, %d contexts", c.Mode, c.Debug, len(st.contexts))
	return nil
}

// pop removes the top context and propagates its debug state outward.
func (st *State) pop() *Context {
	n := len(st.contexts)
	c := st.contexts[n-1]
	st.contexts = st.contexts[:n-1]
	log.Debugf("pop %s debug %s, %d contexts", c.Mode, c.Debug, n-1)
	if n == 1 {
		return c
	}
	top := st.contexts[n-2]
	switch c.Debug {
	case DebugExit:
		top.Debug = DebugExit
	case StepOut:
		if top.Debug == StepIn {
			top.Debug = StepOver
		}
	case DebugNone:
		top.Debug = DebugNone
	case StepIn, StepOver:
	}
	return c
}

func (st *State) top() *Context {
	return st.contexts[len(st.contexts)-1]
}

// Depth is the number of contexts on the stack.
func (st *State) Depth() int {
	return len(st.contexts)
}
