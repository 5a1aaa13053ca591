package eval

import (
	"errors"
	"fmt"

	"grol.io/rpncalc/stack"
	"grol.io/rpncalc/token"
)

var (
	// ErrStopped is returned when a stop was requested or the context was cancelled.
	ErrStopped = errors.New("stopped")
	// ErrDebugExit is returned when the user quits from the debugger.
	ErrDebugExit = errors.New("debugger exit")
	// ErrAlreadyRunning is returned by Start and Run while another run is in progress.
	ErrAlreadyRunning = errors.New("a script is already running")
	// ErrMaxDepth is returned when nested blocks and calls go deeper than MaxDepth.
	ErrMaxDepth          = errors.New("max depth reached")
	ErrUnknownFunction   = errors.New("unknown function")
	ErrUnknownMath       = errors.New("unknown math function")
	ErrNoPlotter         = errors.New("no plotting surface")
	ErrInvalidFileName   = errors.New("invalid script file name")
	ErrPromptCancelled   = errors.New("prompt cancelled")
	ErrInvalidArrayIndex = errors.New("invalid array index")

	// exit ends the whole run successfully.
	errExit = errors.New("exit")
)

// SyntaxError is an unexpected token for the current block state,
// including an unexpected end of input inside a block.
type SyntaxError struct {
	Line   int
	Column int
	Token  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, unexpected token %s", e.Line, e.Token)
}

func syntaxError(tok token.Token) *SyntaxError {
	return &SyntaxError{Line: tok.Line, Column: tok.Column, Token: tok.String()}
}

// Silent errors end the run without a message.
func Silent(err error) bool {
	return errors.Is(err, stack.ErrUnderflow) ||
		errors.Is(err, stack.ErrBadCount) ||
		errors.Is(err, ErrStopped) ||
		errors.Is(err, ErrDebugExit) ||
		errors.Is(err, errExit)
}
