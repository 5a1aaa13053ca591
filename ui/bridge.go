// Package ui has the user facing side of script runs: the Bridge that
// carries the engine's calls from the worker goroutine to the main one and
// the line oriented Console with its debugger panel.
package ui

import (
	"time"

	"fortio.org/log"
	"github.com/cockroachdb/apd/v3"
	"grol.io/rpncalc/eval"
)

// DefaultRefreshDelay is how long the worker pauses after a stack refresh
// so the display keeps up with the run.
const DefaultRefreshDelay = time.Millisecond

type request struct {
	fn   func()
	done chan struct{} // nil for posted (non blocking) requests.
}

// Bridge is the eval.UI given to the engine. Every call is executed by the
// goroutine running Serve, on the wrapped front end: blocking calls wait
// for it, posted ones (progress, stack refresh) don't.
type Bridge struct {
	front        eval.UI
	requests     chan request
	refreshDelay time.Duration
}

// NewBridge wraps front. A negative refreshDelay uses DefaultRefreshDelay.
func NewBridge(front eval.UI, refreshDelay time.Duration) *Bridge {
	if refreshDelay < 0 {
		refreshDelay = DefaultRefreshDelay
	}
	return &Bridge{
		front:        front,
		requests:     make(chan request, 64),
		refreshDelay: refreshDelay,
	}
}

// Serve runs the requests until done is closed, then runs the ones still
// queued and returns.
func (b *Bridge) Serve(done <-chan struct{}) {
	for {
		select {
		case r := <-b.requests:
			b.handle(r)
		case <-done:
			for {
				select {
				case r := <-b.requests:
					b.handle(r)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) handle(r request) {
	r.fn()
	if r.done != nil {
		close(r.done)
	}
}

// call runs fn on the serving goroutine and waits for it.
func (b *Bridge) call(fn func()) {
	done := make(chan struct{})
	b.requests <- request{fn: fn, done: done}
	<-done
}

func (b *Bridge) post(fn func()) {
	b.requests <- request{fn: fn}
}

func (b *Bridge) DisplayMessage(msg string) {
	b.call(func() { b.front.DisplayMessage(msg) })
}

func (b *Bridge) Prompt(msg string) (v *apd.Decimal, err error) {
	b.call(func() { v, err = b.front.Prompt(msg) })
	return v, err
}

func (b *Bridge) ShowProgress(msg string, percent float64) {
	b.post(func() { b.front.ShowProgress(msg, percent) })
}

// RefreshStack posts the new values then pauses the worker briefly.
func (b *Bridge) RefreshStack(values []*apd.Decimal) {
	b.post(func() { b.front.RefreshStack(values) })
	if b.refreshDelay > 0 {
		time.Sleep(b.refreshDelay)
	}
}

func (b *Bridge) ShowDebugger(info eval.DebugInfo) {
	log.LogVf("debugger at line %d %s", info.Line, info.Token)
	b.call(func() { b.front.ShowDebugger(info) })
}

func (b *Bridge) HideDebugger() {
	b.call(b.front.HideDebugger)
}

func (b *Bridge) DebuggerVisible() (visible bool) {
	b.call(func() { visible = b.front.DebuggerVisible() })
	return visible
}

func (b *Bridge) DebugCommand() (cmd eval.DebugState) {
	b.call(func() { cmd = b.front.DebugCommand() })
	return cmd
}
