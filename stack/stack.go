// Package stack is the RPN value stack machine: decimal values, the
// arithmetic and stack manipulation operations, an entry (edit) buffer and
// the history log of everything that built the current stack.
package stack

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"fortio.org/log"
	"github.com/cockroachdb/apd/v3"
	"grol.io/rpncalc/number"
)

var (
	// ErrUnderflow is returned when an operation lacks operands. Nothing was changed.
	ErrUnderflow = errors.New("stack underflow")
	// ErrBadCount is returned when the count of a dupn/dropn/swapn/rolln
	// isn't a usable non negative integer. Nothing was changed.
	ErrBadCount = errors.New("invalid count")
	// ErrTooLarge is returned by dupn when the copies wouldn't fit in memory.
	// Nothing was changed.
	ErrTooLarge = errors.New("stack too large")
	// ErrMalformed is returned by Commit for an entry that isn't a number.
	ErrMalformed = number.ErrMalformed
	// ErrUnknownOp is returned by Apply for names not in the operation table.
	ErrUnknownOp = errors.New("unknown operation")
)

// Machine is the value stack. Not safe for concurrent use: one run (one
// goroutine) owns it, others get copies through Values.
type Machine struct {
	values  []*apd.Decimal // bottom first.
	history []string
	entry   string // value being edited, not yet on the stack.
}

func New() *Machine {
	return &Machine{}
}

func (m *Machine) log(line string) {
	m.history = append(m.history, line)
}

func (m *Machine) Len() int {
	return len(m.values)
}

// Push adds v on top. v must not be mutated afterwards.
func (m *Machine) Push(v *apd.Decimal) {
	m.values = append(m.values, v)
	m.log(number.Format(v))
}

// Pop removes and returns the top value.
func (m *Machine) Pop() (*apd.Decimal, error) {
	n := len(m.values)
	if n == 0 {
		return nil, ErrUnderflow
	}
	v := m.values[n-1]
	m.values = m.values[:n-1]
	m.log("drop")
	return v, nil
}

// Peek returns the top value without removing it.
func (m *Machine) Peek() (*apd.Decimal, error) {
	n := len(m.values)
	if n == 0 {
		return nil, ErrUnderflow
	}
	return m.values[n-1], nil
}

// PeekN returns the top n values, deepest first, without removing them.
func (m *Machine) PeekN(n int) ([]*apd.Decimal, error) {
	if n < 0 || n > len(m.values) {
		return nil, ErrUnderflow
	}
	return slices.Clone(m.values[len(m.values)-n:]), nil
}

// PopN removes the top n values and returns them deepest (first pushed) first.
func (m *Machine) PopN(n int) ([]*apd.Decimal, error) {
	top, err := m.PeekN(n)
	if err != nil {
		return nil, err
	}
	m.values = m.values[:len(m.values)-n]
	for range n {
		m.log("drop")
	}
	return top, nil
}

// Values returns a copy of the stack, bottom first.
func (m *Machine) Values() []*apd.Decimal {
	res := make([]*apd.Decimal, len(m.values))
	copy(res, m.values)
	return res
}

// Strings is Values formatted, bottom first.
func (m *Machine) Strings() []string {
	res := make([]string, len(m.values))
	for i, v := range m.values {
		res[i] = number.Format(v)
	}
	return res
}

// History returns a copy of the log lines.
func (m *Machine) History() []string {
	res := make([]string, len(m.history))
	copy(res, m.history)
	return res
}

func (m *Machine) String() string {
	return "[" + strings.Join(m.Strings(), " ") + "]"
}

// SetEntry replaces the value being edited.
func (m *Machine) SetEntry(s string) {
	m.entry = strings.TrimSpace(s)
}

// Entry returns the value being edited, empty when none.
func (m *Machine) Entry() string {
	return m.entry
}

// Commit pushes the value being edited, if any. A malformed entry is
// discarded and reported.
func (m *Machine) Commit() error {
	if m.entry == "" {
		return nil
	}
	s := m.entry
	m.entry = ""
	v, err := number.Parse(s)
	if err != nil {
		log.LogVf("discarding malformed entry %q", s)
		return err
	}
	m.Push(v)
	return nil
}

// Neg toggles the sign of the value being edited (textually) or else
// negates the top of the stack.
func (m *Machine) Neg() error {
	if m.entry != "" {
		switch m.entry[0] {
		case '-':
			m.entry = m.entry[1:]
		case '+':
			m.entry = "-" + m.entry[1:]
		default:
			m.entry = "-" + m.entry
		}
		return nil
	}
	v, err := m.Peek()
	if err != nil {
		return err
	}
	m.values[len(m.values)-1] = number.Neg(v)
	m.log("neg")
	return nil
}

// Clear discards every value.
func (m *Machine) Clear() {
	m.values = m.values[:0]
	m.log("clear")
}

// Apply runs the operation named by its script keyword or operator.
func (m *Machine) Apply(name string) error {
	op, ok := ops[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownOp, name)
	}
	if op.direct {
		// Logs itself.
		return op.fn(m)
	}
	if err := op.fn(m); err != nil {
		return err
	}
	m.log(name)
	return nil
}

// Has tells if name is a stack machine operation.
func Has(name string) bool {
	_, ok := ops[name]
	return ok
}
