package stack

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/apd/v3"
	"grol.io/rpncalc/number"
	"grol.io/rpncalc/scope"
)

type op struct {
	fn     func(m *Machine) error
	direct bool // fn does its own history logging.
}

var ops map[string]op

func init() {
	ops = map[string]op{
		"+":  {fn: binary(number.Add)},
		"-":  {fn: binary(number.Sub)},
		"*":  {fn: binary(number.Mul)},
		"/":  {fn: binary(number.Div)},
		"%":  {fn: binary(number.Mod)},
		"=":  {fn: compare(func(c int) bool { return c == 0 })},
		"!=": {fn: notEqual},
		"<":  {fn: compare(func(c int) bool { return c < 0 })},
		"<=": {fn: compare(func(c int) bool { return c <= 0 })},
		">":  {fn: compare(func(c int) bool { return c > 0 })},
		">=": {fn: compare(func(c int) bool { return c >= 0 })},

		"dup":        {fn: dup},
		"dupn":       {fn: dupN},
		"drop":       {fn: drop},
		"dropn":      {fn: dropN},
		"swap":       {fn: swap},
		"swapn":      {fn: swapN},
		"rolln":      {fn: rollN},
		"stack_size": {fn: stackSize},
		"clear":      {fn: func(m *Machine) error { m.Clear(); return nil }, direct: true},
		"neg":        {fn: (*Machine).Neg, direct: true},
	}
}

// Names returns the operation names, sorted.
func Names() []string {
	res := make([]string, 0, len(ops))
	for k := range ops {
		res = append(res, k)
	}
	slices.Sort(res)
	return res
}

func (m *Machine) top2() (v1, v2 *apd.Decimal, err error) {
	n := len(m.values)
	if n < 2 {
		return nil, nil, ErrUnderflow
	}
	return m.values[n-2], m.values[n-1], nil
}

// replace2 replaces the top 2 values by v without logging.
func (m *Machine) replace2(v *apd.Decimal) {
	n := len(m.values)
	m.values[n-2] = v
	m.values = m.values[:n-1]
}

// binary applies v1 <op> v2 where v1 was pushed first.
func binary(f func(x, y *apd.Decimal) *apd.Decimal) func(m *Machine) error {
	return func(m *Machine) error {
		v1, v2, err := m.top2()
		if err != nil {
			return err
		}
		m.replace2(f(v1, v2))
		return nil
	}
}

func compare(holds func(c int) bool) func(m *Machine) error {
	return func(m *Machine) error {
		v1, v2, err := m.top2()
		if err != nil {
			return err
		}
		c, ok := number.Compare(v1, v2)
		m.replace2(number.Bool(ok && holds(c)))
		return nil
	}
}

// notEqual is true when either side is NaN.
func notEqual(m *Machine) error {
	v1, v2, err := m.top2()
	if err != nil {
		return err
	}
	c, ok := number.Compare(v1, v2)
	m.replace2(number.Bool(!ok || c != 0))
	return nil
}

func dup(m *Machine) error {
	v, err := m.Peek()
	if err != nil {
		return err
	}
	m.values = append(m.values, v)
	return nil
}

func drop(m *Machine) error {
	if len(m.values) == 0 {
		return ErrUnderflow
	}
	m.values = m.values[:len(m.values)-1]
	return nil
}

func swap(m *Machine) error {
	v1, v2, err := m.top2()
	if err != nil {
		return err
	}
	n := len(m.values)
	m.values[n-2], m.values[n-1] = v2, v1
	return nil
}

func stackSize(m *Machine) error {
	m.values = append(m.values, number.FromInt(int64(len(m.values))))
	return nil
}

// count peeks at the count on top and returns it with the number of values
// below it. Nothing is removed.
func (m *Machine) count() (n, remaining int, err error) {
	top, err := m.Peek()
	if err != nil {
		return 0, 0, err
	}
	n, err = number.Count(top)
	if err != nil {
		return 0, 0, ErrBadCount
	}
	return n, len(m.values) - 1, nil
}

// dupN pops N then pushes N copies of the new top.
func dupN(m *Machine) error {
	n, remaining, err := m.count()
	if err != nil {
		return err
	}
	if remaining < 1 {
		return ErrUnderflow
	}
	if err = scope.CheckSlots(remaining + min(n, scope.MaxSlots)); err != nil {
		return fmt.Errorf("%w: %w", ErrTooLarge, err)
	}
	m.values = m.values[:remaining]
	v := m.values[remaining-1]
	for range n {
		m.values = append(m.values, v)
	}
	return nil
}

// dropN pops N then removes N more.
func dropN(m *Machine) error {
	n, remaining, err := m.count()
	if err != nil {
		return err
	}
	if remaining < n {
		return ErrUnderflow
	}
	m.values = m.values[:remaining-n]
	return nil
}

// swapN pops N then exchanges the bottom value with the one N positions
// from the bottom.
func swapN(m *Machine) error {
	n, remaining, err := m.count()
	if err != nil {
		return err
	}
	if n >= remaining {
		return ErrUnderflow
	}
	m.values = m.values[:remaining]
	m.values[0], m.values[n] = m.values[n], m.values[0]
	return nil
}

// rollN pops N then moves the value N positions below the new top to the
// top, keeping the order of the values that were above it.
func rollN(m *Machine) error {
	n, remaining, err := m.count()
	if err != nil {
		return err
	}
	if n >= remaining {
		return ErrUnderflow
	}
	m.values = m.values[:remaining]
	idx := remaining - 1 - n
	v := m.values[idx]
	m.values = append(slices.Delete(m.values, idx, idx+1), v)
	return nil
}
