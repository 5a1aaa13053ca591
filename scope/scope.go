// Package scope is the chain of variable and array frames, one per running
// interpreter instance, searched from the innermost frame outward.
package scope

import (
	"errors"
	"maps"
	"slices"
	"strconv"

	"fortio.org/log"
	"github.com/cockroachdb/apd/v3"
	"grol.io/rpncalc/number"
)

var (
	ErrTooLarge     = errors.New("over the memory limit")
	ErrNegativeSlot = errors.New("negative array index")
)

// Array is a sparse sequence: nil slots are unset and read as NaN.
type Array []*apd.Decimal

// Scope only holds the bindings created while its own instance ran.
// Not safe for concurrent use.
type Scope struct {
	vars   map[string]*apd.Decimal
	arrays map[string]Array
	parent *Scope
}

// New creates a frame. parent is nil for the top level run.
func New(parent *Scope) *Scope {
	return &Scope{
		vars:   make(map[string]*apd.Decimal),
		arrays: make(map[string]Array),
		parent: parent,
	}
}

// Depth is 0 for the root frame.
func (s *Scope) Depth() int {
	d := 0
	for p := s.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// lookup finds the frame binding the variable.
func (s *Scope) lookup(name string) *Scope {
	for f := s; f != nil; f = f.parent {
		if _, ok := f.vars[name]; ok {
			return f
		}
	}
	return nil
}

func (s *Scope) lookupArray(name string) *Scope {
	for f := s; f != nil; f = f.parent {
		if _, ok := f.arrays[name]; ok {
			return f
		}
	}
	return nil
}

// Lookup returns the value bound anywhere on the chain.
func (s *Scope) Lookup(name string) (*apd.Decimal, bool) {
	f := s.lookup(name)
	if f == nil {
		return nil, false
	}
	return f.vars[name], true
}

// Get returns the variable value or NaN when unbound.
func (s *Scope) Get(name string) *apd.Decimal {
	if v, ok := s.Lookup(name); ok {
		return v
	}
	log.Debugf("undefined variable %q", name)
	return number.NaN()
}

// Set updates the innermost frame that already binds name (this one first,
// then ancestors) or creates the binding here.
func (s *Scope) Set(name string, v *apd.Decimal) {
	if _, ok := s.vars[name]; ok {
		s.vars[name] = v
		return
	}
	if s.parent != nil {
		if f := s.parent.lookup(name); f != nil {
			f.vars[name] = v
			return
		}
	}
	s.vars[name] = v
}

func grow(a Array, idx int) (Array, error) {
	if idx < 0 {
		return a, ErrNegativeSlot
	}
	if idx < len(a) {
		return a, nil
	}
	if err := CheckSlots(idx + 1); err != nil {
		return a, err
	}
	return append(a, make(Array, idx+1-len(a))...), nil
}

// GetArray returns name[idx]. Reading past the end grows the array with
// unset slots. Unknown arrays and unset slots read as NaN.
func (s *Scope) GetArray(name string, idx int) (*apd.Decimal, error) {
	f := s.lookupArray(name)
	if f == nil {
		return number.NaN(), nil
	}
	a, err := grow(f.arrays[name], idx)
	if err != nil {
		return nil, err
	}
	f.arrays[name] = a
	if a[idx] == nil {
		return number.NaN(), nil
	}
	return a[idx], nil
}

// SetArray assigns name[idx] in the frame holding the array, or creates the
// array in this frame when no frame has it.
func (s *Scope) SetArray(name string, idx int, v *apd.Decimal) error {
	f := s.lookupArray(name)
	if f == nil {
		f = s
	}
	a, err := grow(f.arrays[name], idx)
	if err != nil {
		return err
	}
	a[idx] = v
	f.arrays[name] = a
	return nil
}

// Entry is one binding as shown by the debugger. Arrays have Index >= 0.
type Entry struct {
	Depth int
	Name  string
	Index int
	Value *apd.Decimal
}

func (e Entry) Label() string {
	if e.Index < 0 {
		return e.Name
	}
	return e.Name + "[" + strconv.Itoa(e.Index) + "]"
}

// Dump lists every binding visible from this frame, innermost frame first,
// names sorted, shadowed names included. Unset array slots are skipped.
func (s *Scope) Dump() []Entry {
	var res []Entry
	depth := s.Depth()
	for f := s; f != nil; f = f.parent {
		for _, name := range slices.Sorted(maps.Keys(f.vars)) {
			res = append(res, Entry{Depth: depth, Name: name, Index: -1, Value: f.vars[name]})
		}
		for _, name := range slices.Sorted(maps.Keys(f.arrays)) {
			for i, v := range f.arrays[name] {
				if v != nil {
					res = append(res, Entry{Depth: depth, Name: name, Index: i, Value: v})
				}
			}
		}
		depth--
	}
	return res
}
