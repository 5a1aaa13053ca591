// Package hostmath is the library of named math functions scripts reach
// through math_call. Each function declares its argument types; the
// caller pops that many values and Invoke converts them.
package hostmath

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"fortio.org/log"
	"fortio.org/safecast"
	"github.com/cockroachdb/apd/v3"
	"grol.io/rpncalc/number"
)

type ArgType uint8

const (
	FLOAT   ArgType = iota // float64
	INTEGER                // int64, the decimal must be integral.
	DECIMAL                // *apd.Decimal as is.
)

func (t ArgType) String() string {
	switch t {
	case FLOAT:
		return "float"
	case INTEGER:
		return "integer"
	case DECIMAL:
		return "decimal"
	default:
		return fmt.Sprintf("ArgType(%d)", t)
	}
}

// Callback receives one converted argument per ArgTypes entry and returns
// float64, int64, int, *apd.Decimal or nil (nothing to push).
type Callback func(args []any) (any, error)

type Function struct {
	Name     string
	ArgTypes []ArgType
	Help     string
	Callback Callback
}

// Arity is the number of values popped from the stack.
func (f Function) Arity() int {
	return len(f.ArgTypes)
}

var (
	ErrUnknown  = errors.New("unknown math function")
	ErrArgument = errors.New("bad math function argument")
	ErrResult   = errors.New("bad math function result")
	ErrPanic    = errors.New("math function failed")
)

// Library is safe for concurrent use.
type Library struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

func NewLibrary() *Library {
	return &Library{funcs: make(map[string]Function)}
}

// Create adds a function; names must be unique.
func (l *Library) Create(f Function) error {
	if f.Name == "" {
		return errors.New("empty function name")
	}
	if f.Callback == nil {
		return fmt.Errorf("function %q has no callback", f.Name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.funcs[f.Name]; dup {
		return fmt.Errorf("function %q already defined", f.Name)
	}
	l.funcs[f.Name] = f
	return nil
}

// MustCreate is Create for init time, panics on error.
func (l *Library) MustCreate(f Function) {
	if err := l.Create(f); err != nil {
		panic(err)
	}
}

func (l *Library) Lookup(name string) (Function, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.funcs[name]
	return f, ok
}

// Names is sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res := make([]string, 0, len(l.funcs))
	for k := range l.funcs {
		res = append(res, k)
	}
	slices.Sort(res)
	return res
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
)

// Default returns the library with the builtin functions.
func Default() *Library {
	defaultOnce.Do(func() {
		defaultLib = NewLibrary()
		registerBuiltins(defaultLib)
	})
	return defaultLib
}

func convertArg(t ArgType, d *apd.Decimal) (any, error) {
	switch t {
	case FLOAT:
		return number.Float(d), nil
	case INTEGER:
		i, err := number.Int(d)
		if err != nil {
			return nil, err
		}
		return safecast.Convert[int64](i)
	case DECIMAL:
		return d, nil
	default:
		return nil, fmt.Errorf("unexpected %v", t)
	}
}

func convertResult(r any) (*apd.Decimal, error) {
	switch v := r.(type) {
	case nil:
		return nil, nil
	case float64:
		return number.FromFloat(v), nil
	case int64:
		return number.FromInt(v), nil
	case int:
		return number.FromInt(int64(v)), nil
	case *apd.Decimal:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrResult, r)
	}
}

// Invoke converts args (deepest stack value first) to the declared types,
// calls the function and converts back. A nil result means nothing to push.
// Panics inside callbacks are returned as errors.
func (f Function) Invoke(args []*apd.Decimal) (res *apd.Decimal, err error) {
	if len(args) != f.Arity() {
		return nil, fmt.Errorf("%w: %s wants %d arguments, got %d", ErrArgument, f.Name, f.Arity(), len(args))
	}
	in := make([]any, len(args))
	for i, a := range args {
		in[i], err = convertArg(f.ArgTypes[i], a)
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %d: %w", ErrArgument, f.Name, i+1, err)
		}
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errf("panic in math function %s: %v", f.Name, r)
			res, err = nil, fmt.Errorf("%w: %s: %v", ErrPanic, f.Name, r)
		}
	}()
	out, err := f.Callback(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return convertResult(out)
}
