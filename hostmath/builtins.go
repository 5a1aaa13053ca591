package hostmath

import (
	"errors"
	"math"

	"github.com/cockroachdb/apd/v3"
	"grol.io/rpncalc/number"
)

type OneFloatInOutFunc func(float64) float64

// MaxFactorial keeps factorial results printable.
const MaxFactorial = 1000

var ErrDomain = errors.New("argument out of domain")

func registerBuiltins(l *Library) {
	oneFloat := Function{ArgTypes: []ArgType{FLOAT}}
	for _, function := range []struct {
		fn   OneFloatInOutFunc
		name string
	}{
		{math.Sin, "sin"},
		{math.Cos, "cos"},
		{math.Tan, "tan"},
		{math.Asin, "asin"},
		{math.Acos, "acos"},
		{math.Atan, "atan"},
		{math.Sinh, "sinh"},
		{math.Cosh, "cosh"},
		{math.Tanh, "tanh"},
		{math.Exp, "exp"},
		{math.Log, "ln"},
		{math.Log10, "log10"},
		{math.Log2, "log2"},
		{math.Sqrt, "sqrt"},
		{math.Cbrt, "cbrt"},
		{math.Floor, "floor"},
		{math.Ceil, "ceil"},
		{math.Round, "round"},
		{math.Trunc, "trunc"},
	} {
		oneFloat.Callback = func(args []any) (any, error) {
			return function.fn(args[0].(float64)), nil
		}
		oneFloat.Name = function.name
		oneFloat.Help = "float " + function.name + "(x)"
		l.MustCreate(oneFloat)
	}
	twoFloats := Function{ArgTypes: []ArgType{FLOAT, FLOAT}}
	for _, function := range []struct {
		fn   func(float64, float64) float64
		name string
	}{
		{math.Pow, "pow"},
		{math.Atan2, "atan2"},
		{math.Hypot, "hypot"},
	} {
		twoFloats.Callback = func(args []any) (any, error) {
			return function.fn(args[0].(float64), args[1].(float64)), nil
		}
		twoFloats.Name = function.name
		twoFloats.Help = "float " + function.name + "(x, y)"
		l.MustCreate(twoFloats)
	}
	l.MustCreate(Function{
		Name:     "abs",
		ArgTypes: []ArgType{DECIMAL},
		Help:     "exact absolute value",
		Callback: func(args []any) (any, error) {
			return new(apd.Decimal).Abs(args[0].(*apd.Decimal)), nil
		},
	})
	minMax := Function{ArgTypes: []ArgType{DECIMAL, DECIMAL}}
	for _, function := range []struct {
		name string
		keep int // Compare result that selects the first argument.
	}{
		{"min", -1},
		{"max", 1},
	} {
		minMax.Name = function.name
		minMax.Help = "exact " + function.name + "(x, y), NaN if either is NaN"
		minMax.Callback = func(args []any) (any, error) {
			x, y := args[0].(*apd.Decimal), args[1].(*apd.Decimal)
			c, ok := number.Compare(x, y)
			if !ok {
				return number.NaN(), nil
			}
			if c == function.keep {
				return x, nil
			}
			return y, nil
		}
		l.MustCreate(minMax)
	}
	l.MustCreate(Function{
		Name:     "factorial",
		ArgTypes: []ArgType{INTEGER},
		Help:     "exact n! for 0 <= n <= 1000",
		Callback: factorial,
	})
	for name, v := range map[string]float64{"pi": math.Pi, "e": math.E} {
		l.MustCreate(Function{
			Name:     name,
			Help:     "the constant " + name,
			Callback: func([]any) (any, error) { return v, nil },
		})
	}
}

func factorial(args []any) (any, error) {
	n := args[0].(int64)
	if n < 0 || n > MaxFactorial {
		return nil, ErrDomain
	}
	res := number.One
	for i := int64(2); i <= n; i++ {
		res = number.Mul(res, number.FromInt(i))
	}
	return res, nil
}
