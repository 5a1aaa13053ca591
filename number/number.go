// Package number has the decimal value helpers shared by the stack machine,
// the scope chain and the host math bridge. Values are *apd.Decimal and are
// treated as immutable: every function returns a new value.
package number

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"fortio.org/log"
	"fortio.org/safecast"
	"github.com/cockroachdb/apd/v3"
)

var (
	ErrMalformed  = errors.New("malformed number")
	ErrNotInteger = errors.New("not an integer")
)

// exact is used for add, sub and mul: precision 0 means no rounding.
var exact = func() apd.Context {
	c := apd.BaseContext
	c.Traps = 0
	return c
}()

// Zero and One are shared read only values (comparison results).
var (
	Zero = apd.New(0, 0)
	One  = apd.New(1, 0)
)

// NaN returns a fresh NaN value (undefined variables and array slots).
func NaN() *apd.Decimal {
	return &apd.Decimal{Form: apd.NaN}
}

func IsNaN(d *apd.Decimal) bool {
	return d.Form == apd.NaN || d.Form == apd.NaNSignaling
}

// Parse parses a decimal literal. Special values (nan, inf) are not literals.
func Parse(s string) (*apd.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "nNiI") {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return d, nil
}

// MustParse is Parse for constants, panics on error.
func MustParse(s string) *apd.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func FromInt(i int64) *apd.Decimal {
	return apd.New(i, 0)
}

// FromFloat converts a float64, keeping NaN and infinities.
func FromFloat(f float64) *apd.Decimal {
	switch {
	case math.IsNaN(f):
		return NaN()
	case math.IsInf(f, 0):
		return &apd.Decimal{Form: apd.Infinite, Negative: f < 0}
	}
	d := new(apd.Decimal)
	if _, err := d.SetFloat64(f); err != nil {
		log.Errf("unexpected error converting %g: %v", f, err)
		return NaN()
	}
	return d
}

// Float converts to float64; out of range values become +/-Inf.
func Float(d *apd.Decimal) float64 {
	f, err := d.Float64()
	if err != nil {
		log.LogVf("float conversion of %s: %v", d.String(), err)
	}
	return f
}

// Int converts an integral value to an int.
func Int(d *apd.Decimal) (int, error) {
	if d.Form != apd.Finite {
		return 0, fmt.Errorf("%w: %s", ErrNotInteger, d.String())
	}
	i64, err := d.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotInteger, d.String())
	}
	return safecast.Convert[int](i64)
}

// Count is Int restricted to non negative values (stack counts, indices).
func Count(d *apd.Decimal) (int, error) {
	n, err := Int(d)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative %d", ErrNotInteger, n)
	}
	return n, nil
}

// Truthy is false only for zero. NaN is true.
func Truthy(d *apd.Decimal) bool {
	return d.Form != apd.Finite || !d.IsZero()
}

// Format is the canonical text of a value, used for display and history.
func Format(d *apd.Decimal) string {
	switch d.Form {
	case apd.NaN, apd.NaNSignaling:
		return "NaN"
	case apd.Infinite:
		if d.Negative {
			return "-Inf"
		}
		return "Inf"
	case apd.Finite:
	}
	if d.Exponent > 20 || d.Exponent < -20 {
		return d.String()
	}
	return d.Text('f')
}

type binop func(c *apd.Context, d, x, y *apd.Decimal) (apd.Condition, error)

func exactOp(op binop, x, y *apd.Decimal) *apd.Decimal {
	c := exact
	d := new(apd.Decimal)
	if _, err := op(&c, d, x, y); err != nil {
		log.Errf("decimal operation on %s and %s: %v", x.String(), y.String(), err)
		return NaN()
	}
	return d
}

func Add(x, y *apd.Decimal) *apd.Decimal { return exactOp((*apd.Context).Add, x, y) }
func Sub(x, y *apd.Decimal) *apd.Decimal { return exactOp((*apd.Context).Sub, x, y) }
func Mul(x, y *apd.Decimal) *apd.Decimal { return exactOp((*apd.Context).Mul, x, y) }

// Neg returns -x.
func Neg(x *apd.Decimal) *apd.Decimal {
	d := new(apd.Decimal).Neg(x)
	if d.IsZero() {
		d.Negative = false
	}
	return d
}

// MaxModDigits bounds the working precision of Mod. Operands whose magnitudes
// are further apart than that give NaN.
const MaxModDigits = 10_000

// Mod is the exact remainder of x / y with the sign of x. Modulo by zero is NaN.
func Mod(x, y *apd.Decimal) *apd.Decimal {
	if IsNaN(x) || IsNaN(y) || x.Form == apd.Infinite || (y.Form == apd.Finite && y.IsZero()) {
		return NaN()
	}
	if y.Form == apd.Infinite {
		return new(apd.Decimal).Set(x)
	}
	// Enough digits for the integer quotient and the remainder.
	expDiff := int64(x.Exponent) - int64(y.Exponent)
	if expDiff < 0 {
		expDiff = -expDiff
	}
	prec := x.NumDigits() + y.NumDigits() + expDiff + 1
	if prec > MaxModDigits {
		log.LogVf("modulo of %s by %s needs %d digits, over %d", x.String(), y.String(), prec, MaxModDigits)
		return NaN()
	}
	p, err := safecast.Convert[uint32](prec)
	if err != nil {
		return NaN()
	}
	c := exact.WithPrecision(p)
	c.Traps = 0
	d := new(apd.Decimal)
	if _, err := c.Rem(d, x, y); err != nil {
		log.Errf("modulo of %s by %s: %v", x.String(), y.String(), err)
		return NaN()
	}
	return d
}

// Div goes through float64: x/0 is +/-Inf (or NaN for 0/0) and never fails.
func Div(x, y *apd.Decimal) *apd.Decimal {
	return FromFloat(Float(x) / Float(y))
}

// Compare returns -1, 0 or 1 and false when either side is NaN.
func Compare(x, y *apd.Decimal) (int, bool) {
	if IsNaN(x) || IsNaN(y) {
		return 0, false
	}
	return x.Cmp(y), true
}

// Bool is 1 or 0.
func Bool(b bool) *apd.Decimal {
	if b {
		return One
	}
	return Zero
}
