package stack

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"grol.io/rpncalc/number"
)

// Replay rebuilds a machine from history lines as returned by History.
// The resulting machine has the same values and the same history.
func Replay(lines []string) (*Machine, error) {
	m := New()
	for i, line := range lines {
		if Has(line) {
			if err := m.Apply(line); err != nil {
				return m, fmt.Errorf("history line %d %q: %w", i+1, line, err)
			}
			continue
		}
		v, err := parseLogged(line)
		if err != nil {
			return m, fmt.Errorf("history line %d: %w", i+1, err)
		}
		m.Push(v)
	}
	return m, nil
}

// parseLogged also accepts the special values as Format writes them.
func parseLogged(s string) (*apd.Decimal, error) {
	switch s {
	case "NaN":
		return number.NaN(), nil
	case "Inf":
		return number.Div(number.One, number.Zero), nil
	case "-Inf":
		return number.Neg(number.Div(number.One, number.Zero)), nil
	}
	return number.Parse(s)
}
