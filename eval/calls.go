package eval

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/log"
	"fortio.org/safecast"
	"github.com/cockroachdb/apd/v3"
	"grol.io/rpncalc/lexer"
	"grol.io/rpncalc/number"
	"grol.io/rpncalc/token"
)

func logMessage(msg string) {
	log.Infof("message: %s", msg)
}

// funcall runs a user function as a child of the calling instance: it sees
// (and can update) the caller's variables.
func (in *instance) funcall(name string) error {
	body, ok := in.st.opts.Functions.Lookup(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownFunction, name)
	}
	return in.st.exec(body.Text, body.Line, in.scope)
}

// mathCall pops as many values as the function declares, pushes its result
// if any. The stack is unchanged when the call fails.
func (in *instance) mathCall(name string) error {
	st := in.st
	f, ok := st.opts.Math.Lookup(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownMath, name)
	}
	args, err := st.stack.PeekN(f.Arity())
	if err != nil {
		return err
	}
	res, err := f.Invoke(args)
	if err != nil {
		return fmt.Errorf("math_call %s: %w", name, err)
	}
	_, _ = st.stack.PopN(f.Arity())
	if res != nil {
		st.stack.Push(res)
	}
	return nil
}

// scriptPath normalizes a run_script file name: only alphanumerical and _
// with the .rpn extension (added if missing) inside ScriptDir, unless
// unrestricted.
func (in *instance) scriptPath(file string) (string, error) {
	opts := in.st.opts
	if opts.UnrestrictedIO {
		log.LogVf("Unrestricted IOs, not sanitizing filename: %s", file)
		if filepath.IsAbs(file) {
			return file, nil
		}
		return filepath.Join(opts.ScriptDir, file), nil
	}
	f := strings.TrimSuffix(file, ScriptExtension)
	if f == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, file)
	}
	for _, r := range []byte(f) {
		if !lexer.IsAlphaNum(r) {
			return "", fmt.Errorf("%w %q: invalid character %c", ErrInvalidFileName, file, r)
		}
	}
	return filepath.Join(opts.ScriptDir, f+ScriptExtension), nil
}

// runScript runs a script file as a child instance.
func (in *instance) runScript(file string) error {
	path, err := in.scriptPath(file)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("run_script: %w", err)
	}
	log.LogVf("run_script %s (%d bytes)", path, len(data))
	return in.st.exec(string(data), 1, in.scope)
}

// graphicsArity is the number of operands of each graphics token.
var graphicsArity = map[token.Type]int{
	token.PLOT:    2,
	token.PLOT3D:  3,
	token.LINE:    4,
	token.LINE3D:  6,
	token.ERASE:   3,
	token.RANGE:   4,
	token.POV3D:   3,
	token.COLOR:   3,
	token.DOTSIZE: 1,
}

func rgb(args []float64) (color.RGBA, error) {
	var c [3]uint8
	for i, v := range args {
		var err error
		c[i], err = safecast.Round[uint8](v)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("color component %g: %w", v, err)
		}
	}
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}, nil
}

// graphics pops the operands (in push order) and calls the plotter.
func (in *instance) graphics(t token.Type) error {
	st := in.st
	n := graphicsArity[t]
	values, err := st.stack.PeekN(n)
	if err != nil {
		return err
	}
	if st.opts.Plotter == nil {
		return fmt.Errorf("%w for %s", ErrNoPlotter, t)
	}
	if err := in.draw(t, floats(values)); err != nil {
		return err
	}
	_, _ = st.stack.PopN(n)
	return nil
}

func floats(values []*apd.Decimal) []float64 {
	res := make([]float64, len(values))
	for i, v := range values {
		res[i] = number.Float(v)
	}
	return res
}

func (in *instance) draw(t token.Type, a []float64) error {
	p := in.st.opts.Plotter
	switch t { //nolint:exhaustive // graphics only.
	case token.PLOT:
		p.Plot(a[0], a[1])
	case token.PLOT3D:
		p.Plot3D(a[0], a[1], a[2])
	case token.LINE:
		p.Line(a[0], a[1], a[2], a[3])
	case token.LINE3D:
		p.Line3D(a[0], a[1], a[2], a[3], a[4], a[5])
	case token.ERASE, token.COLOR:
		c, err := rgb(a)
		if err != nil {
			return err
		}
		if t == token.ERASE {
			p.Erase(c)
		} else {
			p.SetColor(c)
		}
	case token.RANGE:
		return p.SetRange(a[0], a[1], a[2], a[3])
	case token.POV3D:
		p.SetViewpoint(a[0], a[1], a[2])
	case token.DOTSIZE:
		return p.SetDotSize(a[0])
	default:
		return fmt.Errorf("unexpected graphics token %s", t)
	}
	return nil
}
