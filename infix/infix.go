// Package infix converts a conventional math expression into RPN script text.
//
// User function calls are written fc@name(args...) and host math calls
// mc@name(args...), arguments separated by commas.
package infix

import (
	"errors"
	"strings"

	"fortio.org/log"
)

const (
	CallMarker = "fc@"
	MathMarker = "mc@"
)

var ErrMismatchedParens = errors.New("mismatched parentheses")

// Result has the postfix form for display and the executable script.
type Result struct {
	Postfix string // space separated.
	Script  string // one instruction per line.
}

// Convert runs the whole conversion.
func Convert(expr string) (Result, error) {
	tokens := Tokenize(expr)
	hoisted, err := Hoist(tokens)
	if err != nil {
		return Result{}, err
	}
	postfix, err := Postfix(hoisted)
	if err != nil {
		return Result{}, err
	}
	res := Result{Postfix: strings.Join(postfix, " "), Script: Linearize(postfix)}
	log.LogVf("infix %q -> postfix %q", expr, res.Postfix)
	return res, nil
}

const separators = "()+-/%*^,"

// Tokenize splits on whitespace after isolating the separator characters.
func Tokenize(expr string) []string {
	var b strings.Builder
	for _, r := range expr {
		if strings.ContainsRune(separators, r) {
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Fields(b.String())
}

func isCall(tok string) bool {
	return len(tok) > len(CallMarker) && (strings.HasPrefix(tok, CallMarker) || strings.HasPrefix(tok, MathMarker))
}

// matching returns the index of the ")" closing the "(" at open.
func matching(tokens []string, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i] {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Hoist moves every marked call after its parenthesized argument list:
// fc@f ( a , b ) becomes ( a , b ) fc@f, arguments hoisted first.
func Hoist(tokens []string) ([]string, error) {
	res := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !isCall(tok) || i+1 >= len(tokens) || tokens[i+1] != "(" {
			res = append(res, tok)
			continue
		}
		end := matching(tokens, i+1)
		if end < 0 {
			return nil, ErrMismatchedParens
		}
		args, err := Hoist(tokens[i+2 : end])
		if err != nil {
			return nil, err
		}
		res = append(res, "(")
		res = append(res, args...)
		res = append(res, ")", tok)
		i = end
	}
	return res, nil
}

var precedence = map[string]int{
	"(": 1, ")": 1, ",": 1,
	"*": 2, "/": 2, "%": 2,
	"+": 3, "-": 3,
}

// Postfix is the shunting-yard pass. An operator on the stack is output
// while its precedence value is >= the incoming one, so + and - (3) are
// flushed by an incoming * / % (2): "1 + 2 * 3" is "1 2 + 3 *".
// Anything not in the precedence table is an operand.
func Postfix(tokens []string) ([]string, error) {
	var out, ops []string
	for _, tok := range tokens {
		p, isOp := precedence[tok]
		switch {
		case !isOp:
			out = append(out, tok)
		case tok == "(":
			ops = append(ops, tok)
		case tok == ")" || tok == ",":
			for len(ops) > 0 && ops[len(ops)-1] != "(" {
				out = append(out, ops[len(ops)-1])
				ops = ops[:len(ops)-1]
			}
			if len(ops) == 0 {
				return nil, ErrMismatchedParens
			}
			if tok == ")" {
				ops = ops[:len(ops)-1]
			}
		default:
			for len(ops) > 0 && ops[len(ops)-1] != "(" && precedence[ops[len(ops)-1]] >= p {
				out = append(out, ops[len(ops)-1])
				ops = ops[:len(ops)-1]
			}
			ops = append(ops, tok)
		}
	}
	for len(ops) > 0 {
		top := ops[len(ops)-1]
		if top == "(" {
			return nil, ErrMismatchedParens
		}
		out = append(out, top)
		ops = ops[:len(ops)-1]
	}
	return out, nil
}

// Linearize writes one instruction per line, call markers becoming the
// funcall and math_call keywords followed by the name.
func Linearize(postfix []string) string {
	var b strings.Builder
	for i, tok := range postfix {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch {
		case strings.HasPrefix(tok, CallMarker):
			b.WriteString("funcall\n")
			b.WriteString(tok[len(CallMarker):])
		case strings.HasPrefix(tok, MathMarker):
			b.WriteString("math_call\n")
			b.WriteString(tok[len(MathMarker):])
		default:
			b.WriteString(tok)
		}
	}
	return b.String()
}
