package lexer

import (
	"testing"

	"grol.io/rpncalc/token"
)

func TestNextToken(t *testing.T) { //nolint:funlen // this is a test function with many cases back to back.
	input := `5 -3.5 .5 1e-3 +2
x ->x a[] ->a[] # comment until end of line
+ - * / % = != < <= > >=
dup dupn drop dropn swap swapn rolln clear stack_size neg
if else end_if while end_while
fundef sq dup * end_fundef fundel sq funcall avg
math_call sin run_script lib.rpn
display_message "hello \"you\"" prompt_message "x?"
plot plot3d line line3d erase range pov3d color dot_size
debug_break exit
1.2.3 a-b ->3 funcall 3x
`
	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
		expectedPayload string
	}{
		{token.NUMBER, "5", ""},
		{token.NUMBER, "-3.5", ""},
		{token.NUMBER, ".5", ""},
		{token.NUMBER, "1e-3", ""},
		{token.NUMBER, "+2", ""},
		{token.IDENT, "x", "x"},
		{token.ASSIGN, "->x", "x"},
		{token.ARRAYGET, "a[]", "a"},
		{token.ARRAYSET, "->a[]", "a"},
		{token.PLUS, "+", ""},
		{token.MINUS, "-", ""},
		{token.ASTERISK, "*", ""},
		{token.SLASH, "/", ""},
		{token.PERCENT, "%", ""},
		{token.EQ, "=", ""},
		{token.NOTEQ, "!=", ""},
		{token.LT, "<", ""},
		{token.LTEQ, "<=", ""},
		{token.GT, ">", ""},
		{token.GTEQ, ">=", ""},
		{token.DUP, "dup", ""},
		{token.DUPN, "dupn", ""},
		{token.DROP, "drop", ""},
		{token.DROPN, "dropn", ""},
		{token.SWAP, "swap", ""},
		{token.SWAPN, "swapn", ""},
		{token.ROLLN, "rolln", ""},
		{token.CLEAR, "clear", ""},
		{token.STACKSIZE, "stack_size", ""},
		{token.NEG, "neg", ""},
		{token.IF, "if", ""},
		{token.ELSE, "else", ""},
		{token.ENDIF, "end_if", ""},
		{token.WHILE, "while", ""},
		{token.ENDWHILE, "end_while", ""},
		{token.FUNDEF, "fundef", "sq"},
		{token.DUP, "dup", ""},
		{token.ASTERISK, "*", ""},
		{token.ENDFUNDEF, "end_fundef", ""},
		{token.FUNDEL, "fundel", "sq"},
		{token.FUNCALL, "funcall", "avg"},
		{token.MATHCALL, "math_call", "sin"},
		{token.RUNSCRIPT, "run_script", "lib.rpn"},
		{token.DISPLAY, "display_message", `hello "you"`},
		{token.PROMPT, "prompt_message", "x?"},
		{token.PLOT, "plot", ""},
		{token.PLOT3D, "plot3d", ""},
		{token.LINE, "line", ""},
		{token.LINE3D, "line3d", ""},
		{token.ERASE, "erase", ""},
		{token.RANGE, "range", ""},
		{token.POV3D, "pov3d", ""},
		{token.COLOR, "color", ""},
		{token.DOTSIZE, "dot_size", ""},
		{token.DEBUGBREAK, "debug_break", ""},
		{token.EXIT, "exit", ""},
		{token.ILLEGAL, "1.2.3", ""},
		{token.ILLEGAL, "a-b", ""},
		{token.ILLEGAL, "->3", ""},
		{token.ILLEGAL, "funcall", "3x"},
		{token.EOF, "", ""},
		{token.EOF, "", ""},
	}
	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%s)", i, tt.expectedType, tok.Type, tok.DebugString())
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
		if tok.Payload != tt.expectedPayload {
			t.Fatalf("tests[%d] - payload wrong. expected=%q, got=%q", i, tt.expectedPayload, tok.Payload)
		}
	}
}

func TestPositions(t *testing.T) {
	input := "1 2\n  funcall   avg\n# just a comment\n  +"
	l := New(input)
	expected := []struct {
		line, column, pos, length int
	}{
		{1, 1, 0, 1},
		{1, 3, 2, 1},
		{2, 3, 6, 13},
		{4, 3, 39, 1},
	}
	for i, e := range expected {
		tok := l.NextToken()
		if tok.Line != e.line || tok.Column != e.column || tok.Pos != e.pos || tok.Len != e.length {
			t.Errorf("token %d %s: got line %d col %d pos %d len %d, expected %+v",
				i, tok.DebugString(), tok.Line, tok.Column, tok.Pos, tok.Len, e)
		}
		if input[tok.Pos:tok.Pos+tok.Len] != tok.String() && tok.Type != token.FUNCALL {
			t.Errorf("token %d source slice %q doesn't match %q", i, input[tok.Pos:tok.Pos+tok.Len], tok.String())
		}
	}
	if tok := l.NextToken(); tok.Type != token.EOF || tok.Line != 4 {
		t.Errorf("expected EOF on line 4, got %s line %d", tok.DebugString(), tok.Line)
	}
}

func TestNewAtLine(t *testing.T) {
	l := NewAt("\n\n dup", 10)
	tok := l.NextToken()
	if tok.Line != 12 || tok.Column != 2 {
		t.Errorf("expected line 12 col 2, got %d %d", tok.Line, tok.Column)
	}
	if line := LineAt("\n\n dup", tok.Pos); line != " dup" {
		t.Errorf("LineAt(%d) = %q", tok.Pos, line)
	}
}

func TestLineAt(t *testing.T) {
	input := "1 2\n  dup +\n\nswap"
	tests := []struct {
		pos      int
		expected string
	}{
		{0, "1 2"},
		{3, "1 2"},
		{4, "  dup +"},
		{8, "  dup +"},
		{12, ""},
		{13, "swap"},
		{100, "swap"},
		{-1, "1 2"},
	}
	for _, tt := range tests {
		if got := LineAt(input, tt.pos); got != tt.expected {
			t.Errorf("LineAt(%d) = %q, want %q", tt.pos, got, tt.expected)
		}
	}
}

func TestMissingPayload(t *testing.T) {
	for _, input := range []string{"fundef", "display_message \"unterminated", "run_script   "} {
		l := New(input)
		tok := l.NextToken()
		if tok.Type != token.ILLEGAL {
			t.Errorf("%q: expected ILLEGAL, got %s", input, tok.DebugString())
		}
		if next := l.NextToken(); next.Type != token.EOF {
			t.Errorf("%q: expected EOF after illegal, got %s", input, next.DebugString())
		}
	}
}

func TestMultilineMessage(t *testing.T) {
	l := New("display_message \"a\nb\" dup")
	tok := l.NextToken()
	if tok.Payload != "a\nb" {
		t.Errorf("unexpected payload %q", tok.Payload)
	}
	tok = l.NextToken()
	if tok.Type != token.DUP || tok.Line != 2 || tok.Column != 4 {
		t.Errorf("unexpected %s at %d:%d", tok.DebugString(), tok.Line, tok.Column)
	}
}
