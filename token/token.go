// Package token defines the closed set of tokens of the RPN script language.
package token

import (
	"strconv"

	"fortio.org/log"
)

type Type uint8

// Token is immutable once produced by the lexer.
type Token struct {
	Type    Type
	Literal string // source text of the token itself (without payload).
	Payload string // identifier name, file name or message text when applicable.
	Line    int    // 1 based.
	Column  int    // 1 based, in bytes.
	Pos     int    // byte offset of the token in the lexed text.
	Len     int    // byte length including the payload.
}

const (
	ILLEGAL Type = iota
	EOF

	// Operands.
	NUMBER   // 12, -3.5, .5, 1e-3
	IDENT    // x (variable read)
	ASSIGN   // ->x (variable write)
	ARRAYGET // a[]
	ARRAYSET // ->a[]

	// Operators.
	PLUS
	MINUS
	ASTERISK
	SLASH
	PERCENT
	EQ
	NOTEQ
	LT
	LTEQ
	GT
	GTEQ

	// Stack operations.
	DUP
	DUPN
	DROP
	DROPN
	SWAP
	SWAPN
	ROLLN
	CLEAR
	STACKSIZE
	NEG

	// Blocks.
	IF
	ELSE
	ENDIF
	WHILE
	ENDWHILE
	FUNDEF
	ENDFUNDEF
	FUNDEL
	FUNCALL

	// Host calls.
	MATHCALL
	RUNSCRIPT

	// I/O.
	DISPLAY
	PROMPT

	// Graphics.
	PLOT
	PLOT3D
	LINE
	LINE3D
	ERASE
	RANGE
	POV3D
	COLOR
	DOTSIZE

	DEBUGBREAK
	EXIT

	LAST
)

var names = [...]string{
	ILLEGAL:    "ILLEGAL",
	EOF:        "EOF",
	NUMBER:     "NUMBER",
	IDENT:      "IDENT",
	ASSIGN:     "ASSIGN",
	ARRAYGET:   "ARRAYGET",
	ARRAYSET:   "ARRAYSET",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	ASTERISK:   "ASTERISK",
	SLASH:      "SLASH",
	PERCENT:    "PERCENT",
	EQ:         "EQ",
	NOTEQ:      "NOTEQ",
	LT:         "LT",
	LTEQ:       "LTEQ",
	GT:         "GT",
	GTEQ:       "GTEQ",
	DUP:        "DUP",
	DUPN:       "DUPN",
	DROP:       "DROP",
	DROPN:      "DROPN",
	SWAP:       "SWAP",
	SWAPN:      "SWAPN",
	ROLLN:      "ROLLN",
	CLEAR:      "CLEAR",
	STACKSIZE:  "STACKSIZE",
	NEG:        "NEG",
	IF:         "IF",
	ELSE:       "ELSE",
	ENDIF:      "ENDIF",
	WHILE:      "WHILE",
	ENDWHILE:   "ENDWHILE",
	FUNDEF:     "FUNDEF",
	ENDFUNDEF:  "ENDFUNDEF",
	FUNDEL:     "FUNDEL",
	FUNCALL:    "FUNCALL",
	MATHCALL:   "MATHCALL",
	RUNSCRIPT:  "RUNSCRIPT",
	DISPLAY:    "DISPLAY",
	PROMPT:     "PROMPT",
	PLOT:       "PLOT",
	PLOT3D:     "PLOT3D",
	LINE:       "LINE",
	LINE3D:     "LINE3D",
	ERASE:      "ERASE",
	RANGE:      "RANGE",
	POV3D:      "POV3D",
	COLOR:      "COLOR",
	DOTSIZE:    "DOTSIZE",
	DEBUGBREAK: "DEBUGBREAK",
	EXIT:       "EXIT",
	LAST:       "LAST",
}

func (t Type) String() string {
	if int(t) < len(names) {
		return names[t]
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

var keywords = map[string]Type{
	"dup":             DUP,
	"dupn":            DUPN,
	"drop":            DROP,
	"dropn":           DROPN,
	"swap":            SWAP,
	"swapn":           SWAPN,
	"rolln":           ROLLN,
	"clear":           CLEAR,
	"stack_size":      STACKSIZE,
	"neg":             NEG,
	"if":              IF,
	"else":            ELSE,
	"end_if":          ENDIF,
	"while":           WHILE,
	"end_while":       ENDWHILE,
	"fundef":          FUNDEF,
	"end_fundef":      ENDFUNDEF,
	"fundel":          FUNDEL,
	"funcall":         FUNCALL,
	"math_call":       MATHCALL,
	"run_script":      RUNSCRIPT,
	"display_message": DISPLAY,
	"prompt_message":  PROMPT,
	"plot":            PLOT,
	"plot3d":          PLOT3D,
	"line":            LINE,
	"line3d":          LINE3D,
	"erase":           ERASE,
	"range":           RANGE,
	"pov3d":           POV3D,
	"color":           COLOR,
	"dot_size":        DOTSIZE,
	"debug_break":     DEBUGBREAK,
	"exit":            EXIT,
}

var operators = map[string]Type{
	"+":  PLUS,
	"-":  MINUS,
	"*":  ASTERISK,
	"/":  SLASH,
	"%":  PERCENT,
	"=":  EQ,
	"!=": NOTEQ,
	"<":  LT,
	"<=": LTEQ,
	">":  GT,
	">=": GTEQ,
}

// LookupIdent returns the keyword type for ident or IDENT.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		log.Debugf("LookupIdent(%s) found %s", ident, tok)
		return tok
	}
	return IDENT
}

// LookupOperator returns the operator type for op, ILLEGAL if op isn't one.
func LookupOperator(op string) Type {
	if tok, ok := operators[op]; ok {
		return tok
	}
	return ILLEGAL
}

// NeedsPayload is true for keywords followed by a name, file name or message.
func NeedsPayload(t Type) bool {
	switch t { //nolint:exhaustive // only the payload carrying ones.
	case FUNDEF, FUNDEL, FUNCALL, MATHCALL, RUNSCRIPT, DISPLAY, PROMPT:
		return true
	default:
		return false
	}
}

// IsStackOp is true for the tokens executed directly by the value stack machine
// using their literal as operation name.
func IsStackOp(t Type) bool {
	return t >= PLUS && t <= NEG
}

// IsGraphics is true for the plotting primitives and view configuration calls.
func IsGraphics(t Type) bool {
	return t >= PLOT && t <= DOTSIZE
}

// Closer returns the token closing the block opened by t.
func Closer(t Type) Type {
	switch t { //nolint:exhaustive // only block openers have closers.
	case IF:
		return ENDIF
	case WHILE:
		return ENDWHILE
	case FUNDEF:
		return ENDFUNDEF
	default:
		return ILLEGAL
	}
}

func (t Token) DebugString() string {
	if t.Payload != "" {
		return t.Type.String() + ":" + strconv.Quote(t.Literal) + "(" + strconv.Quote(t.Payload) + ")"
	}
	return t.Type.String() + ":" + strconv.Quote(t.Literal)
}

// String is the source form of the token, payload included.
func (t Token) String() string {
	switch {
	case t.Type == EOF:
		return "end of input"
	case t.Payload == "" || !NeedsPayload(t.Type):
		return t.Literal
	case t.Type == DISPLAY || t.Type == PROMPT:
		return t.Literal + " " + strconv.Quote(t.Payload)
	default:
		return t.Literal + " " + t.Payload
	}
}
