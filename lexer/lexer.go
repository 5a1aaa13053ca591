// Package lexer turns script text into a pull based stream of tokens.
package lexer

import (
	"strings"

	"grol.io/rpncalc/token"
)

// TokenSource is what the interpreter consumes, one token per call.
// After the end of input, EOF is returned forever.
type TokenSource interface {
	NextToken() token.Token
}

type Lexer struct {
	input       string
	pos         int
	lastNewLine int // position just after most recent newline
	lineNumber  int
}

// New lexes input starting at line 1.
func New(input string) *Lexer {
	return NewAt(input, 1)
}

// NewAt lexes input whose first line is line number `line` of an enclosing
// script (used when re-lexing a block body).
func NewAt(input string, line int) *Lexer {
	if line < 1 {
		line = 1
	}
	return &Lexer{input: input, lineNumber: line}
}

// LineAt returns the line of input containing byte offset pos, for error
// and debugger displays.
func LineAt(input string, pos int) string {
	pos = max(0, min(pos, len(input)))
	start := strings.LastIndexByte(input[:pos], '\n') + 1
	end := strings.IndexByte(input[pos:], '\n')
	if end < 0 {
		return input[start:]
	}
	return input[start : pos+end]
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()
	start := l.pos
	tok := token.Token{Pos: start, Line: l.lineNumber, Column: start - l.lastNewLine + 1}
	if l.pos >= len(l.input) {
		tok.Type = token.EOF
		return tok
	}
	word := l.readWord()
	tok.Literal = word
	tok.Type = classify(word)
	if token.NeedsPayload(tok.Type) {
		payload, ok := l.readPayload()
		if namedPayload(tok.Type) && !isIdentifier(payload) {
			ok = false
		}
		if !ok {
			tok.Type = token.ILLEGAL
		}
		tok.Payload = payload
	} else {
		tok.Payload = payloadOf(tok.Type, word)
	}
	tok.Len = l.pos - start
	return tok
}

func classify(word string) token.Type {
	if t := token.LookupOperator(word); t != token.ILLEGAL {
		return t
	}
	if isNumber(word) {
		return token.NUMBER
	}
	name, isArray := strings.CutSuffix(word, "[]")
	name, isWrite := strings.CutPrefix(name, "->")
	if !isIdentifier(name) {
		return token.ILLEGAL
	}
	switch {
	case isWrite && isArray:
		return token.ARRAYSET
	case isWrite:
		return token.ASSIGN
	case isArray:
		return token.ARRAYGET
	}
	return token.LookupIdent(name)
}

// payloadOf extracts the variable or array name from the word.
func payloadOf(t token.Type, word string) string {
	switch t { //nolint:exhaustive // only the named operands.
	case token.IDENT:
		return word
	case token.ASSIGN:
		return word[2:]
	case token.ARRAYGET:
		return word[:len(word)-2]
	case token.ARRAYSET:
		return word[2 : len(word)-2]
	default:
		return ""
	}
}

// namedPayload is true when the payload must be a function name.
func namedPayload(t token.Type) bool {
	switch t { //nolint:exhaustive // function naming keywords only.
	case token.FUNDEF, token.FUNDEL, token.FUNCALL, token.MATHCALL:
		return true
	default:
		return false
	}
}

func isWhiteSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func (l *Lexer) newLine() {
	l.lastNewLine = l.pos + 1
	l.lineNumber++
}

// skipWhitespace also skips # comments to the end of the line.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
			continue
		case !isWhiteSpace(ch):
			return
		case ch == '\n':
			l.newLine()
		}
		l.pos++
	}
}

// skipBlanks skips whitespace but not comments (between a keyword and its payload).
func (l *Lexer) skipBlanks() {
	for l.pos < len(l.input) && isWhiteSpace(l.input[l.pos]) {
		if l.input[l.pos] == '\n' {
			l.newLine()
		}
		l.pos++
	}
}

func (l *Lexer) readWord() string {
	pos := l.pos
	for l.pos < len(l.input) && !isWhiteSpace(l.input[l.pos]) {
		l.pos++
	}
	return l.input[pos:l.pos]
}

func (l *Lexer) readPayload() (string, bool) {
	l.skipBlanks()
	if l.pos >= len(l.input) {
		return "", false
	}
	if l.input[l.pos] == '"' {
		l.pos++
		return l.readString()
	}
	return l.readWord(), true
}

func (l *Lexer) readChar() byte {
	if l.pos >= len(l.input) {
		l.pos++
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	return ch
}

func (l *Lexer) readString() (string, bool) {
	buf := strings.Builder{}
	for {
		ch := l.readChar()
		switch {
		case ch == '\\':
			ch = l.readChar()
			switch ch {
			case 'n':
				ch = '\n'
			case 't':
				ch = '\t'
			case 0:
				l.pos--
				return buf.String(), false
			}
		case ch == '"':
			return buf.String(), true
		case ch == 0:
			l.pos--
			return buf.String(), false
		case ch == '\n':
			l.lastNewLine = l.pos
			l.lineNumber++
		}
		buf.WriteByte(ch)
	}
}

// isNumber accepts an optional sign, digits with at most one dot and an
// optional exponent. At least one mantissa digit is required.
func isNumber(word string) bool {
	i := 0
	if i < len(word) && (word[i] == '+' || word[i] == '-') {
		i++
	}
	digits := 0
	dotSeen := false
	for ; i < len(word); i++ {
		ch := word[i]
		if isDigit(ch) {
			digits++
			continue
		}
		if ch == '.' && !dotSeen {
			dotSeen = true
			continue
		}
		break
	}
	if digits == 0 {
		return false
	}
	if i == len(word) {
		return true
	}
	if word[i] != 'e' && word[i] != 'E' {
		return false
	}
	i++
	if i < len(word) && (word[i] == '+' || word[i] == '-') {
		i++
	}
	if i == len(word) {
		return false
	}
	for ; i < len(word); i++ {
		if !isDigit(word[i]) {
			return false
		}
	}
	return true
}

func isIdentifier(name string) bool {
	if name == "" || !isLetter(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !IsAlphaNum(name[i]) {
			return false
		}
	}
	return true
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func IsAlphaNum(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
