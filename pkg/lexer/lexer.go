package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/xplshn/ucc/pkg/token"
	"github.com/xplshn/ucc/pkg/util"
)

// Lexer splits a syntax-tree document into tokens. Atoms are classified
// into operators, type keywords, literals and plain identifiers
type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	err       error
}

func NewLexer(source []rune, fileIndex int) *Lexer {
	return &Lexer{source: source, fileIndex: fileIndex, line: 1, column: 1}
}

// Err returns the first error met while scanning. Once set, Next only
// returns EOF
func (l *Lexer) Err() error { return l.err }

// Tokenize scans the whole input, the last token is always EOF
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, l.err
		}
	}
}

func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.err != nil || l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine)
	}

	ch := l.peek()
	switch {
	case ch == '(':
		l.advance()
		return l.makeToken(token.LParen, "", startPos, startCol, startLine)
	case ch == ')':
		l.advance()
		return l.makeToken(token.RParen, "", startPos, startCol, startLine)
	case ch == '"':
		l.advance()
		return l.stringLiteral(startPos, startCol, startLine)
	case ch == '\'':
		l.advance()
		return l.charLiteral(startPos, startCol, startLine)
	case ch == '@' && unicode.IsDigit(l.peekNext()):
		l.advance()
		return l.coordinate(startPos, startCol, startLine)
	case unicode.IsDigit(ch) || (ch == '-' && unicode.IsDigit(l.peekNext())) || (ch == '.' && unicode.IsDigit(l.peekNext())):
		return l.numberLiteral(startPos, startCol, startLine)
	}
	return l.atom(startPos, startCol, startLine)
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) fail(tok token.Token, format string, args ...interface{}) token.Token {
	if l.err == nil {
		l.err = util.Errorf(tok, format, args...)
	}
	return l.makeToken(token.EOF, "", l.pos, l.column, l.line)
}

// Comments run from ';' to the end of the line
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		case ';':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func isDelimiter(r rune) bool {
	return r == 0 || r == '(' || r == ')' || r == '"' || r == ';' || unicode.IsSpace(r)
}

func (l *Lexer) atom(startPos, startCol, startLine int) token.Token {
	for !isDelimiter(l.peek()) {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	if value == "_" {
		return l.makeToken(token.Blank, "", startPos, startCol, startLine)
	}
	if tokType, ok := token.OperatorMap[value]; ok {
		return l.makeToken(tokType, "", startPos, startCol, startLine)
	}
	if tokType, ok := token.KeywordMap[value]; ok {
		return l.makeToken(tokType, "", startPos, startCol, startLine)
	}
	if value == "true" || value == "false" {
		return l.makeToken(token.Ident, value, startPos, startCol, startLine)
	}
	for _, r := range value {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.') {
			return l.fail(l.makeToken(token.Ident, value, startPos, startCol, startLine), "Unexpected character '%c' in atom %q", r, value)
		}
	}
	return l.makeToken(token.Ident, value, startPos, startCol, startLine)
}

// coordinate scans "@LINE:COLUMN"
func (l *Lexer) coordinate(startPos, startCol, startLine int) token.Token {
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if !l.match(':') || !unicode.IsDigit(l.peek()) {
		return l.fail(l.makeToken(token.Coord, "", startPos, startCol, startLine), "Malformed coordinate, expected @LINE:COLUMN")
	}
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	return l.makeToken(token.Coord, string(l.source[startPos+1:l.pos]), startPos, startCol, startLine)
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	isFloat := false
	l.match('-')
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' {
		isFloat = true
		l.advance()
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		isFloat = true
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if !unicode.IsDigit(l.peek()) {
			return l.fail(l.makeToken(token.FloatNumber, "", startPos, startCol, startLine), "Malformed floating-point literal: exponent has no digits")
		}
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	if !isDelimiter(l.peek()) {
		return l.fail(l.makeToken(token.Number, "", startPos, startCol, startLine), "Invalid number literal: %s%c", string(l.source[startPos:l.pos]), l.peek())
	}

	valueStr := string(l.source[startPos:l.pos])
	if isFloat {
		if _, err := strconv.ParseFloat(valueStr, 64); err != nil {
			return l.fail(l.makeToken(token.FloatNumber, valueStr, startPos, startCol, startLine), "Invalid float literal: %s", valueStr)
		}
		return l.makeToken(token.FloatNumber, valueStr, startPos, startCol, startLine)
	}
	tok := l.makeToken(token.Number, "", startPos, startCol, startLine)
	val, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return l.fail(tok, "Invalid number literal: %s", valueStr)
	}
	tok.Value = strconv.FormatInt(val, 10)
	return tok
}

func (l *Lexer) stringLiteral(startPos, startCol, startLine int) token.Token {
	var sb strings.Builder
	for !l.isAtEnd() {
		c := l.peek()
		if c == '"' {
			l.advance()
			return l.makeToken(token.String, sb.String(), startPos, startCol, startLine)
		}
		l.advance()
		if c == '\\' {
			val, ok := l.decodeEscape(startPos, startCol, startLine)
			if !ok {
				return l.makeToken(token.EOF, "", l.pos, l.column, l.line)
			}
			sb.WriteRune(val)
			continue
		}
		sb.WriteRune(c)
	}
	return l.fail(l.makeToken(token.String, "", startPos, startCol, startLine), "Unterminated string literal")
}

func (l *Lexer) charLiteral(startPos, startCol, startLine int) token.Token {
	if l.isAtEnd() {
		return l.fail(l.makeToken(token.Char, "", startPos, startCol, startLine), "Unterminated character literal")
	}
	c := l.advance()
	if c == '\\' {
		val, ok := l.decodeEscape(startPos, startCol, startLine)
		if !ok {
			return l.makeToken(token.EOF, "", l.pos, l.column, l.line)
		}
		c = val
	}
	tok := l.makeToken(token.Char, "", startPos, startCol, startLine)
	if !l.match('\'') {
		return l.fail(tok, "Unterminated character literal")
	}
	tok.Value = string(c)
	tok.Len = l.pos - startPos
	return tok
}

var escapes = map[rune]rune{
	'n': '\n', 't': '\t', 'r': '\r', 'b': '\b', 'a': '\a', 'f': '\f', 'v': '\v',
	'0': 0, '\\': '\\', '\'': '\'', '"': '"',
}

func (l *Lexer) decodeEscape(startPos, startCol, startLine int) (rune, bool) {
	if l.isAtEnd() {
		l.fail(l.makeToken(token.String, "", startPos, startCol, startLine), "Unterminated escape sequence")
		return 0, false
	}
	c := l.advance()
	if c == 'x' {
		var val rune
		for i := 0; i < 2; i++ {
			d := l.peek()
			switch {
			case d >= '0' && d <= '9': val = val*16 + d - '0'
			case d >= 'a' && d <= 'f': val = val*16 + d - 'a' + 10
			case d >= 'A' && d <= 'F': val = val*16 + d - 'A' + 10
			default:
				l.fail(l.makeToken(token.String, "", startPos, startCol, startLine), "Invalid hex digit '%c' in escape sequence", d)
				return 0, false
			}
			l.advance()
		}
		return val, true
	}
	if val, ok := escapes[c]; ok {
		return val, true
	}
	l.fail(l.makeToken(token.String, "", startPos, startCol, startLine), "Unrecognized escape sequence '\\%c'", c)
	return 0, false
}
