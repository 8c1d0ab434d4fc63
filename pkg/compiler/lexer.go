package compiler

import "unicode"

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"program": PROGRAM,
	"var":     VAR,
	"begin":   BEGIN,
	"end":     END,
	"and":     AND,
	"or":      OR,
	"not":     NOT,
	"true":    BOOL,
	"false":   BOOL,
	"dim":     DIM,
	"ass":     ASS,
	"if":      IF,
	"then":    THEN,
	"else":    ELSE,
	"endif":   ENDIF,
	"for":     FOR,
	"until":   UNTIL,
	"repeat":  REPEAT,
	"read":    READ,
	"output":  OUTPUT,
}

// singles maps one-character terminals to their TokenType.
var singles = map[rune]TokenType{
	'+': PLUS,
	'-': MINUS,
	'*': STAR,
	'/': SLASH,
	'=': EQUALS,
	'<': LESS,
	'>': GREATER,
	'%': PERCENT,
	'!': EXCLAMATION,
	'$': DOLLAR,
	',': COMMA,
	'.': DOT,
	';': SEMICOLON,
	'(': LPAREN,
	')': RPAREN,
}

// doubles maps two-character terminals to their TokenType.
var doubles = map[string]TokenType{
	"<=": LESS_EQ,
	">=": GREATER_EQ,
	"!=": NOT_EQ,
}

const (
	msgUnclosedComment  = "unclosed comment"
	msgUnexpectedSymbol = "unexpected symbol"
)

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line

	tokens []Token
	errs   []Diagnostic
	// line of the last "unexpected symbol" diagnostic, for deduplication
	badLine int
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) emit(tt TokenType, lexeme string, line int) {
	l.tokens = append(l.tokens, Token{Type: tt, Lexeme: lexeme, Line: line})
}

// skipBlockComment discards everything up to and including the closing
// "*/". The opening "/*" must already have been consumed and its
// diagnostic pushed; it is withdrawn once the comment is closed.
func (l *Lexer) skipBlockComment() {
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance() // *
			l.advance() // /
			l.errs = l.errs[:len(l.errs)-1]
			return
		}
		l.advance()
	}
}

// scanIdent collects an identifier or keyword. The first letter must still
// be at l.peek().
func (l *Lexer) scanIdent() {
	line := l.line
	start := l.pos
	for l.pos < len(l.src) && (isLetter(l.peek()) || isDigit(l.peek())) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	l.emit(tt, lexeme, line)
}

// scanNumber collects digits with at most one '.'. A '-' written directly
// in front of the number is folded into it when it was lexed as a unary
// minus: the MINUS token is dropped and the literal becomes negative.
func (l *Lexer) scanNumber() {
	line := l.line
	start := l.pos
	seenDot := false
	for l.pos < len(l.src) {
		r := l.peek()
		if r == '.' && !seenDot && isDigit(l.peek2()) {
			seenDot = true
		} else if !isDigit(r) {
			break
		}
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	if l.foldsMinus(start) {
		l.tokens = l.tokens[:len(l.tokens)-1]
		lexeme = "-" + lexeme
	}
	l.emit(NUMBER, lexeme, line)
}

// foldsMinus reports whether the token just before a number starting at
// start is a unary minus written directly against it.
func (l *Lexer) foldsMinus(start int) bool {
	n := len(l.tokens)
	if start == 0 || l.src[start-1] != '-' || n == 0 || l.tokens[n-1].Type != MINUS {
		return false
	}
	if n == 1 {
		return true
	}
	switch prev := l.tokens[n-2].Type; {
	case prev.IsOperand(), prev == RPAREN:
		return false
	}
	return true
}

func (l *Lexer) unexpected() {
	if l.badLine != l.line {
		l.badLine = l.line
		l.errs = append(l.errs, Diagnostic{Line: l.line, Message: msgUnexpectedSymbol})
	}
	l.advance()
}

func (l *Lexer) run() {
	for l.pos < len(l.src) {
		ch := l.peek()
		line := l.line

		switch {
		case unicode.IsSpace(ch):
			l.advance()
		case isLetter(ch):
			l.scanIdent()
		case isDigit(ch):
			l.scanNumber()
		case ch == '/' && l.peek2() == '*':
			l.errs = append(l.errs, Diagnostic{Line: line, Message: msgUnclosedComment})
			l.advance()
			l.advance()
			l.skipBlockComment()
		default:
			if tt, ok := doubles[string([]rune{ch, l.peek2()})]; ok {
				l.advance()
				l.advance()
				l.emit(tt, tokenText(tt), line)
				continue
			}
			if tt, ok := singles[ch]; ok {
				l.advance()
				l.emit(tt, string(ch), line)
				continue
			}
			l.unexpected()
		}
	}
}

// Lex tokenises src in a single left-to-right pass. Problems are collected
// rather than aborting the scan: the token slice is always complete for the
// characters that could be recognised.
func Lex(src string) ([]Token, []Diagnostic) {
	l := newLexer(src)
	l.run()
	return l.tokens, l.errs
}

func tokenText(tt TokenType) string {
	for text, t := range doubles {
		if t == tt {
			return text
		}
	}
	return ""
}

func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
