package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	// Keywords
	PROGRAM TokenType = iota // "program"
	VAR                      // "var"
	BEGIN                    // "begin"
	END                      // "end"
	DIM                      // "dim"

	// Literals
	IDENTIFIER // variable name
	NUMBER     // 12, 0.5, -3
	BOOL       // "true" / "false"

	ASS   // "ass"
	IF    // "if"
	THEN  // "then"
	ELSE  // "else"
	ENDIF // "endif"

	FOR    // "for"
	REPEAT // "repeat"
	UNTIL  // "until"

	READ   // "read"
	OUTPUT // "output"

	// Arithmetic operators
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /

	// Declaration section type markers
	PERCENT     // % (int)
	EXCLAMATION // ! (float)
	DOLLAR      // $ (bool)

	LPAREN // (
	RPAREN // )

	// Comparison operators
	EQUALS     // =
	NOT_EQ     // !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=

	AND // "and"
	OR  // "or"
	NOT // "not"

	// Punctuation
	COMMA     // ,
	DOT       // .
	SEMICOLON // ;

	// Parser-internal markers
	START_OF_LINE // bottom-of-stack sentinel
	END_OF_LINE   // end-of-input sentinel
	NONTERMINAL   // reduced handle

	// Postfix-internal markers
	LABEL // jump target
	JUMP  // jump placeholder

	tokenTypeCount
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	PROGRAM:       "PROGRAM",
	VAR:           "VAR",
	BEGIN:         "BEGIN",
	END:           "END",
	DIM:           "DIM",
	IDENTIFIER:    "IDENTIFIER",
	NUMBER:        "NUMBER",
	BOOL:          "BOOL",
	ASS:           "ASS",
	IF:            "IF",
	THEN:          "THEN",
	ELSE:          "ELSE",
	ENDIF:         "ENDIF",
	FOR:           "FOR",
	REPEAT:        "REPEAT",
	UNTIL:         "UNTIL",
	READ:          "READ",
	OUTPUT:        "OUTPUT",
	PLUS:          "PLUS",
	MINUS:         "MINUS",
	STAR:          "STAR",
	SLASH:         "SLASH",
	PERCENT:       "PERCENT",
	EXCLAMATION:   "EXCLAMATION",
	DOLLAR:        "DOLLAR",
	LPAREN:        "LPAREN",
	RPAREN:        "RPAREN",
	EQUALS:        "EQUALS",
	NOT_EQ:        "NOT_EQ",
	LESS:          "LESS",
	GREATER:       "GREATER",
	LESS_EQ:       "LESS_EQ",
	GREATER_EQ:    "GREATER_EQ",
	AND:           "AND",
	OR:            "OR",
	NOT:           "NOT",
	COMMA:         "COMMA",
	DOT:           "DOT",
	SEMICOLON:     "SEMICOLON",
	START_OF_LINE: "START_OF_LINE",
	END_OF_LINE:   "END_OF_LINE",
	NONTERMINAL:   "NONTERMINAL",
	LABEL:         "LABEL",
	JUMP:          "JUMP",
}

// Length check: every TokenType must have a name.
var _ = tokenNames[tokenTypeCount-1]

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// category groups token types by the role they play downstream. It is
// computed once per type in categories so the parser, the postfix generator
// and the code generator never re-derive it with switch chains.
type category uint8

const (
	catOperand    category = 1 << iota // identifier, number, bool
	catArithmetic                      // + - * /
	catRelational                      // = != < > <= >=
	catLogical                         // and or not
	catTypeMarker                      // % ! $
)

var categories = [tokenTypeCount]category{
	IDENTIFIER:  catOperand,
	NUMBER:      catOperand,
	BOOL:        catOperand,
	PLUS:        catArithmetic,
	MINUS:       catArithmetic,
	STAR:        catArithmetic,
	SLASH:       catArithmetic,
	EQUALS:      catRelational,
	NOT_EQ:      catRelational,
	LESS:        catRelational,
	GREATER:     catRelational,
	LESS_EQ:     catRelational,
	GREATER_EQ:  catRelational,
	AND:         catLogical,
	OR:          catLogical,
	NOT:         catLogical,
	PERCENT:     catTypeMarker,
	EXCLAMATION: catTypeMarker,
	DOLLAR:      catTypeMarker,
}

func (tt TokenType) is(c category) bool {
	return tt >= 0 && tt < tokenTypeCount && categories[tt]&c != 0
}

// IsOperand reports whether tt is an identifier, number or bool literal.
func (tt TokenType) IsOperand() bool { return tt.is(catOperand) }

// IsArithmetic reports whether tt is one of + - * /.
func (tt TokenType) IsArithmetic() bool { return tt.is(catArithmetic) }

// IsRelational reports whether tt is a comparison operator.
func (tt TokenType) IsRelational() bool { return tt.is(catRelational) }

// IsLogical reports whether tt is and, or, not.
func (tt TokenType) IsLogical() bool { return tt.is(catLogical) }

// IsTypeMarker reports whether tt closes a declaration section.
func (tt TokenType) IsTypeMarker() bool { return tt.is(catTypeMarker) }

// LabelID names a jump target inside a Postfix sequence.
type LabelID int

// Jump conditions carried in the Lexeme of a JUMP token.
const (
	JumpAlways  = ""
	JumpIfTrue  = "true"
	JumpIfFalse = "false"
)

// Token is a single lexical unit produced by the Lexer. LABEL and JUMP
// tokens only appear in postfix sequences; for them Target holds the label
// the token defines (LABEL) or refers to (JUMP).
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text, a label name, or a jump condition
	Line   int    // 1-based source line, 0 for synthetic tokens
	Target LabelID
}

// Equal compares type and lexeme; the line is ignored.
func (t Token) Equal(o Token) bool {
	return t.Type == o.Type && t.Lexeme == o.Lexeme
}

func (t Token) String() string {
	return fmt.Sprintf("%-12s %-8q  line %d", t.Type, t.Lexeme, t.Line)
}

// EqualTokens reports whether two token sequences match element-wise under
// Token.Equal.
func EqualTokens(a, b []Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
