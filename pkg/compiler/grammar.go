package compiler

import "strings"

// Divider separates alternatives inside one Production.
const Divider = "|"

// Production lists every alternative of one nonterminal, in source order,
// with Divider between alternatives.
type Production struct {
	Name    string
	Symbols []string
}

// Alternatives splits the production at its dividers.
func (p Production) Alternatives() [][]string {
	var out [][]string
	start := 0
	for i, s := range p.Symbols {
		if s == Divider {
			out = append(out, p.Symbols[start:i])
			start = i + 1
		}
	}
	return append(out, p.Symbols[start:])
}

// Grammar is an ordered set of productions. The first production's name is
// the start symbol.
type Grammar []Production

// IsNonterminal reports whether sym names a production of g.
func (g Grammar) IsNonterminal(sym string) bool {
	for _, p := range g {
		if p.Name == sym {
			return true
		}
	}
	return false
}

func prod(name, rhs string) Production {
	return Production{Name: name, Symbols: strings.Fields(rhs)}
}

// DefaultGrammar returns the language grammar. The returned value is a
// fresh copy; callers may modify it.
func DefaultGrammar() Grammar {
	return Grammar{
		prod("S", "program var O begin L end ."),
		prod("O", "dim I % | dim I ! | dim I $"),
		prod("I", "id | I , id"),
		prod("L", "L1 | L ; L1 | L1 ; | begin L end | L ; begin L end"+
			" | if E then L else L endif | L ; if E then L else L endif"+
			" | for F ; E ) begin L end | L ; for F ; E ) begin L end"+
			" | repeat L until ( E ) | L ; repeat L until ( E )"+
			" | read ( I ) | L ; read ( I )"+
			" | output ( I ) | L ; output ( I )"),
		prod("L1", "id ass E"),
		prod("F", "( E ; E"),
		prod("E", "X"),
		prod("X", "Y and Y | Y or Y"),
		prod("Y", "Z = Z | Z != Z | Z < Z | Z > Z | Z <= Z | Z >= Z"),
		prod("Z", "W | Z + W | Z - W"),
		prod("W", "V | W * V | W / V"),
		prod("V", "id | num | bool | ( E ) | not V"),
	}
}

// Terminals maps every terminal symbol of the grammar to its token type.
// The literal classes are spelled "id", "num" and "bool".
var Terminals = map[string]TokenType{
	"program": PROGRAM,
	"var":     VAR,
	"begin":   BEGIN,
	"end":     END,
	"and":     AND,
	"or":      OR,
	"not":     NOT,
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
	"id":      IDENTIFIER,
	"num":     NUMBER,
	"bool":    BOOL,
	"+":       PLUS,
	"-":       MINUS,
	"*":       STAR,
	"/":       SLASH,
	"=":       EQUALS,
	"!=":      NOT_EQ,
	"<":       LESS,
	"<=":      LESS_EQ,
	">":       GREATER,
	">=":      GREATER_EQ,
	"%":       PERCENT,
	"!":       EXCLAMATION,
	"$":       DOLLAR,
	",":       COMMA,
	".":       DOT,
	";":       SEMICOLON,
	"(":       LPAREN,
	")":       RPAREN,
}

// ReductionRules are the handle strings the parser accepts, with every
// nonterminal written as "E". Lookup is by exact string match.
var ReductionRules = []string{
	"program var E begin E end .",
	"dim E %", "dim E !", "dim E $",
	"id", "E , id",
	"E ;", "E ; E",
	"begin E end", "E ; begin E end",
	"id ass E",
	"if E then E else E endif", "E ; if E then E else E endif",
	"for E ; E ) begin E end", "for E ; ) begin E end",
	"E ; for E ; ) begin E end", "E ; for E ; E ) begin E end",
	"repeat E until ( E )", "E ; repeat E until ( E )",
	"read ( E )", "E ; read ( E )",
	"output ( E )", "E ; output ( E )",
	"( ;", "( E ;", "( ; E", "( E ; E",
	"not E",
	"E + E", "E - E",
	"E * E", "E / E",
	"E = E", "E != E", "E < E", "E > E", "E <= E", "E >= E",
	"E and E", "E or E",
	"num", "bool", "( E )",
}

var ruleSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(ReductionRules))
	for _, r := range ReductionRules {
		m[r] = struct{}{}
	}
	return m
}()

// canonical is the form a stack entry takes inside a handle string.
func canonical(t Token) string {
	switch t.Type {
	case NONTERMINAL:
		return "E"
	case IDENTIFIER:
		return "id"
	case NUMBER:
		return "num"
	case BOOL:
		return "bool"
	}
	return t.Lexeme
}
