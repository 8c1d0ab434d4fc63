package compiler

import (
	"fmt"
	"strings"
)

// Parser is a Wirth-Weber operator-precedence recogniser. It validates a
// token slice against the grammar encoded in its Table and ReductionRules;
// it builds no tree, since later stages work on the token slice directly.
//
// The stack holds terminals and NONTERMINAL markers for reduced handles.
// With S the topmost terminal on the stack and C the current input token:
//
//	S < C or S = C   shift C
//	S > C            reduce the handle ending at the top of the stack
//	otherwise        syntax error
type Parser struct {
	table *Table
	stack []Token
	input []Token
	pos   int
}

// NewParser returns a parser driven by t. A nil t selects DefaultTable.
func NewParser(t *Table) *Parser {
	if t == nil {
		t = DefaultTable()
	}
	return &Parser{table: t}
}

// Parse validates tokens. It stops at the first error, which is always a
// *SyntaxError.
func (p *Parser) Parse(tokens []Token) error {
	p.input = make([]Token, 0, len(tokens)+1)
	p.input = append(p.input, tokens...)
	endLine := 0
	if len(tokens) > 0 {
		endLine = tokens[len(tokens)-1].Line
	}
	p.input = append(p.input, Token{Type: END_OF_LINE, Line: endLine})
	p.stack = []Token{{Type: START_OF_LINE}}
	p.pos = 0

	for !p.accepted() {
		if p.pos >= len(p.input) {
			return &SyntaxError{Line: endLine, Msg: "unexpected end of input"}
		}
		cur := p.input[p.pos]
		top := p.topTerminal()

		switch p.table.Relation(top.Type, cur.Type) {
		case Yields, Equal:
			p.stack = append(p.stack, cur)
			p.pos++
		case Takes:
			if err := p.reduce(cur.Line); err != nil {
				return err
			}
		default:
			return &SyntaxError{
				Line: cur.Line,
				Msg:  fmt.Sprintf("no precedence relation between '%s' and '%s'", display(top), display(cur)),
			}
		}
	}
	return nil
}

// accepted reports whether the stack holds just the start sentinel and one
// reduced nonterminal.
func (p *Parser) accepted() bool {
	return len(p.stack) == 2 && p.stack[1].Type == NONTERMINAL
}

// topTerminal returns the topmost stack entry that is not a NONTERMINAL.
func (p *Parser) topTerminal() Token {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].Type != NONTERMINAL {
			return p.stack[i]
		}
	}
	return p.stack[0]
}

// reduce pops the handle at the top of the stack and replaces it with a
// single NONTERMINAL. The handle extends down while consecutive terminals
// are related by '='; nonterminals between and below them belong to it.
func (p *Parser) reduce(line int) error {
	end := len(p.stack)
	i := end
	for i > 1 && p.stack[i-1].Type == NONTERMINAL {
		i--
	}
	for {
		if i <= 1 {
			return &SyntaxError{Line: line, Msg: "no grammar rule for reduction"}
		}
		t := p.stack[i-1]
		i--
		for i > 1 && p.stack[i-1].Type == NONTERMINAL {
			i--
		}
		below := p.terminalBelow(i)
		if p.table.Relation(below.Type, t.Type) != Equal {
			break
		}
	}

	handle := p.stack[i:end]
	parts := make([]string, len(handle))
	for k, t := range handle {
		parts[k] = canonical(t)
	}
	key := strings.Join(parts, " ")
	if _, ok := ruleSet[key]; !ok {
		return &SyntaxError{Line: line, Msg: fmt.Sprintf("no grammar rule for reduction of '%s'", key)}
	}

	p.stack = append(p.stack[:i], Token{Type: NONTERMINAL, Line: handle[0].Line})
	return nil
}

// terminalBelow returns the topmost terminal in stack[:i].
func (p *Parser) terminalBelow(i int) Token {
	for j := i - 1; j >= 0; j-- {
		if p.stack[j].Type != NONTERMINAL {
			return p.stack[j]
		}
	}
	return p.stack[0]
}

func display(t Token) string {
	switch t.Type {
	case START_OF_LINE:
		return "start of input"
	case END_OF_LINE:
		return "end of input"
	case NONTERMINAL:
		return "E"
	}
	return t.Lexeme
}

// Parse validates tokens against the default grammar.
func Parse(tokens []Token) error {
	return NewParser(nil).Parse(tokens)
}
