package compiler

import (
	"fmt"
	"strings"
)

// Postfix is a program in reverse-Polish order. Control flow is expressed
// with LABEL tokens, which define a LabelID, and JUMP tokens, which refer to
// one; Labels maps every defined LabelID to its index in Items.
type Postfix struct {
	Items  []Token
	Labels map[LabelID]int
}

func labelName(id LabelID) string { return fmt.Sprintf("L%d", id) }

// newPostfix indexes the labels of items. A label defined twice is an
// internal error.
func newPostfix(items []Token) (*Postfix, error) {
	p := &Postfix{Items: items, Labels: make(map[LabelID]int)}
	for i, t := range items {
		if t.Type != LABEL {
			continue
		}
		if _, dup := p.Labels[t.Target]; dup {
			return nil, internalf("label %s defined twice", labelName(t.Target))
		}
		p.Labels[t.Target] = i
	}
	return p, nil
}

// Resolve returns the index of the label a JUMP token refers to.
func (p *Postfix) Resolve(jump Token) (int, bool) {
	if jump.Type != JUMP {
		return 0, false
	}
	i, ok := p.Labels[jump.Target]
	return i, ok
}

// validate checks that every jump resolves.
func (p *Postfix) validate() error {
	for i, t := range p.Items {
		if t.Type != JUMP {
			continue
		}
		if _, ok := p.Resolve(t); !ok {
			return internalf("jump at %d targets undefined label %s", i, labelName(t.Target))
		}
	}
	return nil
}

// MaxLabel returns the highest LabelID in use, or -1 when there is none.
func (p *Postfix) MaxLabel() LabelID {
	max := LabelID(-1)
	for _, t := range p.Items {
		if (t.Type == LABEL || t.Type == JUMP) && t.Target > max {
			max = t.Target
		}
	}
	return max
}

// String renders one item per line.
func (p *Postfix) String() string {
	var b strings.Builder
	for _, t := range p.Items {
		switch t.Type {
		case LABEL:
			fmt.Fprintf(&b, "%s:\n", labelName(t.Target))
		case JUMP:
			if t.Lexeme == JumpAlways {
				fmt.Fprintf(&b, "jump %s\n", labelName(t.Target))
			} else {
				fmt.Fprintf(&b, "jump if %s %s\n", t.Lexeme, labelName(t.Target))
			}
		default:
			b.WriteString(t.Lexeme)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// precedence ranks the operators handled by the shunting-yard pass. Zero
// means the token is not an operator; such tokens act as barriers on the
// operator stack.
func precedence(tt TokenType) int {
	switch {
	case tt == ASS:
		return 1
	case tt == AND, tt == OR:
		return 2
	case tt.IsRelational():
		return 3
	case tt == PLUS, tt == MINUS:
		return 4
	case tt == STAR, tt == SLASH:
		return 5
	case tt == NOT:
		return 6
	}
	return 0
}

// opEntry is one operator-stack slot. Control keywords carry the labels
// they still have to place or jump to.
type opEntry struct {
	tok   Token
	loop  LabelID // repeat and for: loop head
	exit  LabelID // then, else and for: label placed when the construct closes
	armed bool    // repeat: "until" has been seen
}

type postfixGen struct {
	src       []Token
	out       []Token
	ops       []opEntry
	nextLabel LabelID
}

func (g *postfixGen) emit(t Token) { g.out = append(g.out, t) }

func (g *postfixGen) newLabel() LabelID {
	id := g.nextLabel
	g.nextLabel++
	return id
}

func (g *postfixGen) place(id LabelID) {
	g.emit(Token{Type: LABEL, Lexeme: labelName(id), Target: id})
}

func (g *postfixGen) jump(cond string, target LabelID, line int) {
	g.emit(Token{Type: JUMP, Lexeme: cond, Line: line, Target: target})
}

func (g *postfixGen) push(e opEntry) { g.ops = append(g.ops, e) }

func (g *postfixGen) top() (opEntry, bool) {
	if len(g.ops) == 0 {
		return opEntry{}, false
	}
	return g.ops[len(g.ops)-1], true
}

func (g *postfixGen) pop() opEntry {
	e := g.ops[len(g.ops)-1]
	g.ops = g.ops[:len(g.ops)-1]
	return e
}

// flush moves operators to the output down to the nearest barrier.
func (g *postfixGen) flushTo(base int) {
	for len(g.ops) > base && precedence(g.ops[len(g.ops)-1].tok.Type) > 0 {
		g.emit(g.pop().tok)
	}
}

func (g *postfixGen) flush() { g.flushTo(0) }

// expect pops the barrier on top of the stack, which must be of type tt.
func (g *postfixGen) expect(tt TokenType, at Token) (opEntry, error) {
	e, ok := g.top()
	if !ok || e.tok.Type != tt {
		return opEntry{}, internalf("unbalanced %s at line %d: expected open %s", at.Lexeme, at.Line, tt)
	}
	return g.pop(), nil
}

// operator pushes an operator, first moving out every stacked operator of
// greater or equal rank. The prefix "not" moves nothing.
func (g *postfixGen) operator(t Token) {
	if t.Type != NOT {
		p := precedence(t.Type)
		for len(g.ops) > 0 {
			q := precedence(g.ops[len(g.ops)-1].tok.Type)
			if q == 0 || p > q {
				break
			}
			g.emit(g.pop().tok)
		}
	}
	g.push(opEntry{tok: t})
}

// expression lowers a bounded token window holding a plain expression.
func (g *postfixGen) expression(window []Token) error {
	base := len(g.ops)
	for _, t := range window {
		switch {
		case t.Type.IsOperand():
			g.emit(t)
		case t.Type == LPAREN:
			g.push(opEntry{tok: t})
		case t.Type == RPAREN:
			g.flushTo(base)
			if _, err := g.expect(LPAREN, t); err != nil {
				return err
			}
		case precedence(t.Type) > 0:
			g.operator(t)
		default:
			return internalf("unexpected %s in expression at line %d", t.Type, t.Line)
		}
	}
	g.flushTo(base)
	if len(g.ops) != base {
		return internalf("unbalanced parentheses in expression")
	}
	return nil
}

// forClauses splits "( init ; guard ; step )" starting at the '(' at open
// and returns the guard window and the index of the closing ')'.
func forClauses(src []Token, open int) (guard []Token, close int, err error) {
	if open >= len(src) || src[open].Type != LPAREN {
		return nil, 0, internalf("for without '('")
	}
	depth := 0
	var semis []int
	for i := open + 1; i < len(src); i++ {
		switch src[i].Type {
		case LPAREN:
			depth++
		case RPAREN:
			if depth == 0 {
				if len(semis) != 2 {
					return nil, 0, internalf("for header at line %d needs two ';'", src[open].Line)
				}
				return src[semis[0]+1 : semis[1]], i, nil
			}
			depth--
		case SEMICOLON:
			if depth == 0 {
				semis = append(semis, i)
			}
		}
	}
	return nil, 0, internalf("unterminated for header at line %d", src[open].Line)
}

func (g *postfixGen) run(start int) error {
	for i := start; i < len(g.src); i++ {
		t := g.src[i]

		switch t.Type {
		case DOT:
			return g.finish()

		case COMMA:

		case IDENTIFIER, NUMBER, BOOL:
			g.emit(t)

		case LPAREN, BEGIN, IF, READ, OUTPUT:
			g.push(opEntry{tok: t})

		case RPAREN:
			g.flush()
			if _, err := g.expect(LPAREN, t); err != nil {
				return err
			}
			e, ok := g.top()
			switch {
			case !ok:
			case e.tok.Type == REPEAT && e.armed:
				g.pop()
				g.jump(JumpIfTrue, e.loop, t.Line)
			case e.tok.Type == READ, e.tok.Type == OUTPUT:
				g.emit(g.pop().tok)
			}

		case SEMICOLON:
			g.flush()

		case END:
			g.flush()
			if _, err := g.expect(BEGIN, t); err != nil {
				return err
			}
			if e, ok := g.top(); ok && e.tok.Type == FOR {
				g.pop()
				g.jump(JumpAlways, e.loop, t.Line)
				g.place(e.exit)
			}

		case THEN:
			g.flush()
			if _, err := g.expect(IF, t); err != nil {
				return err
			}
			elseLabel := g.newLabel()
			g.jump(JumpIfFalse, elseLabel, t.Line)
			g.push(opEntry{tok: t, exit: elseLabel})

		case ELSE:
			g.flush()
			then, err := g.expect(THEN, t)
			if err != nil {
				return err
			}
			endLabel := g.newLabel()
			g.jump(JumpAlways, endLabel, t.Line)
			g.place(then.exit)
			g.push(opEntry{tok: t, exit: endLabel})

		case ENDIF:
			g.flush()
			els, err := g.expect(ELSE, t)
			if err != nil {
				return err
			}
			g.place(els.exit)

		case REPEAT:
			loop := g.newLabel()
			g.place(loop)
			g.push(opEntry{tok: t, loop: loop})

		case UNTIL:
			g.flush()
			if e, ok := g.top(); !ok || e.tok.Type != REPEAT {
				return internalf("until without repeat at line %d", t.Line)
			}
			g.ops[len(g.ops)-1].armed = true

		case FOR:
			guard, close, err := forClauses(g.src, i+1)
			if err != nil {
				return err
			}
			loop, exit := g.newLabel(), g.newLabel()
			g.place(loop)
			if len(guard) > 0 {
				if err := g.expression(guard); err != nil {
					return err
				}
				g.jump(JumpIfFalse, exit, t.Line)
			}
			g.push(opEntry{tok: t, loop: loop, exit: exit})
			i = close

		default:
			if precedence(t.Type) == 0 {
				return internalf("unexpected %s in statement body at line %d", t.Type, t.Line)
			}
			g.operator(t)
		}
	}
	return g.finish()
}

func (g *postfixGen) finish() error {
	g.flush()
	if len(g.ops) > 0 {
		e := g.ops[len(g.ops)-1]
		return internalf("unclosed %s at line %d", e.tok.Type, e.tok.Line)
	}
	return nil
}

// renumber rewrites label IDs so that labels are numbered in the order they
// appear in the output.
func renumber(items []Token) {
	ids := make(map[LabelID]LabelID)
	for _, t := range items {
		if t.Type == LABEL {
			ids[t.Target] = LabelID(len(ids))
		}
	}
	for i := range items {
		switch items[i].Type {
		case LABEL:
			items[i].Target = ids[items[i].Target]
			items[i].Lexeme = labelName(items[i].Target)
		case JUMP:
			if id, ok := ids[items[i].Target]; ok {
				items[i].Target = id
			}
		}
	}
}

// GeneratePostfix converts the statement body of tokens into postfix form.
// Generation starts at the first "begin" (or the first token when there is
// none) and stops at the closing ".". Commas are dropped; "read" and
// "output" follow their argument lists.
func GeneratePostfix(tokens []Token) (*Postfix, error) {
	start := 0
	for i, t := range tokens {
		if t.Type == BEGIN {
			start = i
			break
		}
	}

	g := &postfixGen{src: tokens}
	if err := g.run(start); err != nil {
		return nil, err
	}
	renumber(g.out)

	p, err := newPostfix(g.out)
	if err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}
