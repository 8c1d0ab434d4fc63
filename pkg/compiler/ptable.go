package compiler

import (
	"fmt"
	"sort"
	"sync"
)

// Relation is an operator-precedence relation between two terminals.
type Relation byte

const (
	NoRelation Relation = 0
	Yields     Relation = '<'
	Equal      Relation = '='
	Takes      Relation = '>'
)

func (r Relation) String() string {
	if r == NoRelation {
		return " "
	}
	return string(rune(r))
}

// Table is an immutable operator-precedence matrix indexed by token type.
type Table struct {
	rel [tokenTypeCount][tokenTypeCount]Relation
}

// Relation returns the relation between the terminal a on the stack and
// the terminal b in the input.
func (t *Table) Relation(a, b TokenType) Relation {
	if a < 0 || a >= tokenTypeCount || b < 0 || b >= tokenTypeCount {
		return NoRelation
	}
	return t.rel[a][b]
}

func (t *Table) set(a, b TokenType, r Relation) error {
	if old := t.rel[a][b]; old != NoRelation && old != r {
		return internalf("conflicting relations %c and %c between %s and %s", old, r, a, b)
	}
	t.rel[a][b] = r
	return nil
}

// symset is a set of grammar symbols.
type symset map[string]struct{}

func (s symset) add(sym string) bool {
	if _, ok := s[sym]; ok {
		return false
	}
	s[sym] = struct{}{}
	return true
}

// sorted returns the members in a stable order.
func (s symset) sorted() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// SymbolSets holds, per nonterminal, the symbols that can appear leftmost
// and rightmost in a derivation of it.
type SymbolSets struct {
	g     Grammar
	Left  map[string]symset
	Right map[string]symset
}

// NewSymbolSets seeds the sets with the first and last symbol of every
// alternative. Call Close to extend them to their transitive closure.
func NewSymbolSets(g Grammar) *SymbolSets {
	s := &SymbolSets{
		g:     g,
		Left:  make(map[string]symset, len(g)),
		Right: make(map[string]symset, len(g)),
	}
	for _, p := range g {
		left, right := symset{}, symset{}
		for _, alt := range p.Alternatives() {
			if len(alt) == 0 {
				continue
			}
			left.add(alt[0])
			right.add(alt[len(alt)-1])
		}
		s.Left[p.Name] = left
		s.Right[p.Name] = right
	}
	return s
}

// Step unions into every set the sets of the nonterminals it contains and
// reports whether anything changed.
func (s *SymbolSets) Step() bool {
	changed := false
	for _, sets := range []map[string]symset{s.Left, s.Right} {
		for _, p := range s.g {
			own := sets[p.Name]
			for _, sym := range own.sorted() {
				for inner := range sets[sym] {
					if own.add(inner) {
						changed = true
					}
				}
			}
		}
	}
	return changed
}

// Close runs Step until the sets stop changing and returns the number of
// steps that made progress.
func (s *SymbolSets) Close() int {
	n := 0
	for s.Step() {
		n++
	}
	return n
}

// terminalSets reduces closed symbol sets to terminal sets. A nonterminal
// in a closed set contributes its edge terminals: the first (or last)
// terminal of each of its alternatives.
func terminalSets(g Grammar, sets map[string]symset, edge map[string]symset, terminals map[string]TokenType) map[string]map[TokenType]struct{} {
	out := make(map[string]map[TokenType]struct{}, len(sets))
	for name, closed := range sets {
		ts := make(map[TokenType]struct{})
		addAll := func(syms symset) {
			for sym := range syms {
				if tt, ok := terminals[sym]; ok {
					ts[tt] = struct{}{}
				}
			}
		}
		addAll(closed)
		addAll(edge[name])
		for sym := range closed {
			if g.IsNonterminal(sym) {
				addAll(edge[sym])
			}
		}
		out[name] = ts
	}
	return out
}

// edgeTerminals returns, per nonterminal, the first (fromLeft) or last
// terminal of every alternative.
func edgeTerminals(g Grammar, terminals map[string]TokenType, fromLeft bool) map[string]symset {
	out := make(map[string]symset, len(g))
	for _, p := range g {
		set := symset{}
		for _, alt := range p.Alternatives() {
			for i := range alt {
				sym := alt[i]
				if !fromLeft {
					sym = alt[len(alt)-1-i]
				}
				if _, ok := terminals[sym]; ok {
					set.add(sym)
					break
				}
			}
		}
		out[p.Name] = set
	}
	return out
}

// BuildTable derives the precedence relations of g. A cell written with
// two different relations means g is not an operator-precedence grammar
// and is reported as an internal error.
func BuildTable(g Grammar, terminals map[string]TokenType) (*Table, error) {
	for _, p := range g {
		for _, sym := range p.Symbols {
			if sym == Divider || g.IsNonterminal(sym) {
				continue
			}
			if _, ok := terminals[sym]; !ok {
				return nil, internalf("symbol %q in %s is neither terminal nor nonterminal", sym, p.Name)
			}
		}
	}

	sets := NewSymbolSets(g)
	sets.Close()
	lt := terminalSets(g, sets.Left, edgeTerminals(g, terminals, true), terminals)
	rt := terminalSets(g, sets.Right, edgeTerminals(g, terminals, false), terminals)

	t := &Table{}
	for _, p := range g {
		for _, alt := range p.Alternatives() {
			if err := t.relate(g, alt, terminals, lt, rt); err != nil {
				return nil, fmt.Errorf("production %s: %w", p.Name, err)
			}
		}
	}

	if err := t.set(START_OF_LINE, PROGRAM, Yields); err != nil {
		return nil, err
	}
	if err := t.set(DOT, END_OF_LINE, Takes); err != nil {
		return nil, err
	}
	return t, nil
}

// relate writes the relations implied by one alternative.
func (t *Table) relate(g Grammar, alt []string, terminals map[string]TokenType, lt, rt map[string]map[TokenType]struct{}) error {
	for i := 0; i+1 < len(alt); i++ {
		a, b := alt[i], alt[i+1]
		aTerm, bTerm := !g.IsNonterminal(a), !g.IsNonterminal(b)

		switch {
		case aTerm && bTerm:
			if err := t.set(terminals[a], terminals[b], Equal); err != nil {
				return err
			}
		case aTerm && !bTerm:
			for _, tt := range sortedTypes(lt[b]) {
				if err := t.set(terminals[a], tt, Yields); err != nil {
					return err
				}
			}
			if i+2 < len(alt) && !g.IsNonterminal(alt[i+2]) {
				if err := t.set(terminals[a], terminals[alt[i+2]], Equal); err != nil {
					return err
				}
			}
		case !aTerm && bTerm:
			for _, tt := range sortedTypes(rt[a]) {
				if err := t.set(tt, terminals[b], Takes); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func sortedTypes(s map[TokenType]struct{}) []TokenType {
	out := make([]TokenType, 0, len(s))
	for tt := range s {
		out = append(out, tt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MustBuildTable is like BuildTable but panics on error.
func MustBuildTable(g Grammar, terminals map[string]TokenType) *Table {
	t, err := BuildTable(g, terminals)
	if err != nil {
		panic(err)
	}
	return t
}

var (
	defaultTableOnce sync.Once
	defaultTable     *Table
)

// DefaultTable returns the table for DefaultGrammar, built on first use.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		defaultTable = MustBuildTable(DefaultGrammar(), Terminals)
	})
	return defaultTable
}
