package compiler

import "fmt"

// VarType is the declared type of a variable.
type VarType int

const (
	TypeUnknown VarType = iota
	TypeInt
	TypeFloat
	TypeBool
)

func (v VarType) String() string {
	switch v {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	}
	return "unknown"
}

// markerTypes maps a section marker to the type it declares.
var markerTypes = map[TokenType]VarType{
	PERCENT:     TypeInt,
	EXCLAMATION: TypeFloat,
	DOLLAR:      TypeBool,
}

// Ident is one declared variable.
type Ident struct {
	Name string
	Type VarType
	Line int // declaration line
}

// IdTable maps variable names to their declarations. Iteration follows
// declaration order so generated output is stable.
type IdTable struct {
	order []string
	ids   map[string]*Ident
}

// NewIdTable returns an empty table.
func NewIdTable() *IdTable {
	return &IdTable{ids: make(map[string]*Ident)}
}

// Declare adds name with an unknown type. It reports false when name is
// already declared.
func (t *IdTable) Declare(name string, line int) bool {
	if _, ok := t.ids[name]; ok {
		return false
	}
	t.ids[name] = &Ident{Name: name, Line: line}
	t.order = append(t.order, name)
	return true
}

// SetType records the declared type of name.
func (t *IdTable) SetType(name string, vt VarType) {
	if id, ok := t.ids[name]; ok {
		id.Type = vt
	}
}

// Lookup returns the declaration of name.
func (t *IdTable) Lookup(name string) (Ident, bool) {
	id, ok := t.ids[name]
	if !ok {
		return Ident{}, false
	}
	return *id, true
}

// Names returns the declared names in declaration order.
func (t *IdTable) Names() []string {
	return append([]string(nil), t.order...)
}

// Len returns the number of declared variables.
func (t *IdTable) Len() int { return len(t.order) }

func (t *IdTable) has(vt VarType) bool {
	for _, id := range t.ids {
		if id.Type == vt {
			return true
		}
	}
	return false
}

// HasFloat reports whether any variable is declared float.
func (t *IdTable) HasFloat() bool { return t.has(TypeFloat) }

// HasInt reports whether any variable is declared int.
func (t *IdTable) HasInt() bool { return t.has(TypeInt) }

// Check builds the identifier table from the declaration sections and
// verifies every identifier used in the statement body. It runs both passes
// to completion and returns all problems found.
//
// A type marker types the identifiers declared since the previous marker.
// The declaration part starts after "var" (or at the first token when there
// is none) and ends at the first "begin".
func Check(tokens []Token) (*IdTable, []Diagnostic) {
	ids := NewIdTable()
	var errs []Diagnostic

	i := 0
	for k, t := range tokens {
		if t.Type == VAR {
			i = k + 1
			break
		}
		if t.Type == BEGIN {
			break
		}
	}

	var section []string
	for ; i < len(tokens) && tokens[i].Type != BEGIN; i++ {
		t := tokens[i]
		switch {
		case t.Type == IDENTIFIER:
			if !ids.Declare(t.Lexeme, t.Line) {
				errs = append(errs, Diagnostic{
					Line:    t.Line,
					Message: fmt.Sprintf("multiple variable declaration: %s", t.Lexeme),
				})
				continue
			}
			section = append(section, t.Lexeme)
		case t.Type.IsTypeMarker():
			for _, name := range section {
				ids.SetType(name, markerTypes[t.Type])
			}
			section = section[:0]
		}
	}

	for ; i < len(tokens); i++ {
		t := tokens[i]
		if t.Type != IDENTIFIER {
			continue
		}
		if _, ok := ids.Lookup(t.Lexeme); !ok {
			errs = append(errs, Diagnostic{
				Line:    t.Line,
				Message: fmt.Sprintf("unknown variable: %s", t.Lexeme),
			})
		}
	}

	return ids, errs
}
