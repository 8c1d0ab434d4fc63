package asm

import (
	"fmt"
	"strings"
)

// Instr is one line of the text section: a label definition when Label is
// set, an instruction otherwise.
type Instr struct {
	Label    string
	Op       string
	Operands []string
}

func (in Instr) String() string {
	if in.Label != "" {
		return in.Label + ":"
	}
	if len(in.Operands) == 0 {
		return "\t" + in.Op
	}
	return "\t" + in.Op + " " + strings.Join(in.Operands, ", ")
}

// Data is one definition in the data section, such as
// `var_x dq 0` or `format_out0 db "%lld", 10, 0`.
type Data struct {
	Name      string
	Directive string // db or dq
	Values    []string
}

func (d Data) String() string {
	return fmt.Sprintf("%s %s %s", d.Name, d.Directive, strings.Join(d.Values, ", "))
}

// Program is a NASM source file for a single entry point.
type Program struct {
	Entry   string
	Externs []string
	Data    []Data
	Text    []Instr
}

// NewProgram returns an empty program whose entry label is entry.
func NewProgram(entry string) *Program {
	return &Program{Entry: entry}
}

// Extern declares name as an external symbol. Repeated declarations are
// ignored.
func (p *Program) Extern(name string) {
	for _, e := range p.Externs {
		if e == name {
			return
		}
	}
	p.Externs = append(p.Externs, name)
}

// Define appends a data definition.
func (p *Program) Define(name, directive string, values ...string) {
	p.Data = append(p.Data, Data{Name: name, Directive: directive, Values: values})
}

// Label appends a label definition to the text section.
func (p *Program) Label(name string) {
	p.Text = append(p.Text, Instr{Label: name})
}

// Emit appends an instruction to the text section.
func (p *Program) Emit(op string, operands ...string) {
	p.Text = append(p.Text, Instr{Op: op, Operands: operands})
}

// Render returns the program as NASM source text.
func (p *Program) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "global %s\n", p.Entry)
	for _, e := range p.Externs {
		fmt.Fprintf(&b, "extern %s\n", e)
	}

	b.WriteString("\nsection .data\n")
	for _, d := range p.Data {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}

	b.WriteString("\nsection .text\n")
	fmt.Fprintf(&b, "%s:\n", p.Entry)
	for _, in := range p.Text {
		b.WriteString(in.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Quote renders s as a NASM string literal. NASM backquoted strings are
// not used; s must not contain a double quote.
func Quote(s string) string {
	return `"` + s + `"`
}
