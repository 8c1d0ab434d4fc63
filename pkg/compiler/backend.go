package compiler

import "gopas/pkg/asm"

// backend emits the instructions for one value representation. Integer and
// boolean values live in rax with rcx as scratch; floating-point values
// live in xmm0 with xmm1 as scratch.
type backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Kind is the numeric type the backend computes with.
	Kind() VarType

	load(p *asm.Program, src string)
	store(p *asm.Program, dst string)
	arith(p *asm.Program, op TokenType, src string)
	compare(p *asm.Program, src string)
	// spill saves the accumulator on the machine stack; restore pops it
	// into the scratch register, which it returns.
	spill(p *asm.Program)
	restore(p *asm.Program) string

	// jcc returns the conditional jump taken when "a op b" is when.
	jcc(op TokenType, when bool) string

	scanVerb() string
	printVerb() string
	zero() string
}

// Conditional jumps after a compare, as {taken when true, taken when
// false}. cmp sets signed flags; comisd sets them like an unsigned compare.
var (
	intJumps = map[TokenType][2]string{
		EQUALS:     {"je", "jne"},
		NOT_EQ:     {"jne", "je"},
		LESS:       {"jl", "jge"},
		GREATER:    {"jg", "jle"},
		LESS_EQ:    {"jle", "jg"},
		GREATER_EQ: {"jge", "jl"},
	}
	floatJumps = map[TokenType][2]string{
		EQUALS:     {"je", "jne"},
		NOT_EQ:     {"jne", "je"},
		LESS:       {"jb", "jae"},
		GREATER:    {"ja", "jbe"},
		LESS_EQ:    {"jbe", "ja"},
		GREATER_EQ: {"jae", "jb"},
	}
)

func pickJump(table map[TokenType][2]string, op TokenType, when bool) string {
	j := table[op]
	if when {
		return j[0]
	}
	return j[1]
}

// setcc turns a conditional jump mnemonic into the matching set mnemonic.
func setcc(jump string) string { return "set" + jump[1:] }

type intBackend struct{}

func (intBackend) Name() string  { return "integer" }
func (intBackend) Kind() VarType { return TypeInt }

func (intBackend) load(p *asm.Program, src string)  { p.Emit("mov", "rax", src) }
func (intBackend) store(p *asm.Program, dst string) { p.Emit("mov", dst, "rax") }

func (intBackend) arith(p *asm.Program, op TokenType, src string) {
	switch op {
	case PLUS:
		p.Emit("add", "rax", src)
	case MINUS:
		p.Emit("sub", "rax", src)
	case STAR:
		p.Emit("imul", "rax", src)
	case SLASH:
		if src != "rcx" {
			p.Emit("mov", "rcx", src)
		}
		p.Emit("cqo")
		p.Emit("idiv", "rcx")
	}
}

func (intBackend) compare(p *asm.Program, src string) { p.Emit("cmp", "rax", src) }

func (intBackend) spill(p *asm.Program) { p.Emit("push", "rax") }

func (intBackend) restore(p *asm.Program) string {
	p.Emit("pop", "rcx")
	return "rcx"
}

func (intBackend) jcc(op TokenType, when bool) string { return pickJump(intJumps, op, when) }

func (intBackend) scanVerb() string  { return "%lld" }
func (intBackend) printVerb() string { return "%lld" }
func (intBackend) zero() string      { return "0" }

type floatBackend struct{}

func (floatBackend) Name() string  { return "floating-point" }
func (floatBackend) Kind() VarType { return TypeFloat }

func (floatBackend) load(p *asm.Program, src string)  { p.Emit("movsd", "xmm0", src) }
func (floatBackend) store(p *asm.Program, dst string) { p.Emit("movsd", dst, "xmm0") }

var floatOps = map[TokenType]string{
	PLUS:  "addsd",
	MINUS: "subsd",
	STAR:  "mulsd",
	SLASH: "divsd",
}

func (floatBackend) arith(p *asm.Program, op TokenType, src string) {
	p.Emit(floatOps[op], "xmm0", src)
}

func (floatBackend) compare(p *asm.Program, src string) { p.Emit("comisd", "xmm0", src) }

func (floatBackend) spill(p *asm.Program) {
	p.Emit("sub", "rsp", "8")
	p.Emit("movsd", "qword [rsp]", "xmm0")
}

func (floatBackend) restore(p *asm.Program) string {
	p.Emit("movsd", "xmm1", "qword [rsp]")
	p.Emit("add", "rsp", "8")
	return "xmm1"
}

func (floatBackend) jcc(op TokenType, when bool) string { return pickJump(floatJumps, op, when) }

func (floatBackend) scanVerb() string  { return "%lf" }
func (floatBackend) printVerb() string { return "%.2f" }
func (floatBackend) zero() string      { return "0.0" }
