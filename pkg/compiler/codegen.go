package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"gopas/pkg/asm"
)

// expr is a node rebuilt from postfix. Leaves hold an operand token;
// inner nodes hold an operator with one (not) or two children.
type expr struct {
	tok         Token
	left, right *expr
	typ         VarType
}

func (e *expr) leaf() bool { return e.left == nil }

// CodeGen lowers a Postfix program to NASM for x86-64 Windows. It walks the
// postfix once, rebuilding expressions on an operand stack, and emits code
// when an expression reaches a sink: an assignment, a conditional jump, or
// a read/output call.
type CodeGen struct {
	ids   *IdTable
	num   backend // numeric backend for the whole program
	logic backend // booleans are always integers
	prog  *asm.Program

	stack     []*expr
	nextLabel LabelID

	formats    map[string]string // "scanf:%lld" -> data name
	formatData []asm.Data
	nIn, nOut  int
	floats     map[string]string // literal value -> data name
	floatData  []asm.Data
}

func newCodeGen(ids *IdTable, num backend) *CodeGen {
	return &CodeGen{
		ids:     ids,
		num:     num,
		logic:   intBackend{},
		prog:    asm.NewProgram("main"),
		formats: make(map[string]string),
		floats:  make(map[string]string),
	}
}

// selectBackend picks the numeric backend for a program: floating-point
// when any variable is float, integer otherwise. Programs declaring both
// int and float variables are rejected with ErrMixedNumeric.
func selectBackend(ids *IdTable) (backend, error) {
	if ids.HasFloat() && ids.HasInt() {
		var ints, floats []string
		for _, name := range ids.Names() {
			id, _ := ids.Lookup(name)
			switch id.Type {
			case TypeInt:
				ints = append(ints, name)
			case TypeFloat:
				floats = append(floats, name)
			}
		}
		return nil, fmt.Errorf("%w (int: %s; float: %s)", ErrMixedNumeric,
			strings.Join(ints, ", "), strings.Join(floats, ", "))
	}
	if ids.HasFloat() {
		return floatBackend{}, nil
	}
	return intBackend{}, nil
}

// Generate returns the assembly text for p. The same inputs always produce
// the same text.
func Generate(p *Postfix, ids *IdTable) (string, error) {
	prog, err := GenerateProgram(p, ids)
	if err != nil {
		return "", err
	}
	return prog.Render(), nil
}

// GenerateProgram is like Generate but returns the program model.
func GenerateProgram(p *Postfix, ids *IdTable) (*asm.Program, error) {
	num, err := selectBackend(ids)
	if err != nil {
		return nil, err
	}
	cg := newCodeGen(ids, num)
	cg.nextLabel = p.MaxLabel() + 1

	for _, t := range p.Items {
		if err := cg.item(p, t); err != nil {
			return nil, err
		}
	}
	if len(cg.stack) != 0 {
		return nil, internalf("%d operands left after code generation", len(cg.stack))
	}

	cg.prog.Emit("xor", "eax", "eax")
	cg.prog.Emit("ret")
	cg.layoutData()
	return cg.prog, nil
}

func (cg *CodeGen) push(e *expr) { cg.stack = append(cg.stack, e) }

func (cg *CodeGen) pop(at Token) (*expr, error) {
	if len(cg.stack) == 0 {
		return nil, internalf("operand stack empty at %s (line %d)", at.Type, at.Line)
	}
	e := cg.stack[len(cg.stack)-1]
	cg.stack = cg.stack[:len(cg.stack)-1]
	return e, nil
}

func (cg *CodeGen) fresh() string {
	id := cg.nextLabel
	cg.nextLabel++
	return labelName(id)
}

// requireEmpty guards statement boundaries.
func (cg *CodeGen) requireEmpty(at Token) error {
	if len(cg.stack) != 0 {
		return internalf("%d dangling operands before %s (line %d)", len(cg.stack), at.Type, at.Line)
	}
	return nil
}

func (cg *CodeGen) item(p *Postfix, t Token) error {
	switch {
	case t.Type.IsOperand():
		leaf, err := cg.leaf(t)
		if err != nil {
			return err
		}
		cg.push(leaf)

	case t.Type == NOT:
		x, err := cg.pop(t)
		if err != nil {
			return err
		}
		if x.typ != TypeBool {
			return typeError(t, "operand of not must be bool, got %s", x.typ)
		}
		cg.push(&expr{tok: t, left: x, typ: TypeBool})

	case t.Type.IsArithmetic(), t.Type.IsRelational(), t.Type == AND, t.Type == OR:
		r, err := cg.pop(t)
		if err != nil {
			return err
		}
		l, err := cg.pop(t)
		if err != nil {
			return err
		}
		e, err := cg.binary(t, l, r)
		if err != nil {
			return err
		}
		cg.push(e)

	case t.Type == ASS:
		return cg.assign(t)

	case t.Type == READ, t.Type == OUTPUT:
		return cg.io(t)

	case t.Type == LABEL:
		if err := cg.requireEmpty(t); err != nil {
			return err
		}
		cg.prog.Label(labelName(t.Target))

	case t.Type == JUMP:
		if _, ok := p.Resolve(t); !ok {
			return internalf("jump to undefined label %s", labelName(t.Target))
		}
		target := labelName(t.Target)
		if t.Lexeme == JumpAlways {
			if err := cg.requireEmpty(t); err != nil {
				return err
			}
			cg.prog.Emit("jmp", target)
			return nil
		}
		cond, err := cg.pop(t)
		if err != nil {
			return err
		}
		if err := cg.requireEmpty(t); err != nil {
			return err
		}
		return cg.genCond(cond, t.Lexeme == JumpIfTrue, target)

	default:
		return internalf("unexpected %s in postfix", t.Type)
	}
	return nil
}

func typeError(at Token, format string, args ...any) error {
	return Diagnostic{Line: at.Line, Message: fmt.Sprintf(format, args...)}
}

// leaf types an operand. Number literals take the program's numeric type;
// a literal with a fraction is an error in an integer program.
func (cg *CodeGen) leaf(t Token) (*expr, error) {
	e := &expr{tok: t}
	switch t.Type {
	case IDENTIFIER:
		id, ok := cg.ids.Lookup(t.Lexeme)
		if !ok || id.Type == TypeUnknown {
			return nil, internalf("variable %s has no type", t.Lexeme)
		}
		e.typ = id.Type
	case BOOL:
		e.typ = TypeBool
	case NUMBER:
		e.typ = cg.num.Kind()
		if e.typ == TypeInt {
			if strings.Contains(t.Lexeme, ".") {
				return nil, typeError(t, "floating literal %s in an integer program", t.Lexeme)
			}
			if _, err := strconv.ParseInt(t.Lexeme, 10, 32); err != nil {
				return nil, typeError(t, "integer literal %s out of range", t.Lexeme)
			}
		}
	}
	return e, nil
}

func (cg *CodeGen) binary(op Token, l, r *expr) (*expr, error) {
	numeric := cg.num.Kind()
	e := &expr{tok: op, left: l, right: r}
	switch {
	case op.Type.IsArithmetic():
		if l.typ != numeric || r.typ != numeric {
			return nil, typeError(op, "operator %s needs %s operands, got %s and %s", op.Lexeme, numeric, l.typ, r.typ)
		}
		e.typ = numeric
	case op.Type.IsRelational():
		ordered := op.Type != EQUALS && op.Type != NOT_EQ
		if l.typ != r.typ || ordered && l.typ == TypeBool {
			return nil, typeError(op, "cannot compare %s %s %s", l.typ, op.Lexeme, r.typ)
		}
		e.typ = TypeBool
	default:
		if l.typ != TypeBool || r.typ != TypeBool {
			return nil, typeError(op, "operator %s needs bool operands, got %s and %s", op.Lexeme, l.typ, r.typ)
		}
		e.typ = TypeBool
	}
	return e, nil
}

func (cg *CodeGen) backendFor(t VarType) backend {
	if t == TypeFloat {
		return cg.num
	}
	return cg.logic
}

func varName(name string) string { return "var_" + name }
func mem(name string) string     { return "qword [rel " + name + "]" }

// operand returns the assembly operand for a leaf.
func (cg *CodeGen) operand(e *expr) string {
	switch e.tok.Type {
	case IDENTIFIER:
		return mem(varName(e.tok.Lexeme))
	case BOOL:
		if e.tok.Lexeme == "true" {
			return "1"
		}
		return "0"
	}
	if e.typ == TypeFloat {
		return mem(cg.floatConst(e.tok.Lexeme))
	}
	return e.tok.Lexeme
}

// floatConst returns the data name holding a float literal, defining it on
// first use.
func (cg *CodeGen) floatConst(lexeme string) string {
	v, _ := strconv.ParseFloat(lexeme, 64)
	text := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(text, ".eE") {
		text += ".0"
	}
	if name, ok := cg.floats[text]; ok {
		return name
	}
	name := fmt.Sprintf("float_%d", len(cg.floatData))
	cg.floats[text] = name
	cg.floatData = append(cg.floatData, asm.Data{Name: name, Directive: "dq", Values: []string{text}})
	return name
}

// genValue leaves the value of e in the accumulator of its backend.
func (cg *CodeGen) genValue(e *expr) {
	b := cg.backendFor(e.typ)
	switch {
	case e.leaf():
		b.load(cg.prog, cg.operand(e))

	case e.tok.Type.IsArithmetic():
		cg.genOperands(b, e, func(src string) { b.arith(cg.prog, e.tok.Type, src) })

	case e.tok.Type.IsRelational():
		jump := cg.genCompare(e, true)
		cg.prog.Emit(setcc(jump), "al")
		cg.prog.Emit("movzx", "rax", "al")

	case e.tok.Type == NOT:
		cg.genValue(e.left)
		cg.prog.Emit("xor", "rax", "1")

	default: // and, or
		cg.genOperands(b, e, func(src string) { cg.prog.Emit(e.tok.Lexeme, "rax", src) })
	}
}

// genOperands evaluates both children of e and calls apply with the right
// operand while the left one is in the accumulator. A leaf on the right is
// used in place; anything else is computed first and spilled.
func (cg *CodeGen) genOperands(b backend, e *expr, apply func(src string)) {
	if e.right.leaf() {
		cg.genValue(e.left)
		apply(cg.operand(e.right))
		return
	}
	cg.genValue(e.right)
	b.spill(cg.prog)
	cg.genValue(e.left)
	apply(b.restore(cg.prog))
}

// genCompare emits the comparison of e and returns the jump mnemonic taken
// when the comparison evaluates to when.
func (cg *CodeGen) genCompare(e *expr, when bool) string {
	b := cg.backendFor(e.left.typ)
	cg.genOperands(b, e, func(src string) { b.compare(cg.prog, src) })
	return b.jcc(e.tok.Type, when)
}

// genCond jumps to target when e evaluates to when and falls through
// otherwise. and/or/not never materialise a value: each operand jumps
// directly, with a fresh label for the fall-through case.
func (cg *CodeGen) genCond(e *expr, when bool, target string) error {
	switch {
	case e.typ == TypeFloat:
		return typeError(e.tok, "condition must be bool, got float")

	case !e.leaf() && e.tok.Type.IsRelational():
		cg.prog.Emit(cg.genCompare(e, when), target)

	case !e.leaf() && e.tok.Type == NOT:
		return cg.genCond(e.left, !when, target)

	case !e.leaf() && (e.tok.Type == AND && when || e.tok.Type == OR && !when):
		// both operands must agree with when: bail out on the first that doesn't
		skip := cg.fresh()
		if err := cg.genCond(e.left, !when, skip); err != nil {
			return err
		}
		if err := cg.genCond(e.right, when, target); err != nil {
			return err
		}
		cg.prog.Label(skip)

	case !e.leaf() && (e.tok.Type == AND || e.tok.Type == OR):
		// either operand agreeing with when decides
		if err := cg.genCond(e.left, when, target); err != nil {
			return err
		}
		return cg.genCond(e.right, when, target)

	case e.tok.Type == BOOL:
		if (e.tok.Lexeme == "true") == when {
			cg.prog.Emit("jmp", target)
		}

	case e.tok.Type == IDENTIFIER:
		cg.prog.Emit("cmp", cg.operand(e), "0")
		cg.prog.Emit(pickJump(intJumps, NOT_EQ, when), target)

	default:
		cg.genValue(e)
		cg.prog.Emit("test", "rax", "rax")
		cg.prog.Emit(pickJump(intJumps, NOT_EQ, when), target)
	}
	return nil
}

func (cg *CodeGen) assign(t Token) error {
	value, err := cg.pop(t)
	if err != nil {
		return err
	}
	dst, err := cg.pop(t)
	if err != nil {
		return err
	}
	if err := cg.requireEmpty(t); err != nil {
		return err
	}
	if !dst.leaf() || dst.tok.Type != IDENTIFIER {
		return internalf("assignment target is not a variable (line %d)", t.Line)
	}
	if dst.typ != value.typ {
		return typeError(t, "cannot assign %s to %s variable %s", value.typ, dst.typ, dst.tok.Lexeme)
	}

	target := mem(varName(dst.tok.Lexeme))
	if value.leaf() && value.tok.Type != IDENTIFIER && value.typ != TypeFloat {
		cg.prog.Emit("mov", target, cg.operand(value))
		return nil
	}
	cg.genValue(value)
	cg.backendFor(value.typ).store(cg.prog, target)
	return nil
}

// argRegs are the Win64 integer argument registers after rcx.
var argRegs = [...]string{"rdx", "r8", "r9"}

// io lowers read and output to scanf and printf calls. All operands on the
// stack are the argument list. Arguments beyond the third go to the stack
// above the 32-byte shadow space; the frame keeps rsp 16-byte aligned at
// the call.
func (cg *CodeGen) io(t Token) error {
	args := cg.stack
	cg.stack = nil
	if len(args) == 0 {
		return internalf("%s without arguments (line %d)", t.Lexeme, t.Line)
	}

	fn, byAddress := "printf", false
	if t.Type == READ {
		fn, byAddress = "scanf", true
	}

	verbs := make([]string, len(args))
	for i, a := range args {
		if !a.leaf() || a.tok.Type != IDENTIFIER {
			return internalf("%s argument %d is not a variable (line %d)", t.Lexeme, i+1, t.Line)
		}
		b := cg.backendFor(a.typ)
		if byAddress {
			verbs[i] = b.scanVerb()
		} else {
			verbs[i] = b.printVerb()
		}
	}
	format := cg.format(fn, strings.Join(verbs, " "))

	extra := 0
	if len(args) > len(argRegs) {
		extra = len(args) - len(argRegs)
	}
	frame := 32 + 8*extra
	if frame%16 == 0 {
		frame += 8
	}

	p := cg.prog
	p.Extern(fn)
	p.Emit("sub", "rsp", strconv.Itoa(frame))
	p.Emit("lea", "rcx", "[rel "+format+"]")
	for i, a := range args {
		name := varName(a.tok.Lexeme)
		reg := "rax"
		if i < len(argRegs) {
			reg = argRegs[i]
		}
		if byAddress {
			p.Emit("lea", reg, "[rel "+name+"]")
		} else {
			p.Emit("mov", reg, mem(name))
			if a.typ == TypeFloat && i < len(argRegs) {
				p.Emit("movq", fmt.Sprintf("xmm%d", i+1), reg)
			}
		}
		if i >= len(argRegs) {
			p.Emit("mov", fmt.Sprintf("qword [rsp+%d]", 32+8*(i-len(argRegs))), "rax")
		}
	}
	p.Emit("call", fn)
	p.Emit("add", "rsp", strconv.Itoa(frame))
	return nil
}

// format returns the data name of a format string, defining it the first
// time a call of that shape is seen.
func (cg *CodeGen) format(fn, verbs string) string {
	key := fn + ":" + verbs
	if name, ok := cg.formats[key]; ok {
		return name
	}
	var d asm.Data
	if fn == "scanf" {
		d = asm.Data{Name: fmt.Sprintf("format_in%d", cg.nIn), Directive: "db", Values: []string{asm.Quote(verbs), "0"}}
		cg.nIn++
	} else {
		d = asm.Data{Name: fmt.Sprintf("format_out%d", cg.nOut), Directive: "db", Values: []string{asm.Quote(verbs), "10", "0"}}
		cg.nOut++
	}
	cg.formats[key] = d.Name
	cg.formatData = append(cg.formatData, d)
	return d.Name
}

// layoutData fills the data section: format strings, float constants, then
// one 8-byte cell per variable in declaration order.
func (cg *CodeGen) layoutData() {
	cg.prog.Data = append(cg.prog.Data, cg.formatData...)
	cg.prog.Data = append(cg.prog.Data, cg.floatData...)
	for _, name := range cg.ids.Names() {
		id, _ := cg.ids.Lookup(name)
		cg.prog.Define(varName(name), "dq", cg.backendFor(id.Type).zero())
	}
}
