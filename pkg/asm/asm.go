package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// operandCounts lists the mnemonics the verifier accepts and how many
// operands each takes.
var operandCounts = map[string]int{
	"ret": 0,
	"cqo": 0,

	"push": 1,
	"pop":  1,
	"idiv": 1,
	"call": 1,

	"mov":    2,
	"movzx":  2,
	"movq":   2,
	"movsd":  2,
	"lea":    2,
	"add":    2,
	"sub":    2,
	"imul":   2,
	"and":    2,
	"or":     2,
	"xor":    2,
	"cmp":    2,
	"test":   2,
	"addsd":  2,
	"subsd":  2,
	"mulsd":  2,
	"divsd":  2,
	"comisd": 2,
}

// jumps are the branch mnemonics; each takes one label operand.
var jumps = map[string]bool{
	"jmp": true,
	"je":  true, "jne": true,
	"jl": true, "jle": true, "jg": true, "jge": true,
	"jb": true, "jbe": true, "ja": true, "jae": true,
}

// setcc mnemonics take one byte register.
var sets = map[string]bool{
	"sete": true, "setne": true,
	"setl": true, "setle": true, "setg": true, "setge": true,
	"setb": true, "setbe": true, "seta": true, "setae": true,
}

var registers = func() map[string]bool {
	m := map[string]bool{
		"rax": true, "rbx": true, "rcx": true, "rdx": true,
		"rsi": true, "rdi": true, "rsp": true, "rbp": true,
		"eax": true, "al": true, "cl": true,
	}
	for i := 8; i <= 15; i++ {
		m[fmt.Sprintf("r%d", i)] = true
	}
	for i := 0; i <= 15; i++ {
		m[fmt.Sprintf("xmm%d", i)] = true
	}
	return m
}()

type section int

const (
	sectionNone section = iota
	sectionData
	sectionText
)

// Verifier checks NASM text produced by the compiler. It is a two-pass
// check: the first pass collects labels, data symbols and externs, the
// second validates every instruction against them.
type Verifier struct {
	labels  map[string]int // label -> defining line
	data    map[string]int
	externs map[string]bool
	globals []string
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewVerifier() *Verifier {
	return &Verifier{
		labels:  make(map[string]int),
		data:    make(map[string]int),
		externs: make(map[string]bool),
	}
}

// Verify checks code with a fresh Verifier.
func Verify(code string) error {
	return NewVerifier().Verify(code)
}

func (v *Verifier) Verify(code string) error {
	lines := strings.Split(code, "\n")

	if err := v.pass1(lines); err != nil {
		return err
	}
	return v.pass2(lines)
}

func (v *Verifier) define(table map[string]int, name string, lineNo int) error {
	if !isIdentifier(name) {
		return fmt.Errorf("invalid symbol '%s' on line %d", name, lineNo)
	}
	if prev, ok := v.labels[name]; ok {
		return fmt.Errorf("duplicate symbol '%s' on line %d (first defined on line %d)", name, lineNo, prev)
	}
	if prev, ok := v.data[name]; ok {
		return fmt.Errorf("duplicate symbol '%s' on line %d (first defined on line %d)", name, lineNo, prev)
	}
	table[name] = lineNo
	return nil
}

func (v *Verifier) pass1(lines []string) error {
	sec := sectionNone

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		switch p.mnemonic {
		case "section":
			if len(p.operands) != 1 {
				return fmt.Errorf("section expects one operand on line %d", lineNo)
			}
			switch p.operands[0] {
			case ".data":
				sec = sectionData
			case ".text":
				sec = sectionText
			default:
				return fmt.Errorf("unknown section '%s' on line %d", p.operands[0], lineNo)
			}
			continue
		case "global":
			v.globals = append(v.globals, p.operands...)
			continue
		case "extern":
			for _, e := range p.operands {
				v.externs[e] = true
			}
			continue
		}

		if sec == sectionData && p.mnemonic != "" {
			// "name db ..." has no colon; the name parses as the mnemonic.
			fields := strings.Fields(stripComments(raw))
			if len(fields) < 3 || (fields[1] != "db" && fields[1] != "dq") {
				return fmt.Errorf("invalid data definition on line %d", lineNo)
			}
			if err := v.define(v.data, fields[0], lineNo); err != nil {
				return err
			}
			continue
		}

		for _, lbl := range p.labels {
			if sec != sectionText {
				return fmt.Errorf("label '%s' outside the text section on line %d", lbl, lineNo)
			}
			if err := v.define(v.labels, lbl, lineNo); err != nil {
				return err
			}
		}
	}

	for _, g := range v.globals {
		if _, ok := v.labels[g]; !ok {
			return fmt.Errorf("global '%s' is never defined", g)
		}
	}
	return nil
}

func (v *Verifier) pass2(lines []string) error {
	sec := sectionNone

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		switch p.mnemonic {
		case "":
			continue
		case "global", "extern":
			continue
		case "section":
			if p.operands[0] == ".data" {
				sec = sectionData
			} else {
				sec = sectionText
			}
			continue
		}

		if sec == sectionData {
			if err := checkData(raw, lineNo); err != nil {
				return err
			}
			continue
		}
		if sec != sectionText {
			return fmt.Errorf("instruction outside any section on line %d", lineNo)
		}

		if err := v.checkInstruction(p); err != nil {
			return err
		}
	}
	return nil
}

func (v *Verifier) checkInstruction(p parsedLine) error {
	m, ops, lineNo := p.mnemonic, p.operands, p.lineNo

	switch {
	case jumps[m]:
		if len(ops) != 1 {
			return fmt.Errorf("%s expects one operand on line %d", m, lineNo)
		}
		if _, ok := v.labels[ops[0]]; !ok {
			return fmt.Errorf("undefined label '%s' on line %d", ops[0], lineNo)
		}
		return nil
	case sets[m]:
		if len(ops) != 1 || ops[0] != "al" && ops[0] != "cl" {
			return fmt.Errorf("%s expects a byte register on line %d", m, lineNo)
		}
		return nil
	case m == "call":
		if len(ops) != 1 {
			return fmt.Errorf("call expects one operand on line %d", lineNo)
		}
		if !v.externs[ops[0]] {
			if _, ok := v.labels[ops[0]]; !ok {
				return fmt.Errorf("call to undeclared symbol '%s' on line %d", ops[0], lineNo)
			}
		}
		return nil
	}

	want, ok := operandCounts[m]
	if !ok {
		return fmt.Errorf("unknown instruction '%s' on line %d", m, lineNo)
	}
	if len(ops) != want {
		return fmt.Errorf("%s expects %d operands, got %d on line %d", m, want, len(ops), lineNo)
	}

	memory := 0
	for i, op := range ops {
		kind, err := v.classify(op, lineNo)
		if err != nil {
			return err
		}
		if kind == operandMemory {
			memory++
		}
		if kind == operandImmediate && i == 0 && len(ops) == 2 {
			return fmt.Errorf("immediate destination in '%s' on line %d", m, lineNo)
		}
	}
	if memory > 1 {
		return fmt.Errorf("%s has two memory operands on line %d", m, lineNo)
	}
	if m == "lea" {
		if k, _ := v.classify(ops[1], lineNo); k != operandMemory {
			return fmt.Errorf("lea needs a memory source on line %d", lineNo)
		}
	}
	return nil
}

type operandKind int

const (
	operandRegister operandKind = iota
	operandMemory
	operandImmediate
)

// classify checks a single operand. Memory operands may be sized
// ("qword [...]") and address either "rel <data symbol>" or rsp with an
// optional positive displacement.
func (v *Verifier) classify(op string, lineNo int) (operandKind, error) {
	if registers[op] {
		return operandRegister, nil
	}
	if _, err := strconv.ParseInt(op, 0, 64); err == nil {
		return operandImmediate, nil
	}

	mem := strings.TrimPrefix(op, "qword ")
	mem = strings.TrimPrefix(mem, "byte ")
	if !strings.HasPrefix(mem, "[") || !strings.HasSuffix(mem, "]") {
		return 0, fmt.Errorf("invalid operand '%s' on line %d", op, lineNo)
	}
	addr := strings.TrimSpace(mem[1 : len(mem)-1])

	if sym, ok := strings.CutPrefix(addr, "rel "); ok {
		sym = strings.TrimSpace(sym)
		if _, ok := v.data[sym]; !ok {
			return 0, fmt.Errorf("undefined data symbol '%s' on line %d", sym, lineNo)
		}
		return operandMemory, nil
	}

	base, disp, hasDisp := strings.Cut(addr, "+")
	if strings.TrimSpace(base) != "rsp" {
		return 0, fmt.Errorf("unsupported address '%s' on line %d", addr, lineNo)
	}
	if hasDisp {
		if n, err := strconv.Atoi(strings.TrimSpace(disp)); err != nil || n < 0 {
			return 0, fmt.Errorf("invalid displacement '%s' on line %d", disp, lineNo)
		}
	}
	return operandMemory, nil
}

// checkData validates the values of a data definition.
func checkData(raw string, lineNo int) error {
	line := strings.TrimSpace(stripComments(raw))
	fields := strings.Fields(line)
	directive := fields[1]
	rest := strings.TrimSpace(line[len(fields[0]):])
	rest = strings.TrimSpace(strings.TrimPrefix(rest, directive))

	for _, val := range splitOperands(rest) {
		switch {
		case directive == "db" && strings.HasPrefix(val, `"`):
			if len(val) < 2 || !strings.HasSuffix(val, `"`) {
				return fmt.Errorf("unterminated string on line %d", lineNo)
			}
		case directive == "dq":
			if _, err := strconv.ParseFloat(val, 64); err != nil {
				return fmt.Errorf("invalid dq value '%s' on line %d", val, lineNo)
			}
		default:
			n, err := strconv.ParseInt(val, 0, 64)
			if err != nil || n < -128 || n > 255 {
				return fmt.Errorf("invalid db value '%s' on line %d", val, lineNo)
			}
		}
	}
	return nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t\"") {
			break
		}
		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	mnemonic, rest, _ := strings.Cut(line, " ")
	p.mnemonic = strings.ToLower(strings.TrimSpace(mnemonic))
	p.operands = splitOperands(strings.TrimSpace(rest))
	return p, nil
}

// splitOperands splits on commas that are outside quotes and brackets.
func splitOperands(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	depth, quoted, start := 0, false, 0
	for i, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			depth++
		case r == ']':
			depth--
		case r == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

// stripComments drops a trailing ';' comment. Semicolons inside string
// literals are kept.
func stripComments(line string) string {
	quoted := false
	for i, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == ';' && !quoted:
			return line[:i]
		}
	}
	return line
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}
