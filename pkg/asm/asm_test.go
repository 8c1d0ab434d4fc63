package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelperFunctions(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"abc", true},
		{"_abc", true},
		{"var_x1", true},
		{"1abc", false},
		{"", false},
		{"ab-c", false},
	} {
		assert.Equal(t, tc.want, isIdentifier(tc.input), "isIdentifier(%q)", tc.input)
	}

	assert.Equal(t, "\tmov rax, 1", stripComments("\tmov rax, 1; load"))
	assert.Equal(t, `s db "a;b", 0 `, stripComments(`s db "a;b", 0 ; semicolon kept`))

	assert.Equal(t, []string{"rax", "qword [rel x]"}, splitOperands("rax, qword [rel x]"))
	assert.Equal(t, []string{`"%lld %lld"`, "10", "0"}, splitOperands(`"%lld %lld", 10, 0`))
	assert.Nil(t, splitOperands(""))
}

func TestParseLine(t *testing.T) {
	for _, tc := range []struct {
		line    string
		want    parsedLine
		wantErr bool
	}{
		{
			line: "mov rax, qword [rel var_x]",
			want: parsedLine{lineNo: 1, mnemonic: "mov", operands: []string{"rax", "qword [rel var_x]"}},
		},
		{
			line: "  add rsp, 40  ; restore",
			want: parsedLine{lineNo: 1, mnemonic: "add", operands: []string{"rsp", "40"}},
		},
		{
			line: "L0: ret",
			want: parsedLine{lineNo: 1, labels: []string{"L0"}, mnemonic: "ret"},
		},
		{
			line: "A: B: cqo",
			want: parsedLine{lineNo: 1, labels: []string{"A", "B"}, mnemonic: "cqo"},
		},
		{
			line: "L3:",
			want: parsedLine{lineNo: 1, labels: []string{"L3"}},
		},
		{
			line: "MOV RAX, 1",
			want: parsedLine{lineNo: 1, mnemonic: "mov", operands: []string{"RAX", "1"}},
		},
		{
			line: "   ; only a comment",
			want: parsedLine{lineNo: 1},
		},
		{
			line:    "1L: ret",
			wantErr: true,
		},
	} {
		t.Run(tc.line, func(t *testing.T) {
			got, err := parseLine(tc.line, 1)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// program wraps extra data definitions and instructions in a minimal
// module that passes verification on its own.
func program(data, text string) string {
	return "global main\n" +
		"extern printf\n" +
		"\n" +
		"section .data\n" +
		"fmt db \"%lld\", 10, 0\n" +
		"var_x dq 0\n" +
		"pi dq 3.14\n" +
		data +
		"\n" +
		"section .text\n" +
		"main:\n" +
		text +
		"\txor eax, eax\n" +
		"\tret\n"
}

func TestVerifyAccepts(t *testing.T) {
	code := program("var_y dq -1\n", ""+
		"\tmov rax, qword [rel var_x]\n"+
		"\tadd rax, 5\n"+
		"\tmov qword [rel var_y], rax\n"+
		"\tcmp rax, qword [rel var_y]\n"+
		"\tjle L1\n"+
		"\tsetg al\n"+
		"\tmovzx rax, al\n"+
		"L1:\n"+
		"\tpush rax\n"+
		"\tpop rcx\n"+
		"\tcqo\n"+
		"\tidiv rcx\n"+
		"\tmovsd xmm0, qword [rel pi]\n"+
		"\tsub rsp, 8\n"+
		"\tmovsd qword [rsp], xmm0\n"+
		"\tmovsd xmm1, qword [rsp]\n"+
		"\tadd rsp, 8\n"+
		"\tcomisd xmm0, xmm1\n"+
		"\tjae L1\n"+
		"\tsub rsp, 40\n"+
		"\tlea rcx, [rel fmt]\n"+
		"\tmov rdx, qword [rel var_x]\n"+
		"\tmovq xmm1, rdx\n"+
		"\tmov qword [rsp+32], rax ; fifth argument\n"+
		"\tcall printf\n"+
		"\tadd rsp, 40\n")

	assert.NoError(t, Verify(code))
}

func TestVerifyRejects(t *testing.T) {
	for _, tc := range []struct {
		name string
		code string
		want string
	}{
		{"undefined label", program("", "\tjmp L9\n"), "undefined label 'L9' on line 11"},
		{"unknown instruction", program("", "\thlt\n"), "unknown instruction 'hlt'"},
		{"operand count", program("", "\tadd rax\n"), "add expects 2 operands, got 1"},
		{"immediate destination", program("", "\tmov 5, rax\n"), "immediate destination in 'mov'"},
		{"two memory operands", program("", "\tmov qword [rel var_x], qword [rel pi]\n"), "two memory operands"},
		{"undefined data", program("", "\tmov rax, qword [rel nope]\n"), "undefined data symbol 'nope'"},
		{"undeclared call", program("", "\tcall puts\n"), "call to undeclared symbol 'puts'"},
		{"setcc register", program("", "\tsete rax\n"), "sete expects a byte register"},
		{"duplicate label", program("", "L0:\nL0:\n"), "duplicate symbol 'L0' on line 12 (first defined on line 11)"},
		{"label shadows data", program("", "var_x:\n"), "duplicate symbol 'var_x'"},
		{"lea register", program("", "\tlea rax, rcx\n"), "lea needs a memory source"},
		{"unsupported address", program("", "\tmov rax, qword [rbx]\n"), "unsupported address 'rbx'"},
		{"negative displacement", program("", "\tmov rax, qword [rsp+-8]\n"), "invalid displacement"},
		{"bare symbol", program("", "\tmov rax, var_x\n"), "invalid operand 'var_x'"},
		{"bad dq", program("bad dq abc\n", ""), "invalid dq value 'abc'"},
		{"bad db", program("big db 300\n", ""), "invalid db value '300'"},
		{"unterminated string", program("s db \"abc\n", ""), "unterminated string"},
		{"bad directive", program("w dw 1\n", ""), "invalid data definition on line 8"},
		{"unknown section", "section .bss\n", "unknown section '.bss'"},
		{"label in data", "section .data\nL0:\n", "label 'L0' outside the text section"},
		{"no section", "mov rax, 1\n", "instruction outside any section on line 1"},
		{"missing entry", "global main\nsection .text\nstart:\n\tret\n", "global 'main' is never defined"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := Verify(tc.code)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestProgramRender(t *testing.T) {
	p := NewProgram("main")
	p.Extern("scanf")
	p.Extern("printf")
	p.Extern("scanf")
	p.Define("format_in0", "db", Quote("%lld"), "0")
	p.Define("var_n", "dq", "0")
	p.Emit("sub", "rsp", "40")
	p.Emit("lea", "rcx", "[rel format_in0]")
	p.Emit("lea", "rdx", "[rel var_n]")
	p.Emit("call", "scanf")
	p.Emit("add", "rsp", "40")
	p.Label("L0")
	p.Emit("jmp", "L0")

	want := "global main\n" +
		"extern scanf\n" +
		"extern printf\n" +
		"\n" +
		"section .data\n" +
		"format_in0 db \"%lld\", 0\n" +
		"var_n dq 0\n" +
		"\n" +
		"section .text\n" +
		"main:\n" +
		"\tsub rsp, 40\n" +
		"\tlea rcx, [rel format_in0]\n" +
		"\tlea rdx, [rel var_n]\n" +
		"\tcall scanf\n" +
		"\tadd rsp, 40\n" +
		"L0:\n" +
		"\tjmp L0\n"
	assert.Equal(t, want, p.Render())
	assert.NoError(t, Verify(p.Render()))
}

func TestInstrString(t *testing.T) {
	assert.Equal(t, "L4:", Instr{Label: "L4"}.String())
	assert.Equal(t, "\tret", Instr{Op: "ret"}.String())
	assert.Equal(t, "\tcmp rax, 1", Instr{Op: "cmp", Operands: []string{"rax", "1"}}.String())
	assert.Equal(t, "var_a dq 0.0", Data{Name: "var_a", Directive: "dq", Values: []string{"0.0"}}.String())
}
