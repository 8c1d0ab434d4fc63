// Package compiler translates programs of a small Pascal-like language into
// NASM assembly for x86-64 Windows.
//
// Pipeline: source → Lex → Parser.Parse → Check → GeneratePostfix →
// CollapseLabels → Generate → assembly text
//
// The parser is an operator-precedence recogniser whose relation table is
// derived from the grammar by BuildTable.
package compiler
