// Command stages prints every intermediate product of the compiler for one
// program: tokens, the precedence relations the parser used, identifiers,
// postfix before and after label collapse, and the generated assembly.
package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"gopas/pkg/compiler"
)

const testSource = `program var
dim x, y %
begin
  read(x);
  if x > 10 and x < 100 then y ass x * 2 else y ass 0 endif;
  output(x, y)
end.
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}

	fmt.Printf("Source:\n%s\n", src)

	// Lex
	tokens, diags := compiler.Lex(src)
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, "lex error:", d)
		}
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	// Parse
	table := compiler.DefaultTable()
	if err := compiler.NewParser(table).Parse(tokens); err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}
	fmt.Println("Relations used")
	for i := 1; i < len(tokens); i++ {
		a, b := tokens[i-1], tokens[i]
		if r := table.Relation(a.Type, b.Type); r != compiler.NoRelation {
			fmt.Printf("  %-8s %s %s\n", a.Lexeme, r, b.Lexeme)
		}
	}
	fmt.Println()

	// Semantic check
	ids, diags := compiler.Check(tokens)
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, "semantic error:", d)
		}
		os.Exit(1)
	}
	fmt.Println("Identifiers")
	for _, name := range ids.Names() {
		id, _ := ids.Lookup(name)
		fmt.Printf("  %-10s %s\n", name, id.Type)
	}
	fmt.Println()

	// Postfix
	post, err := compiler.GeneratePostfix(tokens)
	if err != nil {
		fmt.Fprintln(os.Stderr, "postfix error:", err)
		os.Exit(1)
	}
	fmt.Println("Postfix")
	fmt.Print(post)
	fmt.Println()

	collapsed, err := compiler.CollapseLabels(post)
	if err != nil {
		fmt.Fprintln(os.Stderr, "postfix error:", err)
		os.Exit(1)
	}
	fmt.Println("Label table")
	spew.Dump(collapsed.Labels)
	fmt.Println()

	// code Generation
	asm, err := compiler.Generate(collapsed, ids)
	if err != nil {
		fmt.Fprintln(os.Stderr, "codegen error:", err)
		os.Exit(1)
	}

	fmt.Println("Generated Assembly")
	fmt.Print(asm)
}
