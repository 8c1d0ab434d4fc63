package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, t := range tokens {
		out[i] = t.Type
	}
	return out
}

func lexemes(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Lexeme
	}
	return out
}

func TestLexStatement(t *testing.T) {
	tokens, errs := Lex("x ass 1 ; output ( x )")
	require.Empty(t, errs)
	assert.Equal(t, []TokenType{
		IDENTIFIER, ASS, NUMBER, SEMICOLON, OUTPUT, LPAREN, IDENTIFIER, RPAREN,
	}, types(tokens))
	assert.Equal(t, []string{"x", "ass", "1", ";", "output", "(", "x", ")"}, lexemes(tokens))
}

func TestLexNegativeLiterals(t *testing.T) {
	for _, tc := range []struct {
		name    string
		src     string
		types   []TokenType
		lexemes []string
	}{
		{
			name:    "after assignment",
			src:     "x ass -5",
			types:   []TokenType{IDENTIFIER, ASS, NUMBER},
			lexemes: []string{"x", "ass", "-5"},
		},
		{
			name:    "at start of input",
			src:     "-7",
			types:   []TokenType{NUMBER},
			lexemes: []string{"-7"},
		},
		{
			name:    "after open paren",
			src:     "(-2.5)",
			types:   []TokenType{LPAREN, NUMBER, RPAREN},
			lexemes: []string{"(", "-2.5", ")"},
		},
		{
			name:    "subtraction stays binary",
			src:     "x-1",
			types:   []TokenType{IDENTIFIER, MINUS, NUMBER},
			lexemes: []string{"x", "-", "1"},
		},
		{
			name:    "after close paren",
			src:     "(x)-1",
			types:   []TokenType{LPAREN, IDENTIFIER, RPAREN, MINUS, NUMBER},
			lexemes: []string{"(", "x", ")", "-", "1"},
		},
		{
			name:    "space between sign and digits",
			src:     "x ass - 3",
			types:   []TokenType{IDENTIFIER, ASS, MINUS, NUMBER},
			lexemes: []string{"x", "ass", "-", "3"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tokens, errs := Lex(tc.src)
			require.Empty(t, errs)
			assert.Equal(t, tc.types, types(tokens))
			assert.Equal(t, tc.lexemes, lexemes(tokens))
		})
	}
}

func TestLexComments(t *testing.T) {
	t.Run("unterminated", func(t *testing.T) {
		tokens, errs := Lex("/* abc")
		assert.Empty(t, tokens)
		require.Len(t, errs, 1)
		assert.Equal(t, Diagnostic{Line: 1, Message: "unclosed comment"}, errs[0])
	})

	t.Run("closed", func(t *testing.T) {
		tokens, errs := Lex("/* a\ncomment */ x")
		assert.Empty(t, errs)
		require.Len(t, tokens, 1)
		assert.Equal(t, Token{Type: IDENTIFIER, Lexeme: "x", Line: 2}, tokens[0])
	})

	t.Run("one error per block", func(t *testing.T) {
		_, errs := Lex("/* one */ x /* two")
		require.Len(t, errs, 1)
		assert.Equal(t, "unclosed comment, line 1", errs[0].Error())
	})
}

func TestLexUnexpectedSymbols(t *testing.T) {
	tokens, errs := Lex("x # @\ny ?")
	assert.Equal(t, []string{"x", "y"}, lexemes(tokens))
	assert.Equal(t, []Diagnostic{
		{Line: 1, Message: "unexpected symbol"},
		{Line: 2, Message: "unexpected symbol"},
	}, errs)
}

func TestLexOperators(t *testing.T) {
	tokens, errs := Lex("a<=b != c>=d<e>f=g")
	require.Empty(t, errs)
	assert.Equal(t, []TokenType{
		IDENTIFIER, LESS_EQ, IDENTIFIER, NOT_EQ, IDENTIFIER, GREATER_EQ,
		IDENTIFIER, LESS, IDENTIFIER, GREATER, IDENTIFIER, EQUALS, IDENTIFIER,
	}, types(tokens))
	assert.Equal(t, "<=", tokens[1].Lexeme)
	assert.Equal(t, "!=", tokens[3].Lexeme)
}

func TestLexNumbers(t *testing.T) {
	tokens, errs := Lex("1.5 2. 30")
	require.Empty(t, errs)
	assert.Equal(t, []TokenType{NUMBER, NUMBER, DOT, NUMBER}, types(tokens))
	assert.Equal(t, []string{"1.5", "2", ".", "30"}, lexemes(tokens))
}

func TestLexKeywords(t *testing.T) {
	tokens, errs := Lex("program var dim begin end true false Begin x1")
	require.Empty(t, errs)
	assert.Equal(t, []TokenType{
		PROGRAM, VAR, DIM, BEGIN, END, BOOL, BOOL, IDENTIFIER, IDENTIFIER,
	}, types(tokens))
}

func TestLexLines(t *testing.T) {
	tokens, _ := Lex("program var\n\ndim x %\nbegin")
	lines := make([]int, len(tokens))
	for i, tok := range tokens {
		lines[i] = tok.Line
	}
	assert.Equal(t, []int{1, 1, 3, 3, 3, 4}, lines)
}

func TestTokenEqual(t *testing.T) {
	a := Token{Type: IDENTIFIER, Lexeme: "x", Line: 1}
	b := Token{Type: IDENTIFIER, Lexeme: "x", Line: 9}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Token{Type: IDENTIFIER, Lexeme: "y"}))
	assert.True(t, EqualTokens([]Token{a}, []Token{b}))
	assert.False(t, EqualTokens([]Token{a}, nil))
}

func TestTokenCategories(t *testing.T) {
	assert.True(t, NUMBER.IsOperand())
	assert.True(t, BOOL.IsOperand())
	assert.False(t, ASS.IsOperand())
	assert.True(t, SLASH.IsArithmetic())
	assert.True(t, GREATER_EQ.IsRelational())
	assert.False(t, AND.IsRelational())
	assert.True(t, NOT.IsLogical())
	assert.True(t, DOLLAR.IsTypeMarker())
	assert.False(t, TokenType(-1).IsOperand())
	assert.Equal(t, "NOT_EQ", NOT_EQ.String())
	assert.Equal(t, "TokenType(99)", TokenType(99).String())
}
