package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLex(t *testing.T, src string) []Token {
	t.Helper()
	tokens, errs := Lex(src)
	require.Empty(t, errs, "lexing %q", src)
	return tokens
}

func TestParseAccepts(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
	}{
		{"minimal", "program var dim x % begin x ass 1 ; output ( x ) end ."},
		{"trailing semicolon", "program var dim x % begin x ass 1 ; end ."},
		{"if else", `program var dim x , y %
			begin
				read ( x ) ;
				if x > 10 and x < 100 then y ass x * 2 else y ass 0 endif ;
				output ( x , y )
			end .`},
		{"nested if", "program var dim x % begin if x > 0 then if x > 5 then x ass 1 else x ass 2 endif else x ass 3 endif end ."},
		{"block in then", "program var dim x % begin if x = 1 then begin x ass 2 end else x ass 3 endif end ."},
		{"repeat", "program var dim i , s % begin s ass 0 ; i ass 1 ; repeat s ass s + i ; i ass i + 1 until ( i > 10 ) ; output ( s ) end ."},
		{"repeat with or", "program var dim x % begin repeat x ass x - 1 until ( x < 0 or x = 5 ) end ."},
		{"for", "program var dim i % begin i ass 0 ; for ( i ; i < 10 ; i ) begin i ass i + 1 end ; output ( i ) end ."},
		{"for guard only", "program var dim i % begin for ( ; i < 10 ; ) begin i ass i + 1 end end ."},
		{"for forever", "program var dim x % begin for ( ; ; ) begin x ass x + 1 end end ."},
		{"floats", "program var dim a , b ! begin read ( a , b ) ; a ass a * 2.5 + b ; output ( a ) end ."},
		{"bools", "program var dim p , q $ begin p ass true ; q ass not p or q ; output ( p , q ) end ."},
		{"parentheses", "program var dim x % begin x ass ( x + 1 ) * ( x - 2 ) / 3 end ."},
		{"negative literal", "program var dim x % begin x ass -5 ; output ( x ) end ."},
		{"not of group", "program var dim x , y % begin if not ( x > 1 ) then y ass 1 else y ass 2 endif end ."},
		{"five arguments", "program var dim a , b , c , d , e % begin read ( a , b , c , d , e ) ; output ( a , b , c , d , e ) end ."},
		{"leading block", "program var dim x % begin begin x ass 1 end ; x ass 2 end ."},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.NoError(t, Parse(mustLex(t, tc.src)))
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		msg  string
	}{
		{
			name: "missing dot",
			src:  "program var dim x % begin x ass 1 ; output ( x ) end",
			msg:  "no precedence relation between 'end' and 'end of input'",
		},
		{
			name: "dangling operator",
			src:  "program var dim x % begin x ass x + end .",
			msg:  "no grammar rule for reduction of 'E +'",
		},
		{
			name: "missing semicolon",
			src:  "program var dim x % begin x ass 1 x ass 2 end .",
			msg:  "no precedence relation between '1' and 'x'",
		},
		{
			name: "empty body",
			src:  "program var dim x % begin end .",
			msg:  "no grammar rule for reduction of 'program var E begin end .'",
		},
		{
			name: "trailing tokens",
			src:  "program var dim x % begin x ass 1 end . x",
			msg:  "no precedence relation between '.' and 'x'",
		},
		{
			name: "chained connectives",
			src:  "program var dim p , q $ begin q ass not p or p and q end .",
			msg:  "no precedence relation between 'or' and 'and'",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := Parse(mustLex(t, tc.src))
			require.Error(t, err)

			var syn *SyntaxError
			require.True(t, errors.As(err, &syn), "want *SyntaxError, got %T", err)
			assert.Equal(t, tc.msg, syn.Msg)
			assert.Equal(t, 1, syn.Line)
		})
	}
}

func TestParseErrorLine(t *testing.T) {
	src := "program var\ndim x %\nbegin\n  x ass 1\n  x ass 2\nend ."
	err := Parse(mustLex(t, src))

	var syn *SyntaxError
	require.True(t, errors.As(err, &syn))
	assert.Equal(t, 5, syn.Line)
	assert.Equal(t, "no precedence relation between '1' and 'x' (line 5)", syn.Error())
}

func TestParserReuse(t *testing.T) {
	p := NewParser(nil)
	good := mustLex(t, "program var dim x % begin x ass 1 end .")
	bad := mustLex(t, "program var dim x % begin x ass 1 end")

	assert.NoError(t, p.Parse(good))
	assert.Error(t, p.Parse(bad))
	assert.NoError(t, p.Parse(good))
}

func TestParseEmptyInput(t *testing.T) {
	err := Parse(nil)
	var syn *SyntaxError
	require.True(t, errors.As(err, &syn))
	assert.Equal(t, "no precedence relation between 'start of input' and 'end of input'", syn.Msg)
}
