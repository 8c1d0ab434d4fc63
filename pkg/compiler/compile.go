package compiler

import (
	"errors"
	"runtime/debug"
)

// Option configures Compile.
type Option interface{ apply(c *config) }

type config struct {
	logf  func(format string, args ...any)
	table *Table
}

type withLogf func(format string, args ...any)

func (logf withLogf) apply(c *config) { c.logf = logf }

// WithLogf reports one line per pipeline stage to logf.
func WithLogf(logf func(format string, args ...any)) Option { return withLogf(logf) }

type withTable struct{ *Table }

func (t withTable) apply(c *config) { c.table = t.Table }

// WithTable makes the parser use t instead of DefaultTable.
func WithTable(t *Table) Option { return withTable{t} }

func newConfig(opts []Option) *config {
	c := &config{logf: func(string, ...any) {}}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(c)
		}
	}
	if c.table == nil {
		c.table = DefaultTable()
	}
	return c
}

// Result holds every intermediate product of a successful compilation.
type Result struct {
	Tokens   []Token
	Ids      *IdTable
	Postfix  *Postfix
	Backend  string
	Assembly string
}

// Compile runs the whole pipeline on src. Lexical and semantic problems are
// reported together for their stage; the first syntax error stops parsing.
// Any failure is returned as an *Error naming the stage.
func Compile(src string, opts ...Option) (res *Result, err error) {
	c := newConfig(opts)
	stage := StageLex

	defer func() {
		if r := recover(); r != nil {
			c.logf("%s panicked: %v\n%s", stage, r, debug.Stack())
			err = &Error{Stage: stage, Err: internalf("%s panicked: %v", stage, r)}
			res = nil
		}
	}()

	res = &Result{}

	tokens, diags := Lex(src)
	c.logf("lex: %d tokens, %d errors", len(tokens), len(diags))
	if len(diags) > 0 {
		return nil, &Error{Stage: StageLex, Diagnostics: diags}
	}
	res.Tokens = tokens

	stage = StageParse
	if err := NewParser(c.table).Parse(tokens); err != nil {
		c.logf("parse: %v", err)
		return nil, &Error{Stage: StageParse, Err: err}
	}
	c.logf("parse: ok")

	stage = StageSemantic
	ids, diags := Check(tokens)
	c.logf("semantic: %d variables, %d errors", ids.Len(), len(diags))
	if len(diags) > 0 {
		return nil, &Error{Stage: StageSemantic, Diagnostics: diags}
	}
	res.Ids = ids

	stage = StagePostfix
	post, err := GeneratePostfix(tokens)
	if err != nil {
		return nil, &Error{Stage: StagePostfix, Err: err}
	}
	collapsed, err := CollapseLabels(post)
	if err != nil {
		return nil, &Error{Stage: StagePostfix, Err: err}
	}
	c.logf("postfix: %d items, %d labels (%d before collapse)",
		len(collapsed.Items), len(collapsed.Labels), len(post.Labels))
	res.Postfix = collapsed

	stage = StageCodegen
	be, err := selectBackend(ids)
	if err != nil {
		return nil, &Error{Stage: StageCodegen, Err: err}
	}
	res.Backend = be.Name()
	text, err := Generate(collapsed, ids)
	if err != nil {
		var d Diagnostic
		if errors.As(err, &d) {
			return nil, &Error{Stage: StageCodegen, Diagnostics: []Diagnostic{d}}
		}
		return nil, &Error{Stage: StageCodegen, Err: err}
	}
	c.logf("codegen: %s backend, %d bytes", res.Backend, len(text))
	res.Assembly = text

	return res, nil
}
