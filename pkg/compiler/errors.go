package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInternal marks a violated compiler invariant: a defect in the table
// builder, the postfix generator or the code generator rather than in the
// user's program.
var ErrInternal = errors.New("internal compiler error")

// ErrMixedNumeric is returned by Generate for programs that declare both
// int and float variables; the code generator picks one numeric backend
// per program.
var ErrMixedNumeric = errors.New("mixed int and float declarations are not supported")

func internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// Diagnostic is a recoverable lexical or semantic problem.
type Diagnostic struct {
	Line    int // 1-based, 0 when not tied to a line
	Message string
}

func (d Diagnostic) Error() string {
	if d.Line == 0 {
		return d.Message
	}
	return fmt.Sprintf("%s, line %d", d.Message, d.Line)
}

// SyntaxError is the single fatal error produced by the precedence parser.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s (line %d)", e.Msg, e.Line)
}

// Stage names a pipeline stage.
type Stage int

const (
	StageLex Stage = iota
	StageParse
	StageSemantic
	StagePostfix
	StageCodegen
)

var stageNames = [...]string{
	StageLex:      "lexical analysis",
	StageParse:    "syntax analysis",
	StageSemantic: "semantic analysis",
	StagePostfix:  "postfix generation",
	StageCodegen:  "code generation",
}

func (s Stage) String() string {
	if int(s) >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Error reports why Compile stopped. Diagnostics holds every message of the
// failing stage; Err holds the underlying error for single-error stages.
type Error struct {
	Stage       Stage
	Diagnostics []Diagnostic
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Stage)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, d := range e.Diagnostics {
		b.WriteString("\n  ")
		b.WriteString(d.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Messages returns the human-readable lines of the error, one per
// diagnostic, or the wrapped error when there are none.
func (e *Error) Messages() []string {
	if len(e.Diagnostics) == 0 && e.Err != nil {
		return []string{e.Err.Error()}
	}
	out := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		out = append(out, d.Error())
	}
	return out
}
