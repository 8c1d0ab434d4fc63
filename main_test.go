package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopas/pkg/asm"
)

// copyTestdata copies the named sample programs into a fresh directory and
// returns their new paths.
func copyTestdata(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		src, err := os.ReadFile(filepath.Join("testdata", name))
		require.NoError(t, err)
		paths[i] = filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(paths[i], src, 0o644))
	}
	return paths
}

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunCompilesSamples(t *testing.T) {
	paths := copyTestdata(t, "sum.pas", "classify.pas", "average.pas")

	code, stdout, stderr := runCLI(append([]string{"-verify", "-j", "2"}, paths...)...)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stderr)

	backends := []string{"integer", "integer", "floating-point"}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, len(paths))
	for i, path := range paths {
		out := strings.TrimSuffix(path, ".pas") + ".asm"
		assert.Equal(t, "compiled "+path+" -> "+out+" ("+backends[i]+" backend)", lines[i])

		text, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.NoError(t, asm.Verify(string(text)))
		assert.True(t, strings.HasPrefix(string(text), "global main\n"))
	}
}

func TestRunOutputFlag(t *testing.T) {
	paths := copyTestdata(t, "sum.pas")
	out := filepath.Join(t.TempDir(), "custom.s")

	code, stdout, _ := runCLI("-o", out, paths[0])
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "-> "+out)

	text, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(text), "call scanf")
	assert.Contains(t, string(text), "call printf")
}

func TestRunUsageErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
		want string
	}{
		{"no inputs", nil, "nothing to do"},
		{"output with many inputs", []string{"-o", "x.asm", "a.pas", "b.pas"}, "-o requires exactly one input file"},
		{"unknown flag", []string{"-frobnicate", "a.pas"}, "flag provided but not defined"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(tc.args...)
			assert.Equal(t, 2, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, tc.want)
		})
	}
}

func TestRunReportsDiagnostics(t *testing.T) {
	good := copyTestdata(t, "sum.pas")[0]
	bad := writeSource(t, "bad.pas", "program var dim x , x %\nbegin\n  y ass 1\nend .")

	code, stdout, stderr := runCLI(good, bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "compiled "+good)
	assert.Equal(t, bad+": semantic analysis failed\n"+
		"  multiple variable declaration: x, line 1\n"+
		"  unknown variable: y, line 3\n", stderr)

	_, err := os.Stat(strings.TrimSuffix(bad, ".pas") + ".asm")
	assert.True(t, os.IsNotExist(err), "no output for a failed file")
}

func TestRunSyntaxError(t *testing.T) {
	bad := writeSource(t, "bad.pas", "program var dim x %\nbegin\n  x ass 1\nend")

	code, _, stderr := runCLI(bad)
	assert.Equal(t, 1, code)
	assert.Equal(t, bad+": syntax analysis failed\n"+
		"  no precedence relation between 'end' and 'end of input' (line 4)\n", stderr)
}

func TestRunMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.pas")

	code, stdout, stderr := runCLI(missing)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "failed to read input file")
}

func TestRunDump(t *testing.T) {
	path := copyTestdata(t, "classify.pas")[0]

	code, stdout, _ := runCLI("-dump", path)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "== "+path+"\n-- tokens\n")
	assert.Contains(t, stdout, "-- identifiers\n")
	assert.Contains(t, stdout, "-- postfix\n")
	assert.Contains(t, stdout, "Lexeme: (string) (len=7) \"program\"")
	assert.Contains(t, stdout, "jump if false L0\n")
}

func TestRunVerbose(t *testing.T) {
	path := copyTestdata(t, "sum.pas")[0]

	code, _, stderr := runCLI("-v", path)
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "gopas: "+path+": compiling ")
	assert.Contains(t, stderr, "gopas: "+path+": parse: ok\n")
	assert.Contains(t, stderr, "gopas: "+path+": codegen: integer backend")
}
