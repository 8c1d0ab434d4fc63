package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPathInfo(t *testing.T) {
	full, dir, err := GetPathInfo(filepath.Join("progs", "..", "progs", "sum.pas"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(full))
	assert.Equal(t, "sum.pas", filepath.Base(full))
	assert.Equal(t, "progs", filepath.Base(dir))
	assert.Equal(t, dir, filepath.Dir(full))
}

func TestOutputPath(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"sum.pas", "sum.asm"},
		{filepath.Join("progs", "loop.txt"), filepath.Join("progs", "loop.asm")},
		{"noext", "noext.asm"},
		{"already.asm", "already.out.asm"},
		{"UPPER.ASM", "UPPER.out.asm"},
		{filepath.Join("a.b", "prog"), filepath.Join("a.b", "prog.asm")},
	} {
		assert.Equal(t, tc.want, OutputPath(tc.in), tc.in)
	}
}
