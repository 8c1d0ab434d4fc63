package utils

import (
	"path/filepath"
	"strings"
)

// AsmExt is the extension of generated assembly files.
const AsmExt = ".asm"

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// OutputPath returns the assembly path for a source file: the same
// directory and base name with the extension replaced by .asm. A source
// that already ends in .asm gets .out.asm so it is never overwritten.
func OutputPath(srcPath string) string {
	ext := filepath.Ext(srcPath)
	base := strings.TrimSuffix(srcPath, ext)
	if strings.EqualFold(ext, AsmExt) {
		return base + ".out" + AsmExt
	}
	return base + AsmExt
}
