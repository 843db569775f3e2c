package utils

import (
	"errors"
	"path/filepath"
	"strings"
)

// SecureJoin joins a caller supplied name onto root and refuses any result
// that lands outside root. Report filenames derive from free-text host labels,
// so every export path goes through here.
func SecureJoin(root, name string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", errors.New("root required")
	}
	cleanRoot := filepath.Clean(root)
	if strings.TrimSpace(name) == "" {
		return cleanRoot, nil
	}
	up := filepath.Clean(name)
	if filepath.IsAbs(up) {
		up = strings.TrimPrefix(up, string(filepath.Separator))
	}
	candidate := filepath.Join(cleanRoot, up)
	rel, err := filepath.Rel(cleanRoot, candidate)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("path escapes root")
	}
	return candidate, nil
}
