// Package utils contains utility types for logging and filesystem path
// management used throughout hostreport.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths resolves and manages filesystem locations used by hostreport.
type Paths struct {
	RootPath string `json:"root_path" yaml:"root_path"`
}

// NewPaths constructs Paths rooted at the specified directory.
func NewPaths(rootPath string) *Paths {
	return &Paths{RootPath: rootPath}
}

// LogsDir returns the logs directory.
func (p *Paths) LogsDir() string {
	return filepath.Join(p.RootPath, "logs")
}

// ExportsDir returns the default directory for one-shot report exports.
func (p *Paths) ExportsDir() string {
	return filepath.Join(p.RootPath, "exports")
}

// LogFile returns the main hostreport log file path.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogsDir(), "hostreport.log")
}

// CheckRoot verifies that the root and logs directories exist.
func (p *Paths) CheckRoot() bool {
	for _, dir := range []string{p.RootPath, p.LogsDir()} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// DeployRoot creates the directory structure (idempotent).
func (p *Paths) DeployRoot(logger *Logger) {
	mkdirLog := func(path, label string) {
		_ = os.MkdirAll(path, 0o755)
		if logger != nil {
			logger.Write(fmt.Sprintf("Creating %s path: %s", label, path))
		}
	}

	mkdirLog(p.RootPath, "root")
	mkdirLog(p.LogsDir(), "logs")
	mkdirLog(p.ExportsDir(), "exports")
}
