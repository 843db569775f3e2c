package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// Logger writes timestamped lines to a log file, or stdout when the file
// cannot be opened.
type Logger struct {
	mu        sync.Mutex
	writeFile *os.File
	out       io.Writer
}

// defaultLogPath places the log next to the running executable.
func defaultLogPath() string {
	exe, err := os.Executable()
	if err == nil {
		if resolved, rerr := filepath.EvalSymlinks(exe); rerr == nil && resolved != "" {
			exe = resolved
		}
		return NewPaths(filepath.Dir(exe)).LogFile()
	}
	return NewPaths(filepath.Join(os.TempDir(), "hostreport")).LogFile()
}

// NewLogger opens logFile for appending. An empty path selects the default
// location.
func NewLogger(logFile string) *Logger {
	logger := &Logger{out: os.Stdout}
	if logFile == "" {
		logFile = defaultLogPath()
	}
	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: Error opening log file (%s): %v\n", time.Now().Format(timestampLayout), logFile, err)
		return logger
	}
	logger.writeFile = f
	logger.out = f
	return logger
}

// NewWriterLogger logs to an arbitrary writer. Tests use it to capture output.
func NewWriterLogger(w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{out: w}
}

// Write appends a timestamped message.
func (l *Logger) Write(message string) {
	if l == nil {
		return
	}
	line := fmt.Sprintf("%s: %s\n", time.Now().Format(timestampLayout), message)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, line)
	if l.writeFile != nil {
		_ = l.writeFile.Sync()
	}
}

// Writef formats and writes a message.
func (l *Logger) Writef(format string, args ...interface{}) {
	l.Write(fmt.Sprintf(format, args...))
}

// Close closes the underlying file handle.
func (l *Logger) Close() {
	if l == nil || l.writeFile == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.writeFile.Close()
	l.writeFile = nil
	l.out = os.Stdout
}

// File returns the underlying write file handle when available.
func (l *Logger) File() *os.File {
	if l == nil {
		return nil
	}
	return l.writeFile
}
