// Package logging builds the charmbracelet logger handed to the analyzer.
// It is configured through environment variables and can write to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
)

// FilePattern matches the files written when X86SCOPE_LOG_TO_FILE=1.
const FilePattern = "x86scope-*-debug.log"

// LoggerCloser wraps a logger and provides a Close method for cleanup
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
	Path   string // log file, empty when logging to stderr
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to a level, defaulting to info.
func ParseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	}
	return log.InfoLevel
}

// NewLoggerWithWriter creates a new logger with the provided writer
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	lg.SetLevel(ParseLevel(os.Getenv("X86SCOPE_LOG_LEVEL")))

	prefix := os.Getenv("X86SCOPE_LOG_PREFIX")
	if prefix == "" {
		prefix = "x86scope "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates a new logger based on environment variables
// X86SCOPE_LOG_LEVEL: debug, info, warn, error (default: info)
// X86SCOPE_LOG_PREFIX: prefix for log messages (default: "x86scope ")
// X86SCOPE_LOG_TO_FILE: when set to "1", logs to a timestamped file instead of stderr
func NewLogger() *LoggerCloser {
	output := io.Writer(os.Stderr)
	var path string

	if os.Getenv("X86SCOPE_LOG_TO_FILE") == "1" {
		timestamp := time.Now().Format("20060102-150405")
		logFile := fmt.Sprintf("x86scope-%s-debug.log", timestamp)

		f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err == nil {
			output = f
			path = logFile
		}
		// If file creation fails, fall back to stderr
	}

	lc := NewLoggerWithWriter(output)
	lc.Path = path
	return lc
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return os.Getenv("X86SCOPE_LOG_LEVEL") == "debug"
}

// Latest returns the newest log file in dir.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, FilePattern))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no log files in %s", dir)
	}
	// Timestamps in the name sort chronologically.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
