// Package history keeps an append-only log of completed dictations for
// review and debugging.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Log appends one line per dictation to a plain text file. Entries where
// formatting changed the transcript record both forms.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates a log writing to path, creating parent directories as
// needed.
func NewLog(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	return &Log{path: path}, nil
}

// Append records a completed dictation.
func (l *Log) Append(raw, formatted string, took time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history log: %w", err)
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	var line string
	if raw == formatted {
		line = fmt.Sprintf("[%s] (%dms) %s\n", timestamp, took.Milliseconds(), formatted)
	} else {
		line = fmt.Sprintf("[%s] (%dms) raw: %q -> %s\n", timestamp, took.Milliseconds(), raw, formatted)
	}

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write history entry: %w", err)
	}
	return nil
}

// Tail returns the last n entries, oldest first. A missing log file yields
// no entries and no error.
func (l *Log) Tail(n int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history log: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
