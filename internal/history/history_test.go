package history

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := NewLog(filepath.Join(t.TempDir(), "dictation", "history.log"))
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}
	return l
}

func TestLog_AppendAndTail(t *testing.T) {
	l := newTestLog(t)

	if err := l.Append("git status", "git status", 420*time.Millisecond); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append("dash help", "-help", 300*time.Millisecond); err != nil {
		t.Fatalf("Append: %v", err)
	}

	lines, err := l.Tail(10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "(420ms) git status") {
		t.Errorf("unchanged entry = %q", lines[0])
	}
	if !strings.Contains(lines[1], `raw: "dash help" -> -help`) {
		t.Errorf("reformatted entry = %q", lines[1])
	}
}

func TestLog_TailLimit(t *testing.T) {
	l := newTestLog(t)

	for i := 0; i < 5; i++ {
		if err := l.Append("entry", "entry", 0); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	lines, err := l.Tail(3)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(lines) != 3 {
		t.Errorf("expected 3 entries, got %d", len(lines))
	}
}

func TestLog_TailMissingFile(t *testing.T) {
	l := newTestLog(t)

	lines, err := l.Tail(10)
	if err != nil {
		t.Fatalf("Tail on missing file: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no entries, got %d", len(lines))
	}
}
