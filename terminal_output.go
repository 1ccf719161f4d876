// terminal_output.go - PRINT sink for the VM32 host

package main

import (
	"io"
	"os"
	"sync"
)

const (
	MAX_LINE         = 1024 // Longest line kept in the history
	MAX_RECENT_LINES = 8
)

// TerminalOutput receives PRINT output, forwards it to a downstream writer
// and remembers the last few complete lines for the status bar.
type TerminalOutput struct {
	mutex      sync.Mutex
	enabled    bool
	downstream io.Writer
	buffer     []byte
	recent     []string
	maxLineLen int
}

// NewTerminalOutput creates a sink writing to w, or stdout when w is nil.
func NewTerminalOutput(w io.Writer) *TerminalOutput {
	if w == nil {
		w = os.Stdout
	}
	return &TerminalOutput{
		enabled:    true,
		downstream: w,
		maxLineLen: MAX_LINE,
		buffer:     make([]byte, 0, MAX_LINE),
	}
}

// Write implements io.Writer. It always reports the full length so PRINT
// never fails because of the host.
func (t *TerminalOutput) Write(p []byte) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.enabled {
		t.downstream.Write(p)
	}
	for _, c := range p {
		if c == '\n' || len(t.buffer) >= t.maxLineLen {
			t.flush()
			if c == '\n' {
				continue
			}
		}
		t.buffer = append(t.buffer, c)
	}
	return len(p), nil
}

// flush moves the pending line into the history.
func (t *TerminalOutput) flush() {
	t.recent = append(t.recent, string(t.buffer))
	if len(t.recent) > MAX_RECENT_LINES {
		t.recent = t.recent[len(t.recent)-MAX_RECENT_LINES:]
	}
	t.buffer = t.buffer[:0]
}

// RecentLines returns a copy of the remembered lines, oldest first.
func (t *TerminalOutput) RecentLines() []string {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	out := make([]string, len(t.recent))
	copy(out, t.recent)
	return out
}

// LastLine returns the most recent complete line, or "".
func (t *TerminalOutput) LastLine() string {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if len(t.recent) == 0 {
		return ""
	}
	return t.recent[len(t.recent)-1]
}

// Clear drops the history.
func (t *TerminalOutput) Clear() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.recent = nil
	t.buffer = t.buffer[:0]
}

// Enable resumes forwarding to the downstream writer
func (t *TerminalOutput) Enable() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.enabled = true
}

// Disable stops forwarding; lines are still remembered
func (t *TerminalOutput) Disable() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.enabled = false
}
