package ledger

import (
	"fmt"
	"os"
)

// Sink is the ledger's durable side. Append receives one canonical record
// line without its trailing newline.
type Sink interface {
	Append(line []byte) error
}

// FileSink appends records to a flat file. The handle is opened, written,
// and closed per append; nothing is held between emissions, and a failed
// write still releases the handle.
type FileSink struct {
	Path string
}

// Append implements Sink.
func (s FileSink) Append(line []byte) error {
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", s.Path, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append ledger %s: %w", s.Path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger %s: %w", s.Path, err)
	}
	return nil
}

// MemorySink captures appended lines in memory. It is the test double for
// FileSink and backs the watchdog's writability probe. Like the ledger
// itself it assumes a single writer.
type MemorySink struct {
	lines []string
}

// Append implements Sink.
func (s *MemorySink) Append(line []byte) error {
	s.lines = append(s.lines, string(line))
	return nil
}

// Len returns the number of captured lines.
func (s *MemorySink) Len() int {
	return len(s.lines)
}

// Lines returns the captured lines in append order.
func (s *MemorySink) Lines() []string {
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// Last returns the most recently captured line, or "" when empty.
func (s *MemorySink) Last() string {
	if len(s.lines) == 0 {
		return ""
	}
	return s.lines[len(s.lines)-1]
}
