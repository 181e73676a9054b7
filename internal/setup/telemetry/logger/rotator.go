package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// LogRotator is an io.Writer that keeps a log file bounded to the most
// recent maxLines lines. Lines are mirrored into an in-memory window and the
// file is rewritten from that window once twice the limit has been written.
type LogRotator struct {
	mu       sync.Mutex
	out      io.Writer
	path     string
	window   *lineWindow
	pending  int
	maxLines int
}

// NewLogRotator wraps out, which must be the open file at path.
func NewLogRotator(out io.Writer, maxLines int, path string) *LogRotator {
	if maxLines <= 0 {
		maxLines = 1
	}

	return &LogRotator{
		out:      out,
		path:     path,
		window:   newLineWindow(maxLines),
		maxLines: maxLines,
	}
}

// Write implements io.Writer.
func (r *LogRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.out.Write(p)
	if err != nil {
		return n, err
	}

	for line := range bytes.SplitSeq(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}

		r.window.push(string(line))
		r.pending++
	}

	if r.pending >= r.maxLines*2 {
		if err := r.compact(); err != nil {
			return n, fmt.Errorf("failed to compact log file: %w", err)
		}

		r.pending = r.window.len()
	}

	return n, nil
}

// compact replaces the file with the lines held in the window.
func (r *LogRotator) compact() error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".rotate-*")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()

	var buf bytes.Buffer
	r.window.each(func(line string) {
		buf.WriteString(line)
		buf.WriteByte('\n')
	})

	if _, err := buf.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if c, ok := r.out.(io.Closer); ok {
		_ = c.Close()
	}

	_ = os.Remove(r.path)

	if err := os.Rename(tmpPath, r.path); err != nil {
		return err
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	r.out = f

	return nil
}

// lineWindow is a fixed-size circular buffer of lines.
type lineWindow struct {
	lines []string
	next  int
	full  bool
}

func newLineWindow(size int) *lineWindow {
	return &lineWindow{lines: make([]string, size)}
}

func (w *lineWindow) push(line string) {
	w.lines[w.next] = line

	w.next++
	if w.next == len(w.lines) {
		w.next = 0
		w.full = true
	}
}

func (w *lineWindow) len() int {
	if w.full {
		return len(w.lines)
	}

	return w.next
}

// each visits lines oldest first.
func (w *lineWindow) each(fn func(string)) {
	if w.full {
		for _, line := range w.lines[w.next:] {
			fn(line)
		}
	}

	for _, line := range w.lines[:w.next] {
		fn(line)
	}
}
