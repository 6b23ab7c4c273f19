package ui

import (
	"fmt"
	"io"
	"sync"
)

// PrefixWriter line-buffers subprocess output and writes each line to dest
// dimmed and prefixed with [label]. It implements io.Writer.
type PrefixWriter struct {
	prefix string
	dest   io.Writer
	mu     *sync.Mutex
	buf    []byte
}

// NewPrefixWriter creates a PrefixWriter that prefixes output with [label].
func NewPrefixWriter(label string, dest io.Writer, mu *sync.Mutex) *PrefixWriter {
	return &PrefixWriter{
		prefix: TaskPrefix(label) + " ",
		dest:   dest,
		mu:     mu,
	}
}

func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	pw.buf = append(pw.buf, p...)
	for {
		idx := -1
		for i, b := range pw.buf {
			if b == '\n' {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}
		line := string(pw.buf[:idx])
		pw.buf = pw.buf[idx+1:]
		if line != "" {
			fmt.Fprintf(pw.dest, "  %s%s\n", pw.prefix, Dim(line))
		}
	}
	return len(p), nil
}

// Flush writes any buffered partial line.
func (pw *PrefixWriter) Flush() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if len(pw.buf) > 0 {
		fmt.Fprintf(pw.dest, "  %s%s\n", pw.prefix, Dim(string(pw.buf)))
		pw.buf = nil
	}
}
