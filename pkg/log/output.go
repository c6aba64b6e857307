package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes entries to stderr, serializing concurrent writers.
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput creates an Output writing to stderr.
func NewConsoleOutput() *ConsoleOutput {
	return &ConsoleOutput{w: os.Stderr}
}

// NewWriterOutput creates an Output writing to an arbitrary writer. Useful in
// tests to capture log lines.
func NewWriterOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: w}
}

// Write implements Output.
func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(formatted)
	return err
}

// Close implements Output. Console output has nothing to release.
func (o *ConsoleOutput) Close() error { return nil }

// NullOutput discards all entries.
type NullOutput struct{}

// NewNullOutput creates an Output that drops everything.
func NewNullOutput() *NullOutput { return &NullOutput{} }

// Write implements Output.
func (o *NullOutput) Write(*Entry, []byte) error { return nil }

// Close implements Output.
func (o *NullOutput) Close() error { return nil }
