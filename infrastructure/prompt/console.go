// Package prompt asks the operator to confirm out-of-band login steps.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrClosed is returned when the input stream ends before the operator answered.
var ErrClosed = errors.New("confirmation input closed")

// Console writes a message and waits for a line on its input.
// A single reader goroutine owns the input, so an abandoned prompt never
// consumes the answer meant for the next one.
type Console struct {
	mu      sync.Mutex
	in      *bufio.Reader
	out     io.Writer
	start   sync.Once
	lines   chan error
	readErr error
}

// NewConsole creates a confirmer reading from in and writing to out.
// Nil values default to stdin and stdout.
func NewConsole(in io.Reader, out io.Writer) *Console {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Console{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan error),
	}
}

// readLoop delivers one value per input line and stops after the first read error.
func (c *Console) readLoop() {
	for {
		_, err := c.in.ReadString('\n')
		c.lines <- err
		if err != nil {
			return
		}
	}
}

// Confirm prints message and blocks until the operator presses enter or ctx is done.
// Concurrent callers are served one at a time.
func (c *Console) Confirm(ctx context.Context, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readErr != nil {
		return c.readErr
	}
	c.start.Do(func() { go c.readLoop() })

	if _, err := fmt.Fprintf(c.out, "%s\nPress Enter to continue...", message); err != nil {
		return fmt.Errorf("failed to write prompt: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.lines:
		if err == nil {
			return nil
		}
		if errors.Is(err, io.EOF) {
			c.readErr = ErrClosed
		} else {
			c.readErr = fmt.Errorf("failed to read confirmation: %w", err)
		}
		return c.readErr
	}
}
