package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompt is written after every system line.
const Prompt = "> "

// #region console
// Console exchanges lines over a reader/writer pair, normally stdin/stdout.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole returns a console reading from r and writing to w.
func NewConsole(r io.Reader, w io.Writer) *Console {
	return &Console{in: bufio.NewReader(r), out: w}
}

type readResult struct {
	line string
	err  error
}

// Exchange writes say, a newline and the prompt, then reads one line. The
// trailing newline is stripped; nothing else is trimmed. io.EOF is returned
// only when the input ends before any character of the line was read.
//
// Cancelling ctx abandons a pending read; the console must not be used
// afterwards.
func (c *Console) Exchange(ctx context.Context, say string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := fmt.Fprint(c.out, say+"\n"+Prompt); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}

	done := make(chan readResult, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		done <- readResult{line: line, err: err}
	}()

	var line string
	var err error
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		line, err = r.line, r.err
	}

	switch {
	case errors.Is(err, io.EOF) && line == "":
		return "", io.EOF
	case err != nil && !errors.Is(err, io.EOF):
		return "", fmt.Errorf("read: %w", err)
	}

	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// #endregion console
