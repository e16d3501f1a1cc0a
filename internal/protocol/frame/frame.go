package frame

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrLineTooLarge = errors.New("frame: line too large")
	ErrEmptyLine    = errors.New("frame: empty line")
)

// Limits constrains line decode memory use.
type Limits struct {
	MaxLineBytes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxLineBytes: 1 << 20,
	}
}

// Reader yields newline-terminated lines from the engine.
type Reader struct {
	br    *bufio.Reader
	limit int
}

func NewReader(r io.Reader, limits Limits) *Reader {
	limit := limits.MaxLineBytes
	if limit <= 0 {
		limit = DefaultLimits().MaxLineBytes
	}
	return &Reader{br: bufio.NewReaderSize(r, min(limit, 64*1024)), limit: limit}
}

// SetLimit changes the largest line ReadLine accepts, terminator excluded.
// Non-positive values are ignored.
func (r *Reader) SetLimit(n int) {
	if n > 0 {
		r.limit = n
	}
}

// Limit reports the largest line ReadLine currently accepts.
func (r *Reader) Limit() int {
	return r.limit
}

// ReadLine blocks until the next line arrives and returns it with trailing
// whitespace removed. It returns io.EOF once the stream is exhausted.
func (r *Reader) ReadLine() (string, error) {
	var line []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		line = append(line, chunk...)
		if len(bytes.TrimRight(line, "\r\n")) > r.limit {
			return "", ErrLineTooLarge
		}
		switch {
		case err == nil:
			return strings.TrimRight(string(line), " \t\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(line) == 0 {
				return "", io.EOF
			}
			return strings.TrimRight(string(line), " \t\r\n"), nil
		default:
			return "", err
		}
	}
}

type flusher interface {
	Flush() error
}

// Writer emits whole lines and pushes each one to the peer immediately.
// Plain files and pipes are unbuffered already; buffered writers are
// flushed after every line.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteLine writes line plus a newline in a single Write, then flushes.
func (w *Writer) WriteLine(line string) error {
	if line == "" {
		return ErrEmptyLine
	}
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("frame: line contains a line terminator: %q", line)
	}
	if _, err := io.WriteString(w.w, line+"\n"); err != nil {
		return err
	}
	if f, ok := w.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
