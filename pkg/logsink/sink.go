// Package logsink collects the stderr of every guest process into one file.
//
// A Sink is opened once per compatibility environment and shared by the
// stderr drains of all live processes. Each line is checked before it is
// written: invalid UTF-8 is replaced rune by rune, while lines that are too
// long or hold NUL bytes become a single fallback entry so one bad line never
// stops the drain.
package logsink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MaxLineLength is the longest line written verbatim.
const MaxLineLength = 64 * 1024

var (
	// ErrLineTooLong is reported for lines longer than MaxLineLength.
	ErrLineTooLong = errors.New("line too long")
	// ErrMalformedLine is reported for lines holding NUL bytes.
	ErrMalformedLine = errors.New("malformed line")
	// ErrClosed is returned by WriteLine after Close.
	ErrClosed = errors.New("log sink closed")
)

// Sink is a line oriented, append only log destination safe for concurrent use.
// Mutable
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	c      io.Closer
	closed bool
}

// Open creates (or truncates) the log file at path.
func Open(path string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &Sink{w: f, c: f}, nil
}

// New wraps w. Close does not close w.
func New(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Check reports whether line can be written verbatim.
func Check(line string) error {
	if len(line) > MaxLineLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrLineTooLong, len(line), MaxLineLength)
	}
	if strings.IndexByte(line, 0) >= 0 {
		return fmt.Errorf("%w: contains NUL byte", ErrMalformedLine)
	}
	return nil
}

// WriteLine appends line followed by a newline. Invalid UTF-8 sequences,
// e.g. file names in a legacy code page, are written as U+FFFD. A line
// failing Check is replaced by a fallback entry naming the problem.
func (s *Sink) WriteLine(line string) error {
	line = strings.ToValidUTF8(line, "\uFFFD")
	if err := Check(line); err != nil {
		line = "error writing wine log line: " + err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	_, err := io.WriteString(s.w, line+"\n")
	return err
}

// Drain reads r line by line until EOF and writes every non-empty line.
// Lines of any length are consumed; oversized ones end up as fallback entries.
func (s *Sink) Drain(r io.Reader) {
	br := bufio.NewReader(r)
	var buf []byte
	overflow := false

	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if err != io.EOF {
				slog.Debug("Log drain stopped", "err", err)
			}
			return
		}

		if !overflow {
			buf = append(buf, chunk...)
			if len(buf) > MaxLineLength {
				// Keep one byte past the limit so Check reports the overflow.
				buf = buf[:MaxLineLength+1]
				overflow = true
			}
		}
		if isPrefix {
			continue
		}

		line := strings.TrimRight(string(buf), "\r")
		buf, overflow = buf[:0], false
		if line == "" {
			continue
		}
		if err := s.WriteLine(line); err != nil && !errors.Is(err, ErrClosed) {
			slog.Debug("Failed to write log line", "err", err)
		}
	}
}

// Close closes the underlying file. Later writes are dropped.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}
