package genstream

import (
	"bytes"
	"errors"
)

// DefaultMaxLineBytes bounds how much unterminated data a Framer holds
// before giving up on the stream.
const DefaultMaxLineBytes = 1024 * 1024

// ErrLineTooLong is returned when a single line grows past the framer limit.
var ErrLineTooLong = errors.New("genstream: line exceeds maximum buffer size")

// Framer splits a byte stream into newline-terminated lines. Chunks may end
// anywhere, including mid-line or inside a multi-byte character; the partial
// tail is held until a later chunk terminates it.
//
// ┌───────────────┐   ┌──────────────┐   ┌────────────────┐
// │ chunk (bytes) │──▶│ Framer.Push  │──▶│ complete lines │
// └───────────────┘   └──────────────┘   └────────────────┘
// │
// ▼
// ┌──────────────────────────────┐
// │ buffered tail (no '\n' yet)  │
// └──────────────────────────────┘
type Framer struct {
	buf   []byte
	limit int
}

// NewFramer returns a Framer that fails once a pending line exceeds limit
// bytes. A limit <= 0 uses DefaultMaxLineBytes.
func NewFramer(limit int) *Framer {
	if limit <= 0 {
		limit = DefaultMaxLineBytes
	}
	return &Framer{limit: limit}
}

// Push appends chunk to the buffer and returns every line it completed, in
// order. Lines are trimmed of surrounding whitespace and empty lines are
// dropped. The returned slices are owned by the caller.
//
// When the limit is exceeded Push still returns the lines completed before
// the overflow, together with ErrLineTooLong.
func (f *Framer) Push(chunk []byte) ([][]byte, error) {
	f.buf = append(f.buf, chunk...)

	var lines [][]byte
	start := 0
	for {
		i := bytes.IndexByte(f.buf[start:], '\n')
		if i < 0 {
			break
		}

		raw := f.buf[start : start+i]
		start += i + 1

		if len(raw) > f.limit {
			f.compact(start)
			return lines, ErrLineTooLong
		}

		if line := bytes.TrimSpace(raw); len(line) > 0 {
			lines = append(lines, bytes.Clone(line))
		}
	}

	f.compact(start)

	if len(f.buf) > f.limit {
		return lines, ErrLineTooLong
	}

	return lines, nil
}

// Flush returns the trimmed unterminated remainder, or nil if there is none,
// and empties the buffer. Call it once the source is exhausted.
func (f *Framer) Flush() []byte {
	line := bytes.TrimSpace(f.buf)
	f.buf = f.buf[:0]
	if len(line) == 0 {
		return nil
	}
	return bytes.Clone(line)
}

// Buffered returns the number of bytes waiting for a line terminator.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// compact drops the first n consumed bytes from the buffer.
func (f *Framer) compact(n int) {
	if n == 0 {
		return
	}
	rest := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:rest]
}
