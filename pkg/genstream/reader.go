package genstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/inkwellhq/inkwell/pkg/logger"
	"github.com/inkwellhq/inkwell/pkg/utils"
)

const defaultChunkSize = 32 * 1024

// ErrNoBody is returned when a stream is started without a source.
var ErrNoBody = errors.New("genstream: response has no body")

// TransportError wraps a failure of the underlying byte source. It is fatal
// for the stream.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "genstream: reading stream: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Handler receives each decoded event in arrival order. Returning an error
// stops the reader and the error is returned from Run.
type Handler func(ctx context.Context, ev Event) error

// Stats counts what a Reader has seen so far.
type Stats struct {
	Bytes     int64
	Lines     int
	Events    int
	Malformed int
}

// Reader decodes Events from a newline-delimited JSON byte stream.
//
// Lines that are not valid JSON are logged and skipped. Errors from the
// source, an over-long line, or a missing source end the stream.
type Reader struct {
	src    io.Reader
	framer *Framer
	tee    io.Writer
	logger *slog.Logger

	chunk   []byte
	pending [][]byte
	done    bool
	err     error
	stats   Stats
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxLineBytes bounds the size of a single line.
func WithMaxLineBytes(n int) Option {
	return func(r *Reader) {
		r.framer = NewFramer(n)
	}
}

// WithTee writes every raw byte read from the source to w before it is
// framed. Useful for keeping a transcript of the stream.
func WithTee(w io.Writer) Option {
	return func(r *Reader) {
		r.tee = w
	}
}

// WithLogger sets the logger used to report skipped lines.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithChunkSize sets the size of each read from the source.
func WithChunkSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.chunk = make([]byte, n)
		}
	}
}

// NewReader returns a Reader over src. A nil src is allowed; the first call
// to Next or Run reports ErrNoBody.
func NewReader(src io.Reader, opts ...Option) *Reader {
	r := &Reader{
		src:    src,
		framer: NewFramer(DefaultMaxLineBytes),
		logger: logger.Nop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.chunk == nil {
		r.chunk = make([]byte, defaultChunkSize)
	}

	return r
}

// Next returns the next decoded event. It blocks until a complete line is
// available or the source ends. Next returns nil, nil once the source is
// exhausted and every buffered line has been delivered.
func (r *Reader) Next() (*Event, error) {
	for {
		for len(r.pending) > 0 {
			line := r.pending[0]
			r.pending = r.pending[1:]

			if ev, ok := r.decode(line); ok {
				r.stats.Events++
				return ev, nil
			}
		}

		if r.err != nil {
			return nil, r.err
		}
		if r.done {
			return nil, nil
		}

		r.fill()
	}
}

// Run calls h for every event until the source is exhausted, h returns an
// error, the stream fails, or ctx is done.
//
// Cancellation is checked between events. A read that is already blocked is
// only released when the source itself is closed, which for HTTP bodies
// happens when the request context is cancelled.
func (r *Reader) Run(ctx context.Context, h Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, err := r.Next()
		if err != nil {
			return err
		}
		if ev == nil {
			return nil
		}

		if err := h(ctx, *ev); err != nil {
			return err
		}
	}
}

// Stats returns counters for the stream so far.
func (r *Reader) Stats() Stats {
	return r.stats
}

// fill performs one read from the source and frames whatever arrived.
func (r *Reader) fill() {
	if r.src == nil {
		r.err = ErrNoBody
		return
	}

	n, err := r.src.Read(r.chunk)
	if n > 0 {
		r.stats.Bytes += int64(n)

		if r.tee != nil {
			if _, werr := r.tee.Write(r.chunk[:n]); werr != nil {
				r.err = fmt.Errorf("genstream: writing tee: %w", werr)
				return
			}
		}

		lines, ferr := r.framer.Push(r.chunk[:n])
		r.pending = append(r.pending, lines...)
		if ferr != nil {
			r.err = ferr
			return
		}
	}

	switch {
	case errors.Is(err, io.EOF):
		r.done = true
		if rest := r.framer.Flush(); rest != nil {
			r.pending = append(r.pending, rest)
		}
	case err != nil:
		r.err = &TransportError{Err: err}
	}
}

// decode parses a single line. Malformed lines are logged and reported as
// not ok.
func (r *Reader) decode(line []byte) (*Event, bool) {
	r.stats.Lines++

	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		r.stats.Malformed++
		r.logger.Warn("skipping malformed stream line",
			"error", err,
			"line", utils.Truncate(string(line), 120),
		)
		return nil, false
	}

	return &ev, true
}
