package genstream

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Emitter accepts events produced by a generator.
type Emitter interface {
	Emit(ev Event) error
}

// EmitterFunc adapts a function to an Emitter.
type EmitterFunc func(ev Event) error

func (f EmitterFunc) Emit(ev Event) error {
	return f(ev)
}

type flusher interface {
	Flush() error
}

type httpFlusher interface {
	Flush()
}

// Encoder writes events as newline-delimited JSON. Each event is flushed as
// soon as it is written when the destination supports flushing.
type Encoder struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Encoder{w: w, enc: enc}
}

// Emit writes ev followed by a newline.
func (e *Encoder) Emit(ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// json.Encoder terminates every value with '\n'.
	if err := e.enc.Encode(ev); err != nil {
		return fmt.Errorf("writing %s event: %w", ev.Type, err)
	}

	switch f := e.w.(type) {
	case flusher:
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flushing %s event: %w", ev.Type, err)
		}
	case httpFlusher:
		f.Flush()
	}

	return nil
}
