// Package genstream reads and writes the newline-delimited JSON event stream
// produced by the inkwell generation endpoints.
//
// A stream is a single HTTP response body carrying one JSON object per line.
// Each object is an Event. The reader side frames raw byte chunks into lines
// (see Framer), decodes each line into an Event, and hands it to a Handler in
// arrival order. Session is the standard Handler: it folds events into
// progress, status message and an accumulated result.
//
// The writer side (Encoder) is used by the API server to emit events.
package genstream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventType discriminates stream events. The set is open: readers ignore
// types they do not recognize.
type EventType string

const (
	EventProgress EventType = "progress"
	EventData     EventType = "data"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Known reports whether t is one of the event types the dispatcher acts on.
func (t EventType) Known() bool {
	switch t {
	case EventProgress, EventData, EventComplete, EventError:
		return true
	}
	return false
}

// Accumulator slot keys emitted by the generation backend.
const (
	KeyBlueprintValues = "blueprintValues"
	KeyFieldValue      = "fieldValue"
	KeyAIContent       = "aiContent"
)

// Event is one decoded stream line.
type Event struct {
	Type EventType `json:"type"`

	// Progress is a percentage in [0, 100]. Producers send it non-decreasing
	// but readers do not enforce that.
	Progress *int `json:"progress,omitempty"`

	// Message is human-readable status text, or the failure reason on
	// error events.
	Message string `json:"message,omitempty"`

	// Key and Value are set on data events. Key names the accumulator slot
	// Value is merged into.
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`

	// Data is the final composed result on complete events.
	Data json.RawMessage `json:"data,omitempty"`
}

// NewProgressEvent builds a progress event.
func NewProgressEvent(progress int, message string) Event {
	return Event{Type: EventProgress, Progress: &progress, Message: message}
}

// NewDataEvent builds a data event, encoding value as JSON.
func NewDataEvent(key string, value any) (Event, error) {
	raw, err := marshal(value)
	if err != nil {
		return Event{}, fmt.Errorf("encoding value for %q: %w", key, err)
	}
	return Event{Type: EventData, Key: key, Value: raw}, nil
}

// NewCompleteEvent builds a complete event. A nil data produces an event
// without a result payload.
func NewCompleteEvent(data any) (Event, error) {
	ev := Event{Type: EventComplete, Progress: intPtr(100)}
	if data == nil {
		return ev, nil
	}

	raw, err := marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("encoding complete data: %w", err)
	}
	ev.Data = raw
	return ev, nil
}

// NewErrorEvent builds an error event carrying message.
func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// marshal encodes v without escaping HTML, since aiContent carries markup that
// the raw payload must keep as written.
func marshal(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func intPtr(v int) *int {
	return &v
}
