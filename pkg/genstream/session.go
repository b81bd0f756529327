package genstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sync"

	"github.com/inkwellhq/inkwell/pkg/logger"
)

// ErrIncomplete is the session failure when the stream ends without a
// complete or error event.
var ErrIncomplete = errors.New("genstream: stream ended before completion")

// GenerationError is the failure reported by the backend in an error event.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string {
	if e.Message == "" {
		return "generation failed"
	}
	return "generation failed: " + e.Message
}

// Status is the lifecycle state of a Session.
type Status int

const (
	StatusIdle Status = iota
	StatusActive
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusActive:
		return "active"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Listener observes a Session. Calls are made after the session state has
// been updated, so listeners may read the session from inside a callback.
// OnComplete and OnError are each called at most once per session, and never
// both.
type Listener interface {
	OnProgress(progress int, message string)
	OnData(key string, value json.RawMessage)
	OnComplete(result map[string]json.RawMessage)
	OnError(err error)
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Progress func(progress int, message string)
	Data     func(key string, value json.RawMessage)
	Complete func(result map[string]json.RawMessage)
	Error    func(err error)
}

func (f ListenerFuncs) OnProgress(progress int, message string) {
	if f.Progress != nil {
		f.Progress(progress, message)
	}
}

func (f ListenerFuncs) OnData(key string, value json.RawMessage) {
	if f.Data != nil {
		f.Data(key, value)
	}
}

func (f ListenerFuncs) OnComplete(result map[string]json.RawMessage) {
	if f.Complete != nil {
		f.Complete(result)
	}
}

func (f ListenerFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// Session folds stream events into presentation state: a progress
// percentage, a status message and an accumulated result keyed by slot.
//
// The accumulator is emptied by Start and is only changed by Handle, so it
// reflects exactly one stream.
type Session struct {
	mu       sync.Mutex
	listener Listener
	logger   *slog.Logger

	status   Status
	progress int
	message  string
	content  map[string]json.RawMessage
	err      error
}

// NewSession creates an idle session reporting to l. Both arguments may be nil.
func NewSession(l Listener, log *slog.Logger) *Session {
	if l == nil {
		l = ListenerFuncs{}
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Session{
		listener: l,
		logger:   log,
		content:  map[string]json.RawMessage{},
	}
}

// Start resets the session for a new stream.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusActive
	s.progress = 0
	s.message = ""
	s.content = map[string]json.RawMessage{}
	s.err = nil
}

// Handle applies one event. It is a Handler and is normally passed to
// Reader.Run. An error event fails the session and returns a
// *GenerationError so the reader stops.
func (s *Session) Handle(_ context.Context, ev Event) error {
	s.mu.Lock()

	if s.status != StatusActive {
		s.mu.Unlock()
		s.logger.Debug("ignoring event for inactive session",
			"type", string(ev.Type),
			"status", s.status.String(),
		)
		return nil
	}

	switch ev.Type {
	case EventProgress:
		if ev.Progress != nil {
			s.progress = clampProgress(*ev.Progress)
		}
		if ev.Message != "" {
			s.message = ev.Message
		}
		progress, message := s.progress, s.message
		s.mu.Unlock()

		s.listener.OnProgress(progress, message)
		return nil

	case EventData:
		if ev.Key == "" {
			s.mu.Unlock()
			s.logger.Warn("ignoring data event without key")
			return nil
		}
		merged := mergeValue(s.content[ev.Key], ev.Value)
		s.content[ev.Key] = merged
		s.mu.Unlock()

		s.listener.OnData(ev.Key, merged)
		return nil

	case EventComplete:
		s.progress = 100
		if ev.Message != "" {
			s.message = ev.Message
		}
		if result, ok := decodeObject(ev.Data); ok {
			s.content = result
		} else if len(ev.Data) > 0 {
			s.logger.Warn("complete event data is not an object, keeping accumulated content")
		}
		s.status = StatusSucceeded
		result := maps.Clone(s.content)
		s.mu.Unlock()

		s.listener.OnComplete(result)
		return nil

	case EventError:
		err := &GenerationError{Message: ev.Message}
		s.status = StatusFailed
		s.err = err
		if ev.Message != "" {
			s.message = ev.Message
		}
		s.mu.Unlock()

		s.listener.OnError(err)
		return err

	default:
		s.mu.Unlock()
		s.logger.Debug("ignoring unknown stream event", "type", string(ev.Type))
		return nil
	}
}

// Finish closes out the session after the reader has stopped. runErr is the
// value returned by Reader.Run. Finish returns nil when the session
// succeeded and the failure otherwise. The failure is reported to the
// listener once, even if it was already reported by an error event.
func (s *Session) Finish(runErr error) error {
	s.mu.Lock()

	switch s.status {
	case StatusSucceeded:
		s.mu.Unlock()
		return nil
	case StatusFailed:
		err := s.err
		s.mu.Unlock()
		return err
	}

	err := runErr
	if err == nil {
		err = ErrIncomplete
	}
	s.status = StatusFailed
	s.err = err
	s.mu.Unlock()

	s.listener.OnError(err)
	return err
}

// Progress returns the last reported percentage.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Message returns the last status text.
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the failure, if the session failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Content returns a copy of the accumulated result.
func (s *Session) Content() map[string]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.content)
}

// ContentString decodes the slot key as a JSON string.
func (s *Session) ContentString(key string) (string, bool) {
	s.mu.Lock()
	raw, ok := s.content[key]
	s.mu.Unlock()
	if !ok {
		return "", false
	}

	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return v, true
}

// Consume runs a complete stream session over body: it starts a Session,
// reads every event into it and finishes it. The returned error is the
// session failure, if any.
func Consume(ctx context.Context, body io.Reader, l Listener, log *slog.Logger, opts ...Option) (*Session, error) {
	if log == nil {
		log = logger.Nop()
	}

	session := NewSession(l, log)
	session.Start()

	opts = append([]Option{WithLogger(log)}, opts...)
	reader := NewReader(body, opts...)
	runErr := reader.Run(ctx, session.Handle)

	stats := reader.Stats()
	log.Debug("stream session finished",
		"bytes", stats.Bytes,
		"events", stats.Events,
		"malformed", stats.Malformed,
		"status", session.Status().String(),
	)

	return session, session.Finish(runErr)
}

// mergeValue merges incoming into existing when both are JSON objects and
// otherwise replaces existing.
func mergeValue(existing, incoming json.RawMessage) json.RawMessage {
	base, ok := decodeObject(existing)
	if !ok {
		return incoming
	}
	update, ok := decodeObject(incoming)
	if !ok {
		return incoming
	}

	maps.Copy(base, update)
	merged, err := json.Marshal(base)
	if err != nil {
		return incoming
	}
	return merged
}

// decodeObject decodes raw as a JSON object. null and non-objects are not ok.
func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func clampProgress(p int) int {
	return min(max(p, 0), 100)
}
