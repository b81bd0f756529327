package eventstream

import (
	"time"

	"github.com/inkwellhq/inkwell/pkg/catalog"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeActivityRecorded is emitted after an activity log entry is persisted.
	EventTypeActivityRecorded = "inkwell.activity.recorded"
)

// ActivityEvent is a transport-neutral event payload for a recorded user action.
type ActivityEvent struct {
	SchemaVersion int                 `json:"schema_version"`
	EventType     string              `json:"event_type"`
	EventID       string              `json:"event_id"`
	EmittedAt     time.Time           `json:"emitted_at"`
	Source        EventSource         `json:"source"`
	Activity      catalog.ActivityLog `json:"activity"`
}

// EventSource identifies the server instance that recorded the activity.
type EventSource struct {
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
}

// NewActivityEvent wraps a persisted log entry in a versioned envelope.
func NewActivityEvent(log *catalog.ActivityLog, source EventSource, now time.Time) *ActivityEvent {
	return &ActivityEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeActivityRecorded,
		EventID:       "evt_" + catalog.NewID(),
		EmittedAt:     now,
		Source:        source,
		Activity:      *log,
	}
}
