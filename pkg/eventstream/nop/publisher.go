package nop

import (
	"context"

	"github.com/inkwellhq/inkwell/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishActivity validates input and otherwise does nothing.
func (p *Publisher) PublishActivity(_ context.Context, event *eventstream.ActivityEvent) error {
	if event == nil {
		return eventstream.ErrNilActivityEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
