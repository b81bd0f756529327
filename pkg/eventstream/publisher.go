package eventstream

import "context"

// Publisher publishes activity events to an event stream backend.
type Publisher interface {
	PublishActivity(ctx context.Context, event *ActivityEvent) error
	Close() error
}
