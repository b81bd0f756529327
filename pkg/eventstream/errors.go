package eventstream

import "errors"

// ErrNilActivityEvent indicates a nil activity event payload was provided to a publisher.
var ErrNilActivityEvent = errors.New("nil activity event")
