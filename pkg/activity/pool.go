// Package activity provides an asynchronous worker pool that persists activity
// log entries using the provided storage.ActivityStore and publishes them to
// an eventstream.Publisher.
//
// The pool keeps audit writes off the API request path: handlers enqueue and
// return, workers persist and publish.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/eventstream"
	"github.com/inkwellhq/inkwell/pkg/eventstream/nop"
	"github.com/inkwellhq/inkwell/pkg/logger"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 10 * time.Second
)

// Config is the configuration options for the activity pool.
type Config struct {
	// Store persists log entries.
	Store storage.ActivityStore

	// Publisher receives an event for every persisted entry. Defaults to nop.
	Publisher eventstream.Publisher

	// Source is stamped on every published event.
	Source eventstream.EventSource

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes activity entries asynchronously.
type Pool struct {
	config *Config
	queue  chan *catalog.ActivityLog
	wg     sync.WaitGroup
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("activity pool requires a store")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	p := &Pool{
		config: c,
		queue:  make(chan *catalog.ActivityLog, c.QueueSize),
		logger: c.Logger,
		now:    time.Now,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Record builds a log entry stamped with the current time and enqueues it.
func (p *Pool) Record(userID, action, entityType, entityID, detail string) bool {
	return p.Enqueue(catalog.NewActivityLog(userID, action, entityType, entityID, detail, p.now().UTC()))
}

// Enqueue submits an entry for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the entry being dropped.
func (p *Pool) Enqueue(entry *catalog.ActivityLog) bool {
	if entry == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("activity not queued, pool closed",
			"action", entry.Action,
			"entity_id", entry.EntityID,
		)
		return false
	}

	select {
	case p.queue <- entry:
		p.logger.Debug("activity queued",
			"action", entry.Action,
			"entity_type", entry.EntityType,
		)
		return true
	default:
		p.logger.Error("activity not queued, queue full, entry dropped",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
		)
		return false
	}
}

// Close signals workers to stop and waits for queued entries to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls entries off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("activity worker started", "worker_id", id)

	for entry := range p.queue {
		p.process(entry)
	}

	p.logger.Debug("activity worker stopped", "worker_id", id)
}

// process persists one entry and publishes it. Publish failures are logged
// and do not undo the write.
func (p *Pool) process(entry *catalog.ActivityLog) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultJobTimeout)
	defer cancel()

	if err := p.config.Store.AppendActivity(ctx, entry); err != nil {
		p.logger.Error("activity storage failed",
			"action", entry.Action,
			"entity_id", entry.EntityID,
			"error", err,
		)
		return
	}

	event := eventstream.NewActivityEvent(entry, p.config.Source, p.now().UTC())
	if err := p.config.Publisher.PublishActivity(ctx, event); err != nil {
		p.logger.Warn("activity publish failed",
			"event_id", event.EventID,
			"error", err,
		)
		return
	}

	p.logger.Debug("activity stored",
		"id", entry.ID,
		"user_id", entry.UserID,
		"action", entry.Action,
	)
}
