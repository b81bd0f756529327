package api

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/inkwellhq/inkwell/pkg/generator"
	"github.com/inkwellhq/inkwell/pkg/genstream"
)

const generationTimeout = 10 * time.Minute

// sessionGuard allows one active generation per key.
type sessionGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newSessionGuard() *sessionGuard {
	return &sessionGuard{active: map[string]struct{}{}}
}

func (g *sessionGuard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[key]; busy {
		return false
	}
	g.active[key] = struct{}{}
	return true
}

func (g *sessionGuard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, key)
}

// streamJob is one generation streamed to a client.
type streamJob struct {
	// key identifies the entity the guard serializes on.
	key string
	req generator.Request

	// persist stores the folded result before the complete event is sent.
	// A persist failure is sent as an error event instead.
	persist func(ctx context.Context, result map[string]json.RawMessage) error
}

// stream starts job and streams its events as the response body.
func (s *Server) stream(c *fiber.Ctx, job streamJob) error {
	if !s.sessions.acquire(job.key) {
		return s.writeError(c, errSessionActive)
	}

	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")

	// io.Pipe + SetBodyStream streams each event as its own chunk. pw.Write
	// blocks until fasthttp has read the previous event.
	pr, pw := io.Pipe()
	go s.runGeneration(job, pw)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// runGeneration drives the generator into pw. It does not touch the fiber
// context: fasthttp recycles it once the handler returns.
func (s *Server) runGeneration(job streamJob, pw *io.PipeWriter) {
	defer s.sessions.release(job.key)
	defer pw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
	defer cancel()

	start := time.Now()
	enc := genstream.NewEncoder(pw)
	session := genstream.NewSession(nil, s.logger)
	session.Start()

	// Every event is folded into session so that data-only streams still
	// persist the accumulated content on complete.
	emit := genstream.EmitterFunc(func(ev genstream.Event) error {
		if err := session.Handle(ctx, ev); err != nil {
			s.logger.Warn("generator reported an error", "key", job.key, "error", err)
		}

		if ev.Type == genstream.EventComplete && job.persist != nil && session.Status() == genstream.StatusSucceeded {
			if err := job.persist(ctx, session.Content()); err != nil {
				s.logger.Error("saving generation result failed", "key", job.key, "error", err)
				ev = genstream.NewErrorEvent("saving generation result failed")
			}
		}

		if err := enc.Emit(ev); err != nil {
			// The client went away; stop the generator.
			cancel()
			return err
		}
		return nil
	})

	err := generator.Run(ctx, s.generator, job.req, emit)
	s.logger.Info("generation finished",
		"kind", string(job.req.Kind),
		"key", job.key,
		"generator", s.generator.Name(),
		"duration", time.Since(start),
		"ok", err == nil,
	)
	if err != nil {
		s.logger.Debug("generation error", "key", job.key, "error", err)
	}
}
