package genclient

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/inkwellhq/inkwell/api"
	"github.com/inkwellhq/inkwell/pkg/genstream"
)

// Result is a finished generation session.
type Result struct {
	// EntityID is the blueprint or project the generation wrote to.
	EntityID string
	Session  *genstream.Session
}

// GenerateBlueprint streams a blueprint generation. Without req.BlueprintID
// the server creates a blueprint, and Result.EntityID is its ID.
func (c *Client) GenerateBlueprint(ctx context.Context, req api.GenerateBlueprintRequest, l genstream.Listener) (*Result, error) {
	trigger := "blueprint:new"
	if req.BlueprintID != "" {
		trigger = "blueprint:" + req.BlueprintID
	}
	return c.generate(ctx, trigger, "/v1/blueprints/generate", req, l, func(resp *http.Response) string {
		if id := resp.Header.Get(api.HeaderBlueprintID); id != "" {
			return id
		}
		return req.BlueprintID
	})
}

// GenerateProject streams a project generation. fieldValues are applied to
// the project before generating and may be nil.
func (c *Client) GenerateProject(ctx context.Context, projectID string, fieldValues map[string]string, l genstream.Listener) (*Result, error) {
	var body any
	if len(fieldValues) > 0 {
		body = api.FieldValuesRequest{FieldValues: fieldValues}
	}
	return c.generate(ctx, "project:"+projectID, "/v1/projects/"+projectID+"/generate", body, l, func(*http.Response) string {
		return projectID
	})
}

// generate runs one stream session for trigger. Every failure, including a
// rejected request, is reported to l exactly once.
func (c *Client) generate(
	ctx context.Context,
	trigger, path string,
	body any,
	l genstream.Listener,
	entityID func(*http.Response) string,
) (*Result, error) {
	if !c.acquire(trigger) {
		return nil, ErrSessionActive
	}
	defer c.release(trigger)

	log := c.logger.With("trigger", trigger)

	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(l, log, "", &genstream.TransportError{Err: err})
	}
	defer resp.Body.Close()

	id := entityID(resp)
	if resp.StatusCode != http.StatusOK {
		return c.fail(l, log, id, statusError(resp))
	}

	var opts []genstream.Option
	if c.maxLineBytes > 0 {
		opts = append(opts, genstream.WithMaxLineBytes(c.maxLineBytes))
	}
	if c.tee != nil {
		opts = append(opts, genstream.WithTee(c.tee))
	}

	session, err := genstream.Consume(ctx, resp.Body, l, log, opts...)
	return &Result{EntityID: id, Session: session}, err
}

// fail closes out a session that never received a stream.
func (c *Client) fail(l genstream.Listener, log *slog.Logger, id string, cause error) (*Result, error) {
	log.Warn("generation request failed", "error", cause)

	session := genstream.NewSession(l, log)
	session.Start()
	return &Result{EntityID: id, Session: session}, session.Finish(cause)
}
