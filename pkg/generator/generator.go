// Package generator produces the event streams behind the blueprint and
// project generation endpoints. A Generator writes genstream events to an
// Emitter as it works; Run turns a returned error into a terminal error event.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/genstream"
	"github.com/inkwellhq/inkwell/pkg/logger"
)

// Kind is what a request generates.
type Kind string

const (
	KindBlueprint Kind = "blueprint"
	KindProject   Kind = "project"
)

const (
	ProviderTemplate = "template"
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
)

// DefaultBlueprintSlots are generated when a blueprint has no fields yet.
var DefaultBlueprintSlots = []string{"headline", "tagline", "body", "callToAction"}

// ErrInvalidRequest is wrapped by every Request.Validate failure.
var ErrInvalidRequest = errors.New("invalid generation request")

// Request carries everything a generator needs. The API server fills it from
// the stored entity and the caller's payload.
type Request struct {
	Kind        Kind   `json:"kind"`
	BlueprintID string `json:"blueprintId,omitempty"`
	ProjectID   string `json:"projectId,omitempty"`
	Name        string `json:"name,omitempty"`

	// SourceText is the copy a blueprint is generated from.
	SourceText string `json:"sourceText,omitempty"`

	// Categories is the field tree of the entity being generated.
	Categories []catalog.Category `json:"categories,omitempty"`

	// FieldValues are caller supplied values keyed by field ID. They take
	// precedence over values stored in Categories.
	FieldValues map[string]string `json:"fieldValues,omitempty"`

	// BlueprintValues are the generated slots of the project's blueprint.
	BlueprintValues map[string]json.RawMessage `json:"blueprintValues,omitempty"`
}

// Validate checks the request has what its kind needs.
func (r *Request) Validate() error {
	switch r.Kind {
	case KindBlueprint:
		if strings.TrimSpace(r.SourceText) == "" {
			return fmt.Errorf("%w: blueprint generation needs source text", ErrInvalidRequest)
		}
	case KindProject:
		if r.ProjectID == "" {
			return fmt.Errorf("%w: project generation needs a project id", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, r.Kind)
	}
	return nil
}

// Slots returns the blueprint slot names: field IDs when the tree has fields,
// DefaultBlueprintSlots otherwise.
func (r *Request) Slots() []string {
	fields := catalog.Fields(r.Categories)
	if len(fields) == 0 {
		return DefaultBlueprintSlots
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.ID
	}
	return out
}

// Values merges the tree's stored field values with FieldValues.
func (r *Request) Values() map[string]string {
	out := catalog.FieldValues(r.Categories)
	for k, v := range r.FieldValues {
		out[k] = v
	}
	return out
}

// Generator produces a generation stream.
type Generator interface {
	// Name is the provider name.
	Name() string

	// Generate emits progress and data events followed by exactly one
	// complete event. On failure it returns an error without emitting a
	// terminal event; Run reports it.
	Generate(ctx context.Context, req Request, em genstream.Emitter) error
}

// Config selects and configures a Generator.
type Config struct {
	Provider string
	Model    string

	// Target is the backend base URL (ollama).
	Target string

	// APIKey authenticates against hosted backends (gemini).
	APIKey string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New builds the Generator named by c.Provider. An empty provider is template.
func New(ctx context.Context, c Config) (Generator, error) {
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	switch strings.ToLower(c.Provider) {
	case ProviderTemplate, "":
		return NewTemplate(), nil
	case ProviderGemini:
		return NewGemini(ctx, c.APIKey, c.Model, c.Logger)
	case ProviderOllama:
		return NewOllama(c.Target, c.Model, c.HTTPClient, c.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", c.Provider)
	}
}

// terminalTracker records whether a terminal event went through.
type terminalTracker struct {
	em   genstream.Emitter
	done bool
}

func (t *terminalTracker) Emit(ev genstream.Event) error {
	if t.done {
		return nil
	}
	if err := t.em.Emit(ev); err != nil {
		return err
	}
	if ev.Type == genstream.EventComplete || ev.Type == genstream.EventError {
		t.done = true
	}
	return nil
}

// Run validates req and runs g. A failure becomes a single error event on em
// and is also returned. Events emitted after a terminal event are dropped.
func Run(ctx context.Context, g Generator, req Request, em genstream.Emitter) error {
	t := &terminalTracker{em: em}

	err := req.Validate()
	if err == nil {
		err = g.Generate(ctx, req, t)
		if err == nil && !t.done {
			err = fmt.Errorf("%s generator finished without a result", g.Name())
		}
	}

	if err != nil && !t.done {
		if emitErr := t.Emit(genstream.NewErrorEvent(err.Error())); emitErr != nil {
			return errors.Join(err, emitErr)
		}
	}
	return err
}

// emitData builds and emits a data event.
func emitData(em genstream.Emitter, key string, value any) error {
	ev, err := genstream.NewDataEvent(key, value)
	if err != nil {
		return err
	}
	return em.Emit(ev)
}

// emitComplete builds and emits the complete event.
func emitComplete(em genstream.Emitter, data any) error {
	ev, err := genstream.NewCompleteEvent(data)
	if err != nil {
		return err
	}
	return em.Emit(ev)
}
