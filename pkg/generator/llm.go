package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkwellhq/inkwell/pkg/genstream"
)

// textStreamer sends one prompt to a model and reports text as it arrives.
type textStreamer interface {
	streamText(ctx context.Context, system, prompt string, onDelta func(string) error) error
}

// modelGenerator drives a textStreamer and turns its output into events.
// Gemini and Ollama differ only in their textStreamer.
type modelGenerator struct {
	name     string
	streamer textStreamer
	logger   *slog.Logger
}

func (m *modelGenerator) Name() string { return m.name }

func (m *modelGenerator) Generate(ctx context.Context, req Request, em genstream.Emitter) error {
	if err := em.Emit(genstream.NewProgressEvent(5, "Sending request to "+m.name)); err != nil {
		return err
	}

	switch req.Kind {
	case KindBlueprint:
		return m.blueprint(ctx, req, em)
	case KindProject:
		return m.project(ctx, req, em)
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, req.Kind)
}

func (m *modelGenerator) blueprint(ctx context.Context, req Request, em genstream.Emitter) error {
	text, err := m.collect(ctx, buildBlueprintPrompt(req), em, nil)
	if err != nil {
		return err
	}

	if err := em.Emit(genstream.NewProgressEvent(92, "Parsing response")); err != nil {
		return err
	}

	values, err := parseSlotValues(text)
	if err != nil {
		m.logger.Debug("unparseable blueprint response", "provider", m.name, "response", text)
		return fmt.Errorf("%s returned an unusable blueprint: %w", m.name, err)
	}

	for _, slot := range req.Slots() {
		v, ok := values[slot]
		if !ok {
			continue
		}
		if err := emitData(em, genstream.KeyBlueprintValues, map[string]string{slot: v}); err != nil {
			return err
		}
	}

	return emitComplete(em, map[string]any{genstream.KeyBlueprintValues: values})
}

func (m *modelGenerator) project(ctx context.Context, req Request, em genstream.Emitter) error {
	// aiContent replaces the previous value, so every send carries the whole
	// document. It is only re-rendered when a paragraph completes, which keeps
	// the number of renders tied to paragraphs instead of chunks. The complete
	// event carries the final paragraph.
	var done int
	text, err := m.collect(ctx, buildProjectPrompt(req), em, func(md string) error {
		i := strings.LastIndex(md[done:], "\n\n")
		if i < 0 {
			return nil
		}
		done += i + 2

		html, err := toHTML(md[:done])
		if err != nil {
			return err
		}
		return emitData(em, genstream.KeyAIContent, html)
	})
	if err != nil {
		return err
	}

	html, err := toHTML(text)
	if err != nil {
		return err
	}
	return emitComplete(em, map[string]any{genstream.KeyAIContent: html})
}

// collect streams the prompt, emitting progress per chunk, and returns the
// full text. onText, when set, receives the accumulated text after each chunk.
func (m *modelGenerator) collect(ctx context.Context, prompt string, em genstream.Emitter, onText func(string) error) (string, error) {
	var (
		b      strings.Builder
		chunks int
	)

	err := m.streamer.streamText(ctx, systemPrompt, prompt, func(delta string) error {
		b.WriteString(delta)
		chunks++

		if err := em.Emit(genstream.NewProgressEvent(chunkProgress(chunks), "Generating...")); err != nil {
			return err
		}
		if onText != nil {
			return onText(b.String())
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%s returned no content", m.name)
	}

	m.logger.Debug("model response received", "provider", m.name, "chunks", chunks, "bytes", b.Len())
	return b.String(), nil
}

// chunkProgress maps a chunk count onto 10..90 so progress keeps moving
// without knowing the response length.
func chunkProgress(chunks int) int {
	return min(10+chunks*4, 90)
}
