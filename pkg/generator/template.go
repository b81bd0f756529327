package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/genstream"
)

// Template is the offline generator. Output is derived from the request
// alone so the same request always produces the same stream.
type Template struct{}

// NewTemplate returns the offline generator.
func NewTemplate() *Template {
	return &Template{}
}

func (t *Template) Name() string { return ProviderTemplate }

// Generate emits one progress and one data event per slot, then complete.
func (t *Template) Generate(ctx context.Context, req Request, em genstream.Emitter) error {
	switch req.Kind {
	case KindBlueprint:
		return t.blueprint(ctx, req, em)
	case KindProject:
		return t.project(ctx, req, em)
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, req.Kind)
}

func (t *Template) blueprint(ctx context.Context, req Request, em genstream.Emitter) error {
	if err := em.Emit(genstream.NewProgressEvent(5, "Analyzing source text")); err != nil {
		return err
	}

	sentences := splitSentences(req.SourceText)
	slots := req.Slots()
	values := make(map[string]string, len(slots))

	for i, slot := range slots {
		if err := ctx.Err(); err != nil {
			return err
		}

		value := sentences[i%len(sentences)]
		if i == 0 {
			value = headline(value)
		}
		values[slot] = value

		progress := 10 + (i+1)*85/len(slots)
		if err := em.Emit(genstream.NewProgressEvent(progress, "Generating "+slot)); err != nil {
			return err
		}
		if err := emitData(em, genstream.KeyBlueprintValues, map[string]string{slot: value}); err != nil {
			return err
		}
	}

	return emitComplete(em, map[string]any{genstream.KeyBlueprintValues: values})
}

func (t *Template) project(ctx context.Context, req Request, em genstream.Emitter) error {
	if err := em.Emit(genstream.NewProgressEvent(5, "Reading project fields")); err != nil {
		return err
	}

	values := req.Values()
	fields := catalog.Fields(req.Categories)
	filled := make(map[string]string, len(fields))

	for i, f := range fields {
		if err := ctx.Err(); err != nil {
			return err
		}

		value := values[f.ID]
		if value == "" {
			value = suggestValue(f, req)
		}
		filled[f.ID] = value
		values[f.ID] = value

		progress := 10 + (i+1)*70/len(fields)
		if err := em.Emit(genstream.NewProgressEvent(progress, "Filling "+f.Label)); err != nil {
			return err
		}
		if err := emitData(em, genstream.KeyFieldValue, map[string]string{f.ID: value}); err != nil {
			return err
		}
	}

	if err := em.Emit(genstream.NewProgressEvent(90, "Composing copy")); err != nil {
		return err
	}

	html, err := toHTML(composeMarkdown(req, values))
	if err != nil {
		return err
	}
	if err := emitData(em, genstream.KeyAIContent, html); err != nil {
		return err
	}

	return emitComplete(em, map[string]any{
		genstream.KeyFieldValue: filled,
		genstream.KeyAIContent:  html,
	})
}

// suggestValue fills an empty field from the blueprint slot of the same ID,
// the first select option, or the field label.
func suggestValue(f catalog.Field, req Request) string {
	if raw, ok := req.BlueprintValues[f.ID]; ok {
		if s := slotText(raw); s != "" {
			return s
		}
	}
	if f.Kind == catalog.FieldSelect && len(f.Options) > 0 {
		return f.Options[0]
	}
	if req.Name != "" {
		return fmt.Sprintf("%s for %s", f.Label, req.Name)
	}
	return f.Label
}

// slotText decodes a blueprint slot for use as a field value. Strings are
// unescaped, numbers and booleans keep their literal form, and anything else
// yields "".
func slotText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var v any
	if json.Unmarshal(raw, &v) != nil {
		return ""
	}
	switch v.(type) {
	case float64, bool:
		return string(bytes.TrimSpace(raw))
	}
	return ""
}

// composeMarkdown lays the tree out as headed sections.
func composeMarkdown(req Request, values map[string]string) string {
	var b strings.Builder
	title := req.Name
	if title == "" {
		title = "Untitled project"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	_ = catalog.WalkCategories(req.Categories, func(c *catalog.Category, depth int) error {
		fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", depth+1), c.Name)
		for _, f := range c.Fields {
			if v := values[f.ID]; v != "" {
				fmt.Fprintf(&b, "**%s:** %s\n\n", f.Label, v)
			}
		}
		return nil
	})
	return b.String()
}

// splitSentences breaks text on terminal punctuation. It never returns an
// empty slice.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(text[start : i+1]); len(s) > 1 {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	if len(out) == 0 {
		out = []string{strings.TrimSpace(text)}
	}
	return out
}

// headline trims a sentence to at most eight words without its final
// punctuation and capitalizes the first letter.
func headline(s string) string {
	words := strings.Fields(s)
	if len(words) > 8 {
		words = words[:8]
	}
	h := strings.TrimRightFunc(strings.Join(words, " "), unicode.IsPunct)
	if h == "" {
		return h
	}
	r := []rune(h)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
