package generatecmder

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/inkwellhq/inkwell/pkg/cliui"
	"github.com/inkwellhq/inkwell/pkg/genstream"
)

// printResult writes a generation result as JSON or as rendered markdown.
func printResult(w io.Writer, trigger, entityID string, content map[string]json.RawMessage, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"trigger":  trigger,
			"entityId": entityID,
			"content":  content,
		})
	}

	md := renderMarkdown(trigger, entityID, content)
	rendered, err := cliui.RenderMarkdown(w, md)
	if err != nil {
		// Fall back to the raw markdown.
		rendered = md
	}
	_, err = io.WriteString(w, rendered)
	return err
}

// renderMarkdown lays a result out as markdown. Slots are listed in key
// order; the HTML copy is shown as a code block.
func renderMarkdown(trigger, entityID string, content map[string]json.RawMessage) string {
	var b strings.Builder
	title := "Generation"
	if trigger != "" {
		title = strings.ToUpper(trigger[:1]) + trigger[1:]
	}
	fmt.Fprintf(&b, "# %s %s\n\n", title, entityID)

	if values, ok := decodeSlots(content[genstream.KeyBlueprintValues]); ok {
		b.WriteString("## Blueprint values\n\n")
		writeSlots(&b, values)
	}
	if values, ok := decodeSlots(content[genstream.KeyFieldValue]); ok {
		b.WriteString("## Field values\n\n")
		writeSlots(&b, values)
	}

	var html string
	if raw, ok := content[genstream.KeyAIContent]; ok && json.Unmarshal(raw, &html) == nil && html != "" {
		b.WriteString("## Copy\n\n```html\n")
		b.WriteString(strings.TrimSpace(html))
		b.WriteString("\n```\n")
	}

	return b.String()
}

func decodeSlots(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil || len(values) == 0 {
		return nil, false
	}
	return values, true
}

func writeSlots(b *strings.Builder, values map[string]json.RawMessage) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		var s string
		if err := json.Unmarshal(values[k], &s); err != nil {
			s = string(values[k])
		}
		fmt.Fprintf(b, "- **%s:** %s\n", k, s)
	}
	b.WriteString("\n")
}
