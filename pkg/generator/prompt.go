package generator

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/inkwellhq/inkwell/pkg/catalog"
)

const systemPrompt = "You are a senior marketing copywriter. Write clear, specific, on-brand copy. Never invent product facts that are not in the input."

func buildBlueprintPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Turn the source copy below into a reusable content blueprint.\n")
	b.WriteString("Return ONLY a JSON object whose keys are exactly these slot names and whose values are strings:\n")
	for _, slot := range req.Slots() {
		label := slot
		if f, ok := catalog.FindField(req.Categories, slot); ok && f.Label != "" {
			label = f.Label
		}
		fmt.Fprintf(&b, "- %s: %s\n", slot, label)
	}
	b.WriteString("\nSource copy:\n")
	b.WriteString(req.SourceText)
	return b.String()
}

func buildProjectPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Write marketing copy in markdown for the project described below. ")
	b.WriteString("Use one heading per section and keep each section short.\n\n")
	if req.Name != "" {
		fmt.Fprintf(&b, "Project: %s\n\n", req.Name)
	}

	values := req.Values()
	_ = catalog.WalkCategories(req.Categories, func(c *catalog.Category, depth int) error {
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", depth-1), c.Name)
		for _, f := range c.Fields {
			if v := values[f.ID]; v != "" {
				fmt.Fprintf(&b, "%s- %s: %s\n", strings.Repeat("  ", depth), f.Label, v)
			}
		}
		return nil
	})

	if len(req.BlueprintValues) > 0 {
		b.WriteString("\nBlueprint:\n")
		keys := make([]string, 0, len(req.BlueprintValues))
		for k := range req.BlueprintValues {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, req.BlueprintValues[k])
		}
	}
	return b.String()
}

// parseSlotValues extracts the JSON object from a model response, which may
// be wrapped in a markdown code block, and keeps only string values.
func parseSlotValues(response string) (map[string]string, error) {
	jsonStr := response
	if idx := strings.Index(response, "{"); idx >= 0 {
		if end := strings.LastIndex(response, "}"); end > idx {
			jsonStr = response[idx : end+1]
		}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal blueprint JSON: %w", err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
		default:
			b, _ := json.Marshal(t)
			out[k] = string(b)
		}
	}
	return out, nil
}
