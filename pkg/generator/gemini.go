package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// geminiStreamer streams text from the Gemini API.
type geminiStreamer struct {
	client *genai.Client
	model  string
}

// NewGemini returns a Generator backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string, log *slog.Logger) (Generator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini generator requires an API key")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	return &modelGenerator{
		name:     ProviderGemini,
		streamer: &geminiStreamer{client: client, model: model},
		logger:   log,
	}, nil
}

func (g *geminiStreamer) streamText(ctx context.Context, system, prompt string, onDelta func(string) error) error {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}

	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), config) {
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}
		if text := resp.Text(); text != "" {
			if err := onDelta(text); err != nil {
				return err
			}
		}
	}
	return nil
}
