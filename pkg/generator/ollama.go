package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/inkwellhq/inkwell/pkg/genstream"
)

const (
	defaultOllamaModel  = "llama3.2"
	defaultOllamaTarget = "http://localhost:11434"
)

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error"`
}

// ollamaStreamer streams text from an Ollama /api/chat endpoint.
type ollamaStreamer struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama returns a Generator backed by an Ollama server at target.
func NewOllama(target, model string, client *http.Client, log *slog.Logger) Generator {
	if target == "" {
		target = defaultOllamaTarget
	}
	if model == "" {
		model = defaultOllamaModel
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	return &modelGenerator{
		name: ProviderOllama,
		streamer: &ollamaStreamer{
			baseURL: strings.TrimRight(target, "/"),
			model:   model,
			client:  client,
		},
		logger: log,
	}
}

func (o *ollamaStreamer) streamText(ctx context.Context, system, prompt string, onDelta func(string) error) error {
	payload, err := json.Marshal(ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ollama status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return readOllamaStream(resp.Body, onDelta)
}

// readOllamaStream frames the NDJSON body and reports each message delta
// until a done line.
func readOllamaStream(body io.Reader, onDelta func(string) error) error {
	framer := genstream.NewFramer(genstream.DefaultMaxLineBytes)
	buf := make([]byte, 32*1024)

	handle := func(line []byte) (bool, error) {
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return false, fmt.Errorf("decode ollama chunk: %w", err)
		}
		if chunk.Error != "" {
			return false, fmt.Errorf("ollama error: %s", chunk.Error)
		}
		if chunk.Message.Content != "" {
			if err := onDelta(chunk.Message.Content); err != nil {
				return false, err
			}
		}
		return chunk.Done, nil
	}

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			lines, err := framer.Push(buf[:n])
			if err != nil {
				return err
			}
			for _, line := range lines {
				done, err := handle(line)
				if err != nil || done {
					return err
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read ollama stream: %w", readErr)
		}
	}

	if rest := framer.Flush(); len(rest) > 0 {
		if _, err := handle(rest); err != nil {
			return err
		}
	}
	return nil
}
