package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client is the interface for chat exchanges with a model server.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (*ChatResponse, error)
}

// OllamaClient talks to Ollama's native /api endpoints.
type OllamaClient struct {
	http  *http.Client
	host  string
	model string
}

// NewClient creates a client for the Ollama server at host (e.g.
// "http://localhost:11434") that sends every request to model.
// Requests carry no deadline beyond the caller's context.
func NewClient(host, model string) *OllamaClient {
	return &OllamaClient{
		http:  &http.Client{},
		host:  strings.TrimRight(host, "/"),
		model: model,
	}
}

// Model returns the model identifier sent with every request.
func (c *OllamaClient) Model() string {
	return c.model
}

// Chat posts the full conversation and tool list to /api/chat and waits for the
// complete, non-streamed response.
func (c *OllamaClient) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (*ChatResponse, error) {
	body, err := json.Marshal(ChatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    toolParams(tools),
		Stream:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting chat: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out ChatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListModels queries Ollama's /api/tags endpoint for locally available models.
func (c *OllamaClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return result.Models, nil
}
