package llm

import (
	"context"
	"net/http"
	"os"
	"strings"

	"atelier/internal/config"
	"atelier/internal/logging"
)

// DefaultOllamaURL is used when neither config nor OLLAMA_HOST name a server.
const DefaultOllamaURL = "http://localhost:11434"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// OllamaClient talks to a local Ollama server.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	logger     *logging.AppLogger
}

// NewOllamaClient creates an Ollama client. The server address comes from
// cfg.BaseURL, then OLLAMA_HOST, then DefaultOllamaURL.
func NewOllamaClient(cfg config.LLMConfig, opts Options) *OllamaClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaClient{
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		logger:     opts.Logger,
	}
}

// BaseURL returns the server address in use.
func (c *OllamaClient) BaseURL() string {
	return c.baseURL
}

// Process runs a non-streaming chat request.
func (c *OllamaClient) Process(ctx context.Context, systemPrompt, userContent string) (string, error) {
	url := c.baseURL + "/api/chat"
	c.logger.Debug("Calling Ollama API", "model", c.model, "url", url)

	req := ollamaRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Stream: false,
	}

	var resp ollamaResponse
	if err := postJSON(ctx, c.httpClient, ProviderOllama, url, nil, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", &ProviderError{Provider: ProviderOllama, Message: resp.Error}
	}
	if resp.Message.Content == "" {
		return "", &ProviderError{Provider: ProviderOllama, Message: "no message in response"}
	}

	c.logger.Info("Ollama API call successful", "responseBytes", len(resp.Message.Content))
	return resp.Message.Content, nil
}
