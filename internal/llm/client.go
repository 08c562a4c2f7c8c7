// Package llm sends a pattern's system prompt and user content to a hosted
// or local language model.
//
// Supported providers are openai, anthropic and ollama. Provider-side
// failures are reported as *ProviderError; network failures are returned as
// wrapped transport errors.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"atelier/internal/config"
	"atelier/internal/logging"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// DefaultRequestTimeout bounds a single completion request.
const DefaultRequestTimeout = 2 * time.Minute

// ErrUnsupportedProvider is returned for unknown provider names.
var ErrUnsupportedProvider = errors.New("unsupported LLM provider")

// Client processes content with a system prompt.
type Client interface {
	Process(ctx context.Context, systemPrompt, userContent string) (string, error)
}

// ProviderError is a non-success answer from a provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s API error", e.Provider)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s %d", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ValidateProvider checks that name is a supported provider.
func ValidateProvider(name string) error {
	switch name {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
}

// Options carries the dependencies shared by all providers.
type Options struct {
	HTTPClient *http.Client
	Logger     *logging.AppLogger
}

// New builds the client for cfg.Provider. API keys are resolved through creds.
func New(cfg config.LLMConfig, creds *CredentialStore, opts Options) (Client, error) {
	if err := ValidateProvider(cfg.Provider); err != nil {
		return nil, err
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetDefault()
	}

	if cfg.Provider == ProviderOllama {
		return NewOllamaClient(cfg, opts), nil
	}

	if creds == nil {
		creds = NewCredentialStore()
	}
	key, err := creds.APIKey(cfg.Provider)
	if err != nil {
		return nil, err
	}

	if cfg.Provider == ProviderOpenAI {
		return NewOpenAIClient(context.Background(), cfg, key, opts)
	}
	return NewAnthropicClient(cfg, key, opts), nil
}
