package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"atelier/internal/config"
	"atelier/internal/logging"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultMaxTokens is used when the configuration leaves max_tokens unset.
const DefaultMaxTokens = 4096

// AnthropicClient calls the Anthropic Messages API through the official SDK.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *logging.AppLogger
}

// NewAnthropicClient creates an Anthropic client.
func NewAnthropicClient(cfg config.LLMConfig, apiKey string, opts Options) *AnthropicClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(opts.HTTPClient),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(reqOpts...),
		model:     anthropic.Model(cfg.Model),
		maxTokens: maxTokens,
		logger:    opts.Logger,
	}
}

// Process sends the system prompt and one user message and returns the
// concatenated text blocks of the reply.
func (c *AnthropicClient) Process(ctx context.Context, systemPrompt, userContent string) (string, error) {
	c.logger.Debug("Calling Anthropic API", "model", c.model)

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userContent)),
		},
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &ProviderError{Provider: ProviderAnthropic, StatusCode: apiErr.StatusCode, Cause: err}
		}
		return "", fmt.Errorf("%s API request failed: %w", ProviderAnthropic, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return "", &ProviderError{Provider: ProviderAnthropic, Message: "no text in response"}
	}

	c.logger.Info("Anthropic API call successful", "responseBytes", text.Len())
	return text.String(), nil
}
