package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"atelier/internal/config"
	"atelier/internal/logging"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	goopenai "github.com/meguminnnnnnnnn/go-openai"
)

// DefaultOpenAIBaseURL is used when no base URL is configured.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

const openAITemperature float32 = 0.7

// OpenAIClient talks to the OpenAI chat completions API or a compatible server.
type OpenAIClient struct {
	chatModel model.BaseChatModel
	model     string
	logger    *logging.AppLogger
}

// NewOpenAIClient creates an OpenAI-compatible client.
func NewOpenAIClient(ctx context.Context, cfg config.LLMConfig, apiKey string, opts Options) (*OpenAIClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	temperature := openAITemperature
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		Model:       cfg.Model,
		APIKey:      apiKey,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTPClient:  opts.HTTPClient,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI chat model: %w", err)
	}

	return &OpenAIClient{
		chatModel: chatModel,
		model:     cfg.Model,
		logger:    opts.Logger,
	}, nil
}

// Process sends a system and a user message and returns the reply.
func (c *OpenAIClient) Process(ctx context.Context, systemPrompt, userContent string) (string, error) {
	c.logger.Debug("Calling OpenAI API", "model", c.model)

	reply, err := c.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userContent),
	})
	if err != nil {
		return "", openAIError(err)
	}
	if reply == nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: "no content in response"}
	}

	c.logger.Info("OpenAI API call successful", "responseBytes", len(reply.Content))
	return reply.Content, nil
}

// openAIError sorts a Generate failure into a provider answer or a transport error.
func openAIError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Provider: ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode, Cause: reqErr.Err}
	}

	var netErr *url.Error
	if errors.As(err, &netErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s API request failed: %w", ProviderOpenAI, err)
	}

	return &ProviderError{Provider: ProviderOpenAI, Message: "invalid response", Cause: err}
}
