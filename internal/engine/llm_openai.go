package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// openaiBackend covers the hosted chat-completion API. "openai" maps to
// gpt-4; any "gpt-*" identifier is passed through as the model name.
type openaiBackend struct {
	client *llm.Client
	model  string
}

func newOpenAIBackend(c Config, model string) *openaiBackend {
	if model == "openai" {
		model = "gpt-4"
	}
	base := c.OpenAIAPIBase
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &openaiBackend{
		client: llm.NewClient(base, c.OpenAIAPIKey, model,
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		),
		model: model,
	}
}

func (b *openaiBackend) Name() string { return "openai/" + b.model }

func (b *openaiBackend) Complete(ctx context.Context, prompt string) (string, error) {
	return b.client.Complete(ctx, "", prompt)
}
