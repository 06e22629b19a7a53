package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Backend is one LLM integration. Exactly one is selected at startup from
// the configured model identifier; requests never switch backends.
type Backend interface {
	// Complete sends a filled prompt and returns the raw reply text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Name identifies the backend variant for logging.
	Name() string
}

// ollamaModels are the self-hosted completion models served by an Ollama
// instance. Matched exactly, lowercased.
var ollamaModels = map[string]bool{
	"deepseek-r1:1.5b": true,
	"deepseek-r1:14b":  true,
	"llama3.2-vision":  true,
	"dolphin3":         true,
	"llama3":           true,
	"llama3.1":         true,
	"llama3.2":         true,
}

// SelectBackend maps the configured model identifier to exactly one backend
// variant. An identifier matching no known pattern is a configuration error
// and aborts startup.
func SelectBackend(c Config) (Backend, error) {
	model := strings.ToLower(strings.TrimSpace(c.LLMModel))

	switch {
	case ollamaModels[model]:
		return newOllamaBackend(c, model), nil
	case model == "azure-gpt-4":
		return newAzureBackend(c, "gpt-4"), nil
	case model == "azure-gpt-4o":
		return newAzureBackend(c, "gpt-4o"), nil
	case model == "gemini":
		return newGeminiBackend(c), nil
	case strings.HasPrefix(model, "gpt-") || model == "openai":
		return newOpenAIBackend(c, model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM model: %q", c.LLMModel)
	}
}

// CallLLM sends a prompt to the selected backend and returns the raw reply.
func CallLLM(ctx context.Context, prompt string) (string, error) {
	metrics.LLMCalls.Add(1)
	if cfg.LLMBackend == nil {
		metrics.LLMErrors.Add(1)
		return "", fmt.Errorf("no LLM backend configured")
	}
	reply, err := cfg.LLMBackend.Complete(ctx, prompt)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return reply, nil
}

var trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)

// stripFences removes markdown code fences (with or without a json language
// tag) and trailing commas before a closing bracket or brace, leaving a
// string that should parse as JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	return trailingCommaRe.ReplaceAllString(s, "$1")
}
