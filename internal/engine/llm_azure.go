package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// azureBackend talks to an Azure OpenAI chat deployment. The deployment name
// follows the requested model: gpt-4o gets its own deployment, anything else
// uses the configured default.
type azureBackend struct {
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	model      string
	client     *http.Client
}

func newAzureBackend(c Config, model string) *azureBackend {
	deployment := c.AzureDeployment
	if model == "gpt-4o" {
		deployment = "gpt-4o"
	}
	return &azureBackend{
		endpoint:   strings.TrimRight(c.AzureEndpoint, "/"),
		apiKey:     c.AzureAPIKey,
		deployment: deployment,
		apiVersion: c.AzureAPIVersion,
		model:      model,
		client:     c.HTTPClient,
	}
}

func (b *azureBackend) Name() string { return "azure/" + b.deployment }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type azureChatReq struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Model       string        `json:"model"`
}

type chatCompletionResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (b *azureBackend) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := cfg.LLMMaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	body, err := json.Marshal(azureChatReq{
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 1,
		TopP:        1,
		Model:       b.model,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		b.endpoint, b.deployment, b.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure %s: %w", b.deployment, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("azure %s HTTP %d: %s", b.deployment, resp.StatusCode, snippet)
	}

	var out chatCompletionResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode azure response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("azure %s: %s", b.deployment, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("azure %s: empty choices", b.deployment)
	}
	return out.Choices[0].Message.Content, nil
}
