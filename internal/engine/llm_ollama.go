package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ollamaBackend talks to a self-hosted Ollama completion endpoint, optionally
// behind basic auth.
type ollamaBackend struct {
	baseURL string
	auth    string // base64 user:password, empty = no auth
	model   string
	client  *http.Client
}

func newOllamaBackend(c Config, model string) *ollamaBackend {
	auth := ""
	if c.OllamaUser != "" {
		auth = base64.StdEncoding.EncodeToString([]byte(c.OllamaUser + ":" + c.OllamaPassword))
	}
	return &ollamaBackend{
		baseURL: c.OllamaBaseURL,
		auth:    auth,
		model:   model,
		client:  c.HTTPClient,
	}
}

func (b *ollamaBackend) Name() string { return "ollama/" + b.model }

type ollamaGenerateReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResp struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (b *ollamaBackend) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaGenerateReq{Model: b.model, Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.auth != "" {
		req.Header.Set("Authorization", "Basic "+b.auth)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama HTTP %d: %s", resp.StatusCode, snippet)
	}

	var out ollamaGenerateResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return out.Response, nil
}
