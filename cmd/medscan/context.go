package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/joho/godotenv"

	"github.com/anatolykoptev/go_medscan/internal/engine"
	"github.com/anatolykoptev/go_medscan/internal/engine/sources"
	"github.com/anatolykoptev/go_medscan/internal/store"
)

// commandContext wires the engine, LLM backend, and store lazily so commands
// only pay for what they use. Engine config is read from the environment
// once, before any command runs.
type commandContext struct {
	envFile *string

	engineOnce sync.Once
	engineErr  error

	llmOnce sync.Once
	llmErr  error
}

func newCommandContext(envFile *string) *commandContext {
	return &commandContext{envFile: envFile}
}

// ensureEngine loads the .env file and initializes the engine configuration
// and response cache.
func (c *commandContext) ensureEngine() error {
	c.engineOnce.Do(func() {
		if c.envFile != nil && *c.envFile != "" {
			if err := godotenv.Load(*c.envFile); err != nil {
				slog.Debug("no env file loaded", slog.String("path", *c.envFile))
			}
		}

		cfg := engine.Config{
			YouTubeAPIKeys:       env.List("YOUTUBE_API_KEYS", env.Str("YOUTUBE_API_KEY", "")),
			TranscriptLanguages:  env.List("TRANSCRIPT_LANGUAGES", "en,fr,hi,de,es"),
			LLMModel:             env.Str("LLM_MODEL", "llama3.2"),
			OllamaBaseURL:        env.Str("OLLAMA_BASE_URL", "http://127.0.0.1:11434"),
			OllamaUser:           env.Str("OLLAMA_USER", ""),
			OllamaPassword:       env.Str("OLLAMA_PASSWORD", ""),
			OpenAIAPIKey:         env.Str("OPENAI_API_KEY", ""),
			OpenAIAPIBase:        env.Str("OPENAI_API_BASE", "https://api.openai.com/v1"),
			GeminiAPIKey:         env.Str("GEMINI_API_KEY", ""),
			AzureEndpoint:        env.Str("AZURE_OPENAI_ENDPOINT", ""),
			AzureAPIKey:          env.Str("AZURE_OPENAI_API_KEY", ""),
			AzureDeployment:      env.Str("AZURE_OPENAI_DEPLOYMENT", "gpt-4"),
			AzureAPIVersion:      env.Str("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
			LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 4096),
			LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.1),
			PromptLibraryPath:    env.Str("PROMPT_LIBRARY_PATH", "prompt_library.yaml"),
			MaxContentChars:      env.Int("MAX_CONTENT_CHARS", 6000),
			FetchTimeout:         env.Duration("FETCH_TIMEOUT", 30*time.Second),
			APIRequestsPerSecond: env.Float("API_REQUESTS_PER_SECOND", 5),
			CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
			CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
			DatabaseURL:          env.Str("DATABASE_URL", ""),
			SQLitePath:           env.Str("SQLITE_PATH", "medscan.db"),
			RedisURL:             env.Str("REDIS_URL", ""),
			HTTPClient: &http.Client{
				Timeout: 30 * time.Second,
				Transport: &http.Transport{
					MaxIdleConns:        20,
					MaxIdleConnsPerHost: 10,
					IdleConnTimeout:     60 * time.Second,
				},
			},
		}
		engine.Init(cfg)

		cacheTTL := env.Duration("CACHE_TTL", 15*time.Minute)
		engine.InitCache(cfg.RedisURL, cacheTTL, cfg.CacheMaxEntries, cfg.CacheCleanupInterval)
	})
	return c.engineErr
}

// ensureLLM selects the backend and loads the prompt library. Commands that
// run analysis call this; an unknown model or missing prompt file aborts.
func (c *commandContext) ensureLLM() error {
	c.llmOnce.Do(func() {
		backend, err := engine.SelectBackend(*engine.Cfg)
		if err != nil {
			c.llmErr = err
			return
		}
		engine.Cfg.LLMBackend = backend
		slog.Info("llm backend selected", slog.String("backend", backend.Name()))

		if err := engine.LoadPromptLibrary(engine.Cfg.PromptLibraryPath); err != nil {
			c.llmErr = err
			return
		}
	})
	return c.llmErr
}

// openStore connects to Postgres when DATABASE_URL is set, otherwise opens
// the local SQLite file.
func (c *commandContext) openStore(ctx context.Context) (store.Store, error) {
	if engine.Cfg.DatabaseURL != "" {
		st, err := store.ConnectPostgres(ctx, engine.Cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		slog.Info("store: postgres connected")
		return st, nil
	}

	st, err := store.OpenSQLite(ctx, engine.Cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	slog.Info("store: sqlite open", slog.String("path", engine.Cfg.SQLitePath))
	return st, nil
}

func (c *commandContext) newYouTube() (*sources.YouTube, error) {
	return sources.NewYouTube()
}
