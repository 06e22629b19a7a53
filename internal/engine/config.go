package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from the command layer.
type Config struct {
	// YouTube Data API credential pool, tried in order on quota exhaustion.
	YouTubeAPIKeys []string

	// Transcript language preference, tried in order before the auto fallback.
	TranscriptLanguages []string

	// LLM backend selection and per-backend settings.
	LLMModel        string
	OllamaBaseURL   string
	OllamaUser      string
	OllamaPassword  string
	OpenAIAPIKey    string
	OpenAIAPIBase   string
	GeminiAPIKey    string
	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string
	AzureAPIVersion string
	LLMMaxTokens    int
	LLMTemperature  float64

	// Prompt library file (YAML). Missing file or template is fatal at startup.
	PromptLibraryPath string

	// Scraper limits.
	MaxContentChars int
	FetchTimeout    time.Duration

	// YouTube API pacing, requests per second (0 = unpaced).
	APIRequestsPerSecond float64

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	// Persistence targets. DatabaseURL selects Postgres; when empty the
	// store falls back to a local SQLite file at SQLitePath.
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	HTTPClient *http.Client
	LLMBackend Backend // selected once at startup via SelectBackend
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, pipeline).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if len(c.TranscriptLanguages) == 0 {
		c.TranscriptLanguages = []string{"en", "fr", "hi", "de", "es"}
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = 6000
	}
	cfg = c
	Cfg = &cfg
}
