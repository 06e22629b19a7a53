package engine

import (
	"context"
	"strings"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain json untouched",
			raw:  `{"name": "Anna"}`,
			want: `{"name": "Anna"}`,
		},
		{
			name: "json fence",
			raw:  "```json\n{\"name\": \"Anna\"}\n```",
			want: `{"name": "Anna"}`,
		},
		{
			name: "bare fence",
			raw:  "```\n[{\"name\": \"Anna\"}]\n```",
			want: `[{"name": "Anna"}]`,
		},
		{
			name: "trailing comma in object",
			raw:  `{"name": "Anna",}`,
			want: `{"name": "Anna"}`,
		},
		{
			name: "trailing comma in array",
			raw:  `["fatigue", "cramps",]`,
			want: `["fatigue", "cramps"]`,
		},
		{
			name: "fence and trailing comma",
			raw:  "```json\n{\"symptoms\": [\"fatigue\",],}\n```",
			want: `{"symptoms": ["fatigue"]}`,
		},
		{
			name: "surrounding whitespace",
			raw:  "\n\n  {\"a\": 1}  \n",
			want: `{"a": 1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.raw); got != tt.want {
				t.Errorf("stripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectBackend(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		wantName string
		wantErr  bool
	}{
		{"ollama exact match", "llama3.2", "ollama", false},
		{"ollama deepseek", "deepseek-r1:14b", "ollama", false},
		{"ollama case folded", "LLaMA3", "ollama", false},
		{"azure gpt-4", "azure-gpt-4", "azure", false},
		{"azure gpt-4o", "azure-gpt-4o", "azure", false},
		{"gemini", "gemini", "gemini", false},
		{"openai gpt prefix", "gpt-4-turbo", "openai", false},
		{"openai alias", "openai", "openai", false},
		{"unknown model", "claude-haiku", "", true},
		{"empty model", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{
				LLMModel:      tt.model,
				OllamaBaseURL: "http://localhost:11434",
				OpenAIAPIKey:  "sk-test",
				AzureEndpoint: "https://example.openai.azure.com",
				AzureAPIKey:   "azkey",
				GeminiAPIKey:  "gmkey",
			}
			b, err := SelectBackend(c)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for model %q", tt.model)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasPrefix(b.Name(), tt.wantName+"/") {
				t.Errorf("backend name = %q, want %s variant", b.Name(), tt.wantName)
			}
		})
	}
}

type fakeBackend struct {
	reply string
	err   error
}

func (f *fakeBackend) Complete(_ context.Context, _ string) (string, error) {
	return f.reply, f.err
}

func (f *fakeBackend) Name() string { return "fake" }

func TestAnalyzeTranscript(t *testing.T) {
	SetPromptTemplate("Title: {title}\nTranscript: {transcript}\nID: {videoId}")

	t.Run("empty transcript skipped", func(t *testing.T) {
		cfg.LLMBackend = &fakeBackend{reply: `{"name":"x"}`}
		got, err := AnalyzeTranscript(context.Background(), "vid123", "   ", "A title")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil results for empty transcript, got %v", got)
		}
	})

	t.Run("fenced reply parsed", func(t *testing.T) {
		cfg.LLMBackend = &fakeBackend{reply: "```json\n[{\"name\":\"Anna\",\"symptoms\":[\"fatigue\"],}]\n```"}
		got, err := AnalyzeTranscript(context.Background(), "vid123", "patient talks about fatigue", "A title")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 result, got %d", len(got))
		}
		if got[0].Name == nil || *got[0].Name != "Anna" {
			t.Errorf("name = %v, want Anna", got[0].Name)
		}
	})

	t.Run("empty reply yields nothing", func(t *testing.T) {
		cfg.LLMBackend = &fakeBackend{reply: "  \n"}
		got, err := AnalyzeTranscript(context.Background(), "vid123", "some text", "A title")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil results, got %v", got)
		}
	})

	t.Run("unparseable reply errors", func(t *testing.T) {
		cfg.LLMBackend = &fakeBackend{reply: "I cannot answer that."}
		_, err := AnalyzeTranscript(context.Background(), "vid123", "some text", "A title")
		if err == nil {
			t.Fatal("expected error for unparseable reply")
		}
		if !strings.Contains(err.Error(), "vid123") {
			t.Errorf("error should name the item: %v", err)
		}
	})
}
