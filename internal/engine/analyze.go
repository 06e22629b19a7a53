package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// AnalyzeTranscript runs the full extraction for one item: fill the prompt
// template, call the selected backend, clean and parse the reply, and shape
// it by identifier origin. A nil result with nil error means "nothing to
// analyze" (empty transcript, empty array reply); errors are per-item
// recoverable and never abort a batch.
func AnalyzeTranscript(ctx context.Context, id, transcript, title string) ([]AnalysisResult, error) {
	slog.Debug("analysis: starting", slog.String("id", id))

	if strings.TrimSpace(transcript) == "" {
		slog.Warn("analysis: no valid transcript provided", slog.String("id", id))
		return nil, nil
	}
	slog.Debug("analysis: transcript loaded",
		slog.String("id", id),
		slog.Int("length", len(transcript)),
		slog.String("preview", Preview(transcript, 100)))

	prompt, err := FillTemplate(id, transcript, title)
	if err != nil {
		return nil, err
	}
	slog.Debug("analysis: prompt built", slog.String("id", id), slog.String("preview", Preview(prompt, 200)))

	reply, err := CallLLM(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm call for %s: %w", id, err)
	}
	if strings.TrimSpace(reply) == "" {
		slog.Warn("analysis: empty LLM reply", slog.String("id", id))
		return nil, nil
	}
	slog.Debug("analysis: raw reply", slog.String("id", id), slog.String("preview", Preview(reply, 200)))

	cleaned := stripFences(reply)
	results, err := Normalize(id, cleaned)
	if err != nil {
		slog.Warn("analysis: parse failed",
			slog.String("id", id),
			slog.Any("error", err),
			slog.String("reply", Preview(cleaned, 1000)))
		return nil, fmt.Errorf("normalize reply for %s: %w", id, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	slog.Debug("analysis: completed", slog.String("id", id), slog.Int("results", len(results)))
	return results, nil
}
