package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_medscan/internal/engine"
	"github.com/anatolykoptev/go_medscan/internal/engine/sources"
	"github.com/anatolykoptev/go_medscan/internal/store"
)

// RunOptions configures the end-to-end pipeline for one search.
type RunOptions struct {
	SearchName string
	Phrases    []string
	MaxResults int
	StartDate  time.Time
	EndDate    time.Time
}

// RunSummary reports what each stage of a full run processed.
type RunSummary struct {
	VideosFetched int
	Transcripts   int
	Analyses      int
}

// Run chains fetch, transcripts, and analysis for one search, persisting
// every stage. Stages hand off in memory; no artifact files are written.
func Run(ctx context.Context, yt *sources.YouTube, st store.Store, opts RunOptions) (RunSummary, error) {
	var summary RunSummary

	videos, err := Fetch(ctx, yt, st, FetchOptions{
		SearchName: opts.SearchName,
		Phrases:    opts.Phrases,
		MaxResults: opts.MaxResults,
		StartDate:  opts.StartDate,
		EndDate:    opts.EndDate,
	})
	if err != nil {
		return summary, err
	}
	summary.VideosFetched = len(videos)

	ids := make([]string, len(videos))
	titles := make(map[string]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
		titles[v.ID] = v.Title
	}

	transcripts, err := Transcripts(ctx, st, TranscriptOptions{VideoIDs: ids})
	if err != nil {
		return summary, err
	}
	summary.Transcripts = len(transcripts)

	var available []engine.Transcript
	for _, tr := range transcripts {
		if tr.Available() {
			available = append(available, tr)
		}
	}
	if len(available) == 0 {
		slog.Warn("run: no transcripts available, skipping analysis",
			slog.String("search_name", opts.SearchName))
		return summary, nil
	}

	records, err := Analyze(ctx, st, AnalyzeOptions{Transcripts: available, Titles: titles})
	if err != nil {
		return summary, err
	}
	summary.Analyses = len(records)

	slog.Info("run: pipeline complete",
		slog.String("search_name", opts.SearchName),
		slog.Int("videos", summary.VideosFetched),
		slog.Int("transcripts", summary.Transcripts),
		slog.Int("analyses", summary.Analyses))
	return summary, nil
}
