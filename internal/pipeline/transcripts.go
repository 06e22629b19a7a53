package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_medscan/internal/engine"
	"github.com/anatolykoptev/go_medscan/internal/engine/sources"
	"github.com/anatolykoptev/go_medscan/internal/store"
)

// TranscriptOptions selects the videos to fetch transcripts for: a single
// VideoID, an explicit id list, or an InputFile holding a JSON id array.
type TranscriptOptions struct {
	VideoID    string
	VideoIDs   []string
	InputFile  string
	OutputFile string // transcripts JSON array
}

// Transcripts fetches a transcript per video, storing every row including
// the unavailable sentinel, and returns the batch. A store of nil skips
// persistence (file-only runs).
func Transcripts(ctx context.Context, st store.Store, opts TranscriptOptions) ([]engine.Transcript, error) {
	ids, err := resolveTranscriptIDs(opts)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		slog.Warn("transcripts: no video ids to process")
	} else {
		slog.Info("transcripts: starting", slog.Int("videos", len(ids)))
	}

	out := make([]engine.Transcript, 0, len(ids))
	for i, id := range ids {
		tr, err := sources.FetchTranscript(ctx, id)
		if err != nil {
			if !errors.Is(err, sources.ErrNoTranscript) {
				slog.Error("transcripts: fetch failed", slog.String("video_id", id), slog.Any("error", err))
			} else {
				slog.Warn("transcripts: none available", slog.String("video_id", id))
			}
			tr = engine.Transcript{VideoID: id, Text: engine.TranscriptUnavailable, Language: "none"}
		}

		if st != nil {
			if err := st.UpsertTranscript(ctx, tr); err != nil {
				slog.Error("transcripts: store failed", slog.String("video_id", id), slog.Any("error", err))
			} else {
				engine.IncrStoreWrite()
			}
		}

		out = append(out, tr)
		slog.Info("transcripts: progress", slog.Int("done", i+1), slog.Int("total", len(ids)))
	}

	if opts.OutputFile != "" {
		if err := writeJSONFile(opts.OutputFile, out); err != nil {
			return out, err
		}
		slog.Info("transcripts: wrote output", slog.String("file", opts.OutputFile), slog.Int("count", len(out)))
	}
	return out, nil
}

func resolveTranscriptIDs(opts TranscriptOptions) ([]string, error) {
	switch {
	case opts.VideoID != "":
		return []string{opts.VideoID}, nil
	case len(opts.VideoIDs) > 0:
		return opts.VideoIDs, nil
	case opts.InputFile != "":
		var ids []string
		if err := readJSONFile(opts.InputFile, &ids); err != nil {
			return nil, err
		}
		return ids, nil
	}
	return nil, fmt.Errorf("transcripts: video id or input file required")
}
