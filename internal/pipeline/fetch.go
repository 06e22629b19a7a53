// Package pipeline holds the sequential drivers behind the CLI: fetch video
// metadata, fetch transcripts, run LLM analysis, scrape web pages, and the
// combined end-to-end run. Stages communicate through the store and through
// optional JSON artifact files; item-level failures are logged and skipped
// so one bad video never aborts a batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anatolykoptev/go_medscan/internal/engine"
	"github.com/anatolykoptev/go_medscan/internal/engine/sources"
	"github.com/anatolykoptev/go_medscan/internal/store"
)

// FetchOptions selects what the fetch stage does: a single video lookup when
// VideoID is set, otherwise a full search across Phrases (or SearchName used
// as the only phrase).
type FetchOptions struct {
	SearchName   string
	Phrases      []string
	VideoID      string
	MaxResults   int
	StartDate    time.Time
	EndDate      time.Time
	OutputFile   string // metadata JSON, merged unique by id
	VideoIDsFile string // id list JSON, merged unique
}

// Fetch searches (or looks up) videos, stores each one plus the search
// config, and optionally appends to the artifact files. Returns the videos
// fetched in this run.
func Fetch(ctx context.Context, yt *sources.YouTube, st store.Store, opts FetchOptions) ([]engine.VideoMetadata, error) {
	if opts.SearchName == "" && opts.VideoID == "" {
		return nil, errors.New("fetch: search name or video id required")
	}

	label := opts.SearchName
	if label == "" {
		label = opts.VideoID
	}

	var fetched []engine.VideoMetadata
	if opts.VideoID != "" {
		video, err := yt.GetVideoDetails(ctx, opts.VideoID)
		if err != nil {
			return nil, err
		}
		if video == nil {
			slog.Warn("fetch: no metadata found", slog.String("video_id", opts.VideoID))
		} else {
			video.SearchName = label
			if err := storeVideoPage(ctx, st, opts, []engine.VideoMetadata{*video}); err != nil {
				return nil, err
			}
			fetched = append(fetched, *video)
		}
	} else {
		phrases := opts.Phrases
		if len(phrases) == 0 {
			phrases = []string{opts.SearchName}
		}

		// Artifact files start empty for a search run; pages append into them.
		for _, path := range []string{opts.OutputFile, opts.VideoIDsFile} {
			if path != "" {
				if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
					return nil, fmt.Errorf("fetch: reset %s: %w", path, err)
				}
			}
		}

		searchOpts := engine.SearchOptions{
			MaxResults: opts.MaxResults,
			StartDate:  opts.StartDate,
			EndDate:    opts.EndDate,
		}
		for _, phrase := range phrases {
			slog.Info("fetch: searching", slog.String("phrase", phrase), slog.String("search_name", label))
			before := len(fetched)
			for page, err := range yt.SearchVideos(ctx, phrase, searchOpts) {
				if err != nil {
					return fetched, fmt.Errorf("fetch %q: %w", phrase, err)
				}
				for i := range page {
					page[i].SearchName = label
				}
				if err := storeVideoPage(ctx, st, opts, page); err != nil {
					return fetched, err
				}
				fetched = append(fetched, page...)
			}
			slog.Info("fetch: phrase complete",
				slog.String("phrase", phrase),
				slog.Int("videos", len(fetched)-before))
		}
	}

	phrase := label
	if len(opts.Phrases) > 0 {
		phrase = strings.Join(opts.Phrases, ", ")
	}
	if err := st.UpsertSearchConfig(ctx, "default_user", phrase, label); err != nil {
		return fetched, err
	}
	engine.IncrStoreWrite()

	slog.Info("fetch: complete", slog.String("search_name", label), slog.Int("total", len(fetched)))
	return fetched, nil
}

// storeVideoPage persists one page and appends it to the artifact files.
// Store failures are per-video recoverable; file failures abort.
func storeVideoPage(ctx context.Context, st store.Store, opts FetchOptions, page []engine.VideoMetadata) error {
	if opts.OutputFile != "" {
		if err := appendUniqueVideos(opts.OutputFile, page); err != nil {
			return err
		}
	}
	if opts.VideoIDsFile != "" {
		ids := make([]string, len(page))
		for i, v := range page {
			ids[i] = v.ID
		}
		if err := appendUniqueIDs(opts.VideoIDsFile, ids); err != nil {
			return err
		}
	}

	for _, v := range page {
		if err := st.UpsertVideo(ctx, v); err != nil {
			slog.Error("fetch: store failed", slog.String("video_id", v.ID), slog.Any("error", err))
			continue
		}
		engine.IncrStoreWrite()
	}
	return nil
}
