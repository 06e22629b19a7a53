package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_medscan/internal/engine"
	"github.com/anatolykoptev/go_medscan/internal/engine/sources"
	"github.com/anatolykoptev/go_medscan/internal/store"
)

// AnalyzeOptions selects the transcripts to run extraction on: a single
// VideoID (transcript fetched live), an in-memory batch, or an InputFile in
// either the transcript format or the scraped-page format. MetadataFile
// optionally supplies titles by video id.
type AnalyzeOptions struct {
	VideoID      string
	Transcripts  []engine.Transcript
	InputFile    string
	MetadataFile string
	OutputFile   string // analysis JSON array
	Titles       map[string]string
}

// AnalysisRecord is one emitted result, tagged with the item it came from.
type AnalysisRecord struct {
	VideoID string `json:"videoId"`
	engine.AnalysisResult
}

// analyzeItem is the unified input shape. Identifier is a video id or, for
// scraped pages, the source URL.
type analyzeItem struct {
	ID         string
	Transcript string
	Title      string
}

// Analyze runs LLM extraction over every available transcript in the batch,
// stores video-backed results, and returns all records. Unavailable-sentinel
// transcripts are skipped; per-item failures are logged and skipped.
func Analyze(ctx context.Context, st store.Store, opts AnalyzeOptions) ([]AnalysisRecord, error) {
	items, err := resolveAnalyzeItems(ctx, opts)
	if err != nil {
		return nil, err
	}

	valid := items[:0:0]
	for _, it := range items {
		if it.Transcript != engine.TranscriptUnavailable {
			valid = append(valid, it)
		}
	}
	slog.Info("analyze: starting",
		slog.Int("total", len(items)),
		slog.Int("valid", len(valid)),
		slog.Int("skipped", len(items)-len(valid)))

	var records []AnalysisRecord
	for _, it := range valid {
		results, err := engine.AnalyzeTranscript(ctx, it.ID, it.Transcript, it.Title)
		if err != nil {
			slog.Error("analyze: item failed", slog.String("id", it.ID), slog.Any("error", err))
			continue
		}
		if len(results) == 0 {
			slog.Warn("analyze: no result", slog.String("id", it.ID))
			continue
		}

		for _, r := range results {
			records = append(records, AnalysisRecord{VideoID: it.ID, AnalysisResult: r})

			// Scraped pages have no videos row to attach to; their results
			// live in the output file only.
			if st == nil || strings.HasPrefix(it.ID, "http") {
				continue
			}
			if err := st.UpsertAnalysis(ctx, it.ID, r); err != nil {
				slog.Error("analyze: store failed", slog.String("id", it.ID), slog.Any("error", err))
				continue
			}
			engine.IncrStoreWrite()
		}
		slog.Info("analyze: item complete", slog.String("id", it.ID), slog.Int("results", len(results)))
	}

	if opts.OutputFile != "" {
		if err := writeJSONFile(opts.OutputFile, records); err != nil {
			return records, err
		}
		slog.Info("analyze: wrote output", slog.String("file", opts.OutputFile), slog.Int("count", len(records)))
	}
	return records, nil
}

// rawAnalyzeItem accepts both on-disk input formats: transcript rows
// (videoId/transcript) and scraped pages (id/content).
type rawAnalyzeItem struct {
	VideoID    string `json:"videoId"`
	Transcript string `json:"transcript"`
	ID         string `json:"id"`
	Content    string `json:"content"`
	Title      string `json:"title"`
}

func resolveAnalyzeItems(ctx context.Context, opts AnalyzeOptions) ([]analyzeItem, error) {
	titles := opts.Titles
	if opts.MetadataFile != "" {
		var metadata []engine.VideoMetadata
		if err := readJSONFile(opts.MetadataFile, &metadata); err != nil {
			return nil, err
		}
		if titles == nil {
			titles = make(map[string]string, len(metadata))
		}
		for _, v := range metadata {
			if v.ID != "" && v.Title != "" {
				titles[v.ID] = v.Title
			}
		}
		slog.Debug("analyze: metadata loaded", slog.Int("titles", len(titles)))
	}

	titleFor := func(id, own string) string {
		if own != "" {
			return own
		}
		if t, ok := titles[id]; ok {
			return t
		}
		return "Content " + id
	}

	switch {
	case opts.VideoID != "":
		tr, err := sources.FetchTranscript(ctx, opts.VideoID)
		if err != nil {
			if errors.Is(err, sources.ErrNoTranscript) {
				return nil, fmt.Errorf("analyze: no transcript available for video %s", opts.VideoID)
			}
			return nil, err
		}
		return []analyzeItem{{ID: opts.VideoID, Transcript: tr.Text, Title: titleFor(opts.VideoID, "")}}, nil

	case len(opts.Transcripts) > 0:
		items := make([]analyzeItem, 0, len(opts.Transcripts))
		for _, tr := range opts.Transcripts {
			items = append(items, analyzeItem{ID: tr.VideoID, Transcript: tr.Text, Title: titleFor(tr.VideoID, "")})
		}
		return items, nil

	case opts.InputFile != "":
		var raw []rawAnalyzeItem
		if err := readJSONFile(opts.InputFile, &raw); err != nil {
			return nil, err
		}
		var items []analyzeItem
		for _, r := range raw {
			switch {
			case r.VideoID != "" && r.Transcript != "":
				items = append(items, analyzeItem{ID: r.VideoID, Transcript: r.Transcript, Title: titleFor(r.VideoID, r.Title)})
			case r.ID != "" && r.Content != "":
				items = append(items, analyzeItem{ID: r.ID, Transcript: r.Content, Title: titleFor(r.ID, r.Title)})
			default:
				slog.Error("analyze: invalid input item", slog.String("video_id", r.VideoID), slog.String("id", r.ID))
			}
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("analyze: no valid data in %s", opts.InputFile)
		}
		return items, nil
	}
	return nil, errors.New("analyze: video id, transcripts, or input file required")
}
