// Package store persists videos, transcripts, analysis results and saved
// searches. All three content tables share the video identifier as their
// key and cascade-delete from the videos row; upserts overwrite every
// column unconditionally.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anatolykoptev/go_medscan/internal/engine"
)

// ErrNotFound marks a lookup that matched no row.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract. Postgres is the production backend;
// SQLite serves single-node setups and tests.
type Store interface {
	UpsertVideo(ctx context.Context, v engine.VideoMetadata) error
	UpsertTranscript(ctx context.Context, t engine.Transcript) error
	UpsertAnalysis(ctx context.Context, videoID string, a engine.AnalysisResult) error
	UpsertSearchConfig(ctx context.Context, userID, searchPhrase, searchName string) error

	// SearchConfigByLabel matches the label case-insensitively. A missing
	// label returns ErrNotFound.
	SearchConfigByLabel(ctx context.Context, label string) (*SearchConfig, error)

	DashboardCounts(ctx context.Context, label string) (DashboardCounts, error)
	VideoAnalysis(ctx context.Context, videoID string) (*VideoAnalysis, error)
	ContentItems(ctx context.Context, label string, videoTypes []string) ([]ContentItem, error)

	// VideoIDs lists identifiers stored under a search label, for pipeline
	// stages that re-walk stored videos.
	VideoIDs(ctx context.Context, label string) ([]string, error)

	// DeleteVideo removes a video row; transcript and analysis rows cascade.
	// A missing video returns ErrNotFound.
	DeleteVideo(ctx context.Context, videoID string) error

	Close()
}

// SearchConfig is a named saved search.
type SearchConfig struct {
	UserID       string    `json:"user_id"`
	SearchPhrase string    `json:"search_phrase"`
	SearchName   string    `json:"search_name"`
	CreationDate time.Time `json:"creation_date"`
}

// DashboardCounts are the aggregate numbers shown for one search label.
// TranscriptCount excludes unavailable-sentinel rows.
type DashboardCounts struct {
	VideoCount      int       `json:"videoCount"`
	TranscriptCount int       `json:"transcriptCount"`
	PatientStories  int       `json:"patientStoriesCount"`
	KOLInterviews   int       `json:"kolInterviewsCount"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// VideoRow mirrors the videos table for dashboard responses.
type VideoRow struct {
	VideoID         string     `json:"video_id"`
	SearchName      string     `json:"search_name"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	PublishedDate   *time.Time `json:"published_date"`
	DurationSeconds int        `json:"duration_seconds"`
	ViewCount       int64      `json:"view_count"`
	URL             string     `json:"url"`
	ChannelName     string     `json:"channel_name"`
}

// AnalysisRow mirrors the analysis table. JSON-typed columns come back raw
// so the dashboard passes them through untouched.
type AnalysisRow struct {
	VideoType            *string         `json:"video_type"`
	Name                 *string         `json:"name"`
	CurrentAge           *string         `json:"current_age"`
	OnsetAge             *string         `json:"onset_age"`
	Sex                  *string         `json:"sex"`
	Location             *string         `json:"location"`
	Symptoms             json.RawMessage `json:"symptoms"`
	MedicalHistory       json.RawMessage `json:"medical_history_of_patient"`
	FamilyHistory        json.RawMessage `json:"family_medical_history"`
	DiagnosticChallenges json.RawMessage `json:"challenges_faced_during_diagnosis"`
	KeyOpinion           *string         `json:"key_opinion"`
	TopicOfInformation   *string         `json:"topic_of_information"`
	DetailsOfInformation *string         `json:"details_of_information"`
	Headline             *string         `json:"headline"`
	SummaryOfNews        *string         `json:"summary_of_news"`
}

// VideoAnalysis is the single-item dashboard detail.
type VideoAnalysis struct {
	Video               VideoRow     `json:"video"`
	TranscriptAvailable bool         `json:"transcriptAvailable"`
	Analysis            *AnalysisRow `json:"analysis"`
}

// ContentItem is one row of the filtered content listing.
type ContentItem struct {
	VideoID       string     `json:"video_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	URL           string     `json:"url"`
	PublishedDate *time.Time `json:"published_date"`
	ViewCount     int64      `json:"view_count"`
	VideoType     *string    `json:"video_type"`
}

// parsePublished converts the API's RFC 3339 published timestamp, nil when
// empty or unparsable.
func parsePublished(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// jsonOrNull marshals v for a JSON column, nil (SQL NULL) when v is a nil
// pointer or nil slice.
func jsonOrNull(v any) ([]byte, error) {
	switch t := v.(type) {
	case *string:
		if t == nil {
			return nil, nil
		}
	case []string:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
