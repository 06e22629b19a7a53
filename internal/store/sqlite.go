package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_medscan/internal/engine"
)

// SQLite implements Store on modernc.org/sqlite for single-node setups and
// tests. Timestamps are stored as RFC 3339 text; JSON columns as text.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS videos (
    video_id TEXT PRIMARY KEY,
    search_name TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    published_date TEXT,
    duration_seconds INTEGER,
    view_count INTEGER,
    url TEXT NOT NULL,
    channel_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transcripts (
    video_id TEXT PRIMARY KEY,
    full_transcript TEXT NOT NULL,
    language TEXT NOT NULL,
    FOREIGN KEY (video_id) REFERENCES videos(video_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS analysis (
    video_id TEXT PRIMARY KEY,
    video_type TEXT,
    name TEXT,
    current_age TEXT,
    onset_age TEXT,
    sex TEXT,
    location TEXT,
    symptoms TEXT,
    medical_history_of_patient TEXT,
    family_medical_history TEXT,
    challenges_faced_during_diagnosis TEXT,
    key_opinion TEXT,
    topic_of_information TEXT,
    details_of_information TEXT,
    headline TEXT,
    summary_of_news TEXT,
    FOREIGN KEY (video_id) REFERENCES videos(video_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS searchconfig (
    param_id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    search_phrase TEXT NOT NULL,
    search_name TEXT NOT NULL UNIQUE,
    creation_date TEXT NOT NULL
);
`

// OpenSQLite opens (creating if needed) a SQLite database at path and
// applies the schema. ":memory:" works for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// The pipeline is a single writer; one connection avoids lock contention.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	slog.Info("sqlite opened", slog.String("path", path))
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() {
	s.db.Close()
}

// timeText formats a timestamp pointer for storage, nil stays NULL.
func timeText(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTimeText converts a stored timestamp back, nil for NULL or bad text.
func parseTimeText(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}

func (s *SQLite) UpsertVideo(ctx context.Context, v engine.VideoMetadata) error {
	searchName := v.SearchName
	if searchName == "" {
		searchName = "unknown"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (video_id, search_name, title, description, published_date, duration_seconds, view_count, url, channel_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id) DO UPDATE SET
			search_name = excluded.search_name,
			title = excluded.title,
			description = excluded.description,
			published_date = excluded.published_date,
			duration_seconds = excluded.duration_seconds,
			view_count = excluded.view_count,
			url = excluded.url,
			channel_name = excluded.channel_name`,
		v.ID, searchName, v.Title, v.Description, timeText(parsePublished(v.PublishedDate)),
		v.DurationInSeconds, v.ViewCount, v.URL, v.ChannelName)
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", v.ID, err)
	}
	return nil
}

func (s *SQLite) UpsertTranscript(ctx context.Context, t engine.Transcript) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (video_id, full_transcript, language)
		VALUES (?, ?, ?)
		ON CONFLICT (video_id) DO UPDATE SET
			full_transcript = excluded.full_transcript,
			language = excluded.language`,
		t.VideoID, t.Text, t.Language)
	if err != nil {
		return fmt.Errorf("upsert transcript %s: %w", t.VideoID, err)
	}
	return nil
}

func (s *SQLite) UpsertAnalysis(ctx context.Context, videoID string, a engine.AnalysisResult) error {
	symptoms, err := jsonOrNull(a.Symptoms)
	if err != nil {
		return err
	}
	medHistory, err := jsonOrNull(a.MedicalHistory)
	if err != nil {
		return err
	}
	famHistory, err := jsonOrNull(a.FamilyHistory)
	if err != nil {
		return err
	}
	challenges, err := jsonOrNull(a.DiagnosticChallenges)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis (
			video_id, video_type, name, current_age, onset_age, sex, location, symptoms,
			medical_history_of_patient, family_medical_history,
			challenges_faced_during_diagnosis, key_opinion,
			topic_of_information, details_of_information, headline, summary_of_news
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id) DO UPDATE SET
			video_type = excluded.video_type,
			name = excluded.name,
			current_age = excluded.current_age,
			onset_age = excluded.onset_age,
			sex = excluded.sex,
			location = excluded.location,
			symptoms = excluded.symptoms,
			medical_history_of_patient = excluded.medical_history_of_patient,
			family_medical_history = excluded.family_medical_history,
			challenges_faced_during_diagnosis = excluded.challenges_faced_during_diagnosis,
			key_opinion = excluded.key_opinion,
			topic_of_information = excluded.topic_of_information,
			details_of_information = excluded.details_of_information,
			headline = excluded.headline,
			summary_of_news = excluded.summary_of_news`,
		videoID, a.VideoType, a.Name, a.CurrentAge, a.OnsetAge, a.Sex, a.Location,
		nullableText(symptoms), nullableText(medHistory), nullableText(famHistory), nullableText(challenges),
		a.KeyOpinion, a.TopicOfInformation, a.DetailsOfInformation, a.Headline, a.SummaryOfNews)
	if err != nil {
		return fmt.Errorf("upsert analysis %s: %w", videoID, err)
	}
	return nil
}

// nullableText converts marshaled JSON bytes to a TEXT value, keeping nil
// as SQL NULL.
func nullableText(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func (s *SQLite) UpsertSearchConfig(ctx context.Context, userID, searchPhrase, searchName string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO searchconfig (user_id, search_phrase, search_name, creation_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (search_name) DO UPDATE SET
			user_id = excluded.user_id,
			search_phrase = excluded.search_phrase,
			creation_date = excluded.creation_date`,
		userID, searchPhrase, searchName, now)
	if err != nil {
		return fmt.Errorf("upsert search config %s: %w", searchName, err)
	}
	return nil
}

func (s *SQLite) SearchConfigByLabel(ctx context.Context, label string) (*SearchConfig, error) {
	var sc SearchConfig
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, search_phrase, search_name, creation_date
		FROM searchconfig WHERE LOWER(search_name) = LOWER(?)`,
		label).Scan(&sc.UserID, &sc.SearchPhrase, &sc.SearchName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("search config %s: %w", label, err)
	}
	if t := parseTimeText(&created); t != nil {
		sc.CreationDate = *t
	}
	return &sc, nil
}

func (s *SQLite) DashboardCounts(ctx context.Context, label string) (DashboardCounts, error) {
	sc, err := s.SearchConfigByLabel(ctx, label)
	if err != nil {
		return DashboardCounts{}, err
	}
	counts := DashboardCounts{LastUpdated: sc.CreationDate}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM videos WHERE LOWER(search_name) = LOWER(?)`,
		label).Scan(&counts.VideoCount); err != nil {
		return counts, fmt.Errorf("video count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transcripts
		WHERE video_id IN (SELECT video_id FROM videos WHERE LOWER(search_name) = LOWER(?))
		AND full_transcript != ?`,
		label, engine.TranscriptUnavailable).Scan(&counts.TranscriptCount); err != nil {
		return counts, fmt.Errorf("transcript count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM analysis
		WHERE LOWER(video_type) = 'patient story'
		AND video_id IN (SELECT video_id FROM videos WHERE LOWER(search_name) = LOWER(?))`,
		label).Scan(&counts.PatientStories); err != nil {
		return counts, fmt.Errorf("patient story count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM analysis
		WHERE LOWER(video_type) = 'kol interview'
		AND video_id IN (SELECT video_id FROM videos WHERE LOWER(search_name) = LOWER(?))`,
		label).Scan(&counts.KOLInterviews); err != nil {
		return counts, fmt.Errorf("kol interview count: %w", err)
	}
	return counts, nil
}

func (s *SQLite) VideoAnalysis(ctx context.Context, videoID string) (*VideoAnalysis, error) {
	var va VideoAnalysis
	var published *string
	err := s.db.QueryRowContext(ctx, `
		SELECT video_id, search_name, title, description, published_date, duration_seconds, view_count, url, channel_name
		FROM videos WHERE video_id = ?`,
		videoID).Scan(
		&va.Video.VideoID, &va.Video.SearchName, &va.Video.Title, &va.Video.Description,
		&published, &va.Video.DurationSeconds, &va.Video.ViewCount,
		&va.Video.URL, &va.Video.ChannelName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("video %s: %w", videoID, err)
	}
	va.Video.PublishedDate = parseTimeText(published)

	var transcript string
	err = s.db.QueryRowContext(ctx,
		`SELECT full_transcript FROM transcripts WHERE video_id = ?`,
		videoID).Scan(&transcript)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("transcript %s: %w", videoID, err)
	default:
		va.TranscriptAvailable = transcript != engine.TranscriptUnavailable
	}

	var ar AnalysisRow
	var symptoms, medHistory, famHistory, challenges *string
	err = s.db.QueryRowContext(ctx, `
		SELECT video_type, name, current_age, onset_age, sex, location, symptoms,
			medical_history_of_patient, family_medical_history,
			challenges_faced_during_diagnosis, key_opinion,
			topic_of_information, details_of_information, headline, summary_of_news
		FROM analysis WHERE video_id = ?`,
		videoID).Scan(
		&ar.VideoType, &ar.Name, &ar.CurrentAge, &ar.OnsetAge, &ar.Sex, &ar.Location,
		&symptoms, &medHistory, &famHistory, &challenges,
		&ar.KeyOpinion, &ar.TopicOfInformation, &ar.DetailsOfInformation,
		&ar.Headline, &ar.SummaryOfNews)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("analysis %s: %w", videoID, err)
	default:
		ar.Symptoms = rawJSON(symptoms)
		ar.MedicalHistory = rawJSON(medHistory)
		ar.FamilyHistory = rawJSON(famHistory)
		ar.DiagnosticChallenges = rawJSON(challenges)
		va.Analysis = &ar
	}

	return &va, nil
}

func rawJSON(s *string) []byte {
	if s == nil {
		return nil
	}
	return []byte(*s)
}

func (s *SQLite) ContentItems(ctx context.Context, label string, videoTypes []string) ([]ContentItem, error) {
	query := `
		SELECT v.video_id, v.title, v.description, v.url, v.published_date, v.view_count, a.video_type
		FROM videos v
		JOIN analysis a ON v.video_id = a.video_id
		WHERE LOWER(v.search_name) = LOWER(?)`
	args := []any{label}
	if len(videoTypes) > 0 {
		placeholders := make([]string, len(videoTypes))
		for i, vt := range videoTypes {
			args = append(args, strings.ToLower(vt))
			placeholders[i] = "?"
		}
		query += " AND LOWER(a.video_type) IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY v.published_date DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("content items %s: %w", label, err)
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		var item ContentItem
		var published *string
		if err := rows.Scan(&item.VideoID, &item.Title, &item.Description, &item.URL,
			&published, &item.ViewCount, &item.VideoType); err != nil {
			return nil, err
		}
		item.PublishedDate = parseTimeText(published)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLite) VideoIDs(ctx context.Context, label string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id FROM videos WHERE LOWER(search_name) = LOWER(?) ORDER BY published_date`,
		label)
	if err != nil {
		return nil, fmt.Errorf("video ids %s: %w", label, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) DeleteVideo(ctx context.Context, videoID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE video_id = ?`, videoID)
	if err != nil {
		return fmt.Errorf("delete video %s: %w", videoID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
