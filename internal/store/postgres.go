package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_medscan/internal/engine"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Postgres implements Store on a pgx connection pool. The pool is owned by
// the caller through Close; connection errors surface as typed errors, never
// as process exits.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates the pool, pings it, and runs schema migrations.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := &Postgres{pool: pool}
	if err := db.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("postgres connected", slog.String("host", config.ConnConfig.Host))
	return db, nil
}

func (db *Postgres) Close() {
	db.pool.Close()
}

func (db *Postgres) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := db.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply %s: %w", entry.Name(), err)
		}
		slog.Debug("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

func (db *Postgres) UpsertVideo(ctx context.Context, v engine.VideoMetadata) error {
	searchName := v.SearchName
	if searchName == "" {
		searchName = "unknown"
	}
	_, err := db.pool.Exec(ctx, `
		INSERT INTO videos (video_id, search_name, title, description, published_date, duration_seconds, view_count, url, channel_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (video_id) DO UPDATE SET
			search_name = EXCLUDED.search_name,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			published_date = EXCLUDED.published_date,
			duration_seconds = EXCLUDED.duration_seconds,
			view_count = EXCLUDED.view_count,
			url = EXCLUDED.url,
			channel_name = EXCLUDED.channel_name`,
		v.ID, searchName, v.Title, v.Description, parsePublished(v.PublishedDate),
		v.DurationInSeconds, v.ViewCount, v.URL, v.ChannelName)
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", v.ID, err)
	}
	return nil
}

func (db *Postgres) UpsertTranscript(ctx context.Context, t engine.Transcript) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO transcripts (video_id, full_transcript, language)
		VALUES ($1, $2, $3)
		ON CONFLICT (video_id) DO UPDATE SET
			full_transcript = EXCLUDED.full_transcript,
			language = EXCLUDED.language`,
		t.VideoID, t.Text, t.Language)
	if err != nil {
		return fmt.Errorf("upsert transcript %s: %w", t.VideoID, err)
	}
	return nil
}

func (db *Postgres) UpsertAnalysis(ctx context.Context, videoID string, a engine.AnalysisResult) error {
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

	_, err = db.pool.Exec(ctx, `
		INSERT INTO analysis (
			video_id, video_type, name, current_age, onset_age, sex, location, symptoms,
			medical_history_of_patient, family_medical_history,
			challenges_faced_during_diagnosis, key_opinion,
			topic_of_information, details_of_information, headline, summary_of_news
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (video_id) DO UPDATE SET
			video_type = EXCLUDED.video_type,
			name = EXCLUDED.name,
			current_age = EXCLUDED.current_age,
			onset_age = EXCLUDED.onset_age,
			sex = EXCLUDED.sex,
			location = EXCLUDED.location,
			symptoms = EXCLUDED.symptoms,
			medical_history_of_patient = EXCLUDED.medical_history_of_patient,
			family_medical_history = EXCLUDED.family_medical_history,
			challenges_faced_during_diagnosis = EXCLUDED.challenges_faced_during_diagnosis,
			key_opinion = EXCLUDED.key_opinion,
			topic_of_information = EXCLUDED.topic_of_information,
			details_of_information = EXCLUDED.details_of_information,
			headline = EXCLUDED.headline,
			summary_of_news = EXCLUDED.summary_of_news`,
		videoID, a.VideoType, a.Name, a.CurrentAge, a.OnsetAge, a.Sex, a.Location,
		symptoms, medHistory, famHistory, challenges,
		a.KeyOpinion, a.TopicOfInformation, a.DetailsOfInformation, a.Headline, a.SummaryOfNews)
	if err != nil {
		return fmt.Errorf("upsert analysis %s: %w", videoID, err)
	}
	return nil
}

func (db *Postgres) UpsertSearchConfig(ctx context.Context, userID, searchPhrase, searchName string) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO searchconfig (user_id, search_phrase, search_name, creation_date)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (search_name) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			search_phrase = EXCLUDED.search_phrase,
			creation_date = NOW()`,
		userID, searchPhrase, searchName)
	if err != nil {
		return fmt.Errorf("upsert search config %s: %w", searchName, err)
	}
	return nil
}

func (db *Postgres) SearchConfigByLabel(ctx context.Context, label string) (*SearchConfig, error) {
	var sc SearchConfig
	err := db.pool.QueryRow(ctx, `
		SELECT user_id, search_phrase, search_name, creation_date
		FROM searchconfig WHERE LOWER(search_name) = LOWER($1)`,
		label).Scan(&sc.UserID, &sc.SearchPhrase, &sc.SearchName, &sc.CreationDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("search config %s: %w", label, err)
	}
	return &sc, nil
}

func (db *Postgres) DashboardCounts(ctx context.Context, label string) (DashboardCounts, error) {
	sc, err := db.SearchConfigByLabel(ctx, label)
	if err != nil {
		return DashboardCounts{}, err
	}
	counts := DashboardCounts{LastUpdated: sc.CreationDate}

	if err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM videos WHERE LOWER(search_name) = LOWER($1)`,
		label).Scan(&counts.VideoCount); err != nil {
		return counts, fmt.Errorf("video count: %w", err)
	}
	if err := db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM transcripts
		WHERE video_id IN (SELECT video_id FROM videos WHERE LOWER(search_name) = LOWER($1))
		AND full_transcript != $2`,
		label, engine.TranscriptUnavailable).Scan(&counts.TranscriptCount); err != nil {
		return counts, fmt.Errorf("transcript count: %w", err)
	}
	if err := db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM analysis
		WHERE LOWER(video_type) = 'patient story'
		AND video_id IN (SELECT video_id FROM videos WHERE LOWER(search_name) = LOWER($1))`,
		label).Scan(&counts.PatientStories); err != nil {
		return counts, fmt.Errorf("patient story count: %w", err)
	}
	if err := db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM analysis
		WHERE LOWER(video_type) = 'kol interview'
		AND video_id IN (SELECT video_id FROM videos WHERE LOWER(search_name) = LOWER($1))`,
		label).Scan(&counts.KOLInterviews); err != nil {
		return counts, fmt.Errorf("kol interview count: %w", err)
	}
	return counts, nil
}

func (db *Postgres) VideoAnalysis(ctx context.Context, videoID string) (*VideoAnalysis, error) {
	var va VideoAnalysis
	err := db.pool.QueryRow(ctx, `
		SELECT video_id, search_name, title, description, published_date, duration_seconds, view_count, url, channel_name
		FROM videos WHERE video_id = $1`,
		videoID).Scan(
		&va.Video.VideoID, &va.Video.SearchName, &va.Video.Title, &va.Video.Description,
		&va.Video.PublishedDate, &va.Video.DurationSeconds, &va.Video.ViewCount,
		&va.Video.URL, &va.Video.ChannelName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("video %s: %w", videoID, err)
	}

	var transcript string
	err = db.pool.QueryRow(ctx,
		`SELECT full_transcript FROM transcripts WHERE video_id = $1`,
		videoID).Scan(&transcript)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("transcript %s: %w", videoID, err)
	default:
		va.TranscriptAvailable = transcript != engine.TranscriptUnavailable
	}

	var ar AnalysisRow
	var symptoms, medHistory, famHistory, challenges []byte
	err = db.pool.QueryRow(ctx, `
		SELECT video_type, name, current_age, onset_age, sex, location, symptoms,
			medical_history_of_patient, family_medical_history,
			challenges_faced_during_diagnosis, key_opinion,
			topic_of_information, details_of_information, headline, summary_of_news
		FROM analysis WHERE video_id = $1`,
		videoID).Scan(
		&ar.VideoType, &ar.Name, &ar.CurrentAge, &ar.OnsetAge, &ar.Sex, &ar.Location,
		&symptoms, &medHistory, &famHistory, &challenges,
		&ar.KeyOpinion, &ar.TopicOfInformation, &ar.DetailsOfInformation,
		&ar.Headline, &ar.SummaryOfNews)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("analysis %s: %w", videoID, err)
	default:
		ar.Symptoms = symptoms
		ar.MedicalHistory = medHistory
		ar.FamilyHistory = famHistory
		ar.DiagnosticChallenges = challenges
		va.Analysis = &ar
	}

	return &va, nil
}

func (db *Postgres) ContentItems(ctx context.Context, label string, videoTypes []string) ([]ContentItem, error) {
	query := `
		SELECT v.video_id, v.title, v.description, v.url, v.published_date, v.view_count, a.video_type
		FROM videos v
		JOIN analysis a ON v.video_id = a.video_id
		WHERE LOWER(v.search_name) = LOWER($1)`
	args := []any{label}
	if len(videoTypes) > 0 {
		placeholders := make([]string, len(videoTypes))
		for i, vt := range videoTypes {
			args = append(args, strings.ToLower(vt))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += " AND LOWER(a.video_type) IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY v.published_date DESC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("content items %s: %w", label, err)
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		var item ContentItem
		if err := rows.Scan(&item.VideoID, &item.Title, &item.Description, &item.URL,
			&item.PublishedDate, &item.ViewCount, &item.VideoType); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (db *Postgres) VideoIDs(ctx context.Context, label string) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT video_id FROM videos WHERE LOWER(search_name) = LOWER($1) ORDER BY published_date`,
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

func (db *Postgres) DeleteVideo(ctx context.Context, videoID string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM videos WHERE video_id = $1`, videoID)
	if err != nil {
		return fmt.Errorf("delete video %s: %w", videoID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
