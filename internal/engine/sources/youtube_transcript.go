package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_medscan/internal/engine"
)

// YouTube transcript fetching. Caption tracks are discovered by scraping the
// watch page's ytInitialPlayerResponse JSON, then the selected track's
// timedtext XML is downloaded and joined into plain text. Languages are
// tried in the configured order, manual tracks before auto-generated ones,
// with a final source-picked fallback tagged "auto".

// ErrNoTranscript means no caption track produced text in any attempted
// language. Callers store the unavailable sentinel and move on.
var ErrNoTranscript = errors.New("no transcript available")

const ytPlayerResponseMarker = "ytInitialPlayerResponse = "

type ytPlayerResp struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

type ytTimedText struct {
	Lines []ytTimedLine `xml:"text"`
}

type ytTimedLine struct {
	Text string `xml:",chardata"`
}

// FetchTranscript returns the transcript for a video together with the
// language it was retrieved in. Per-language failures are logged and
// swallowed; only total exhaustion surfaces, as ErrNoTranscript.
func FetchTranscript(ctx context.Context, videoID string) (engine.Transcript, error) {
	engine.IncrYouTubeTranscript()

	tracks, err := fetchCaptionTracks(ctx, videoID)
	if err != nil {
		slog.Warn("transcript: caption discovery failed",
			slog.String("id", videoID), slog.Any("error", err))
		return engine.Transcript{}, ErrNoTranscript
	}
	if len(tracks) == 0 {
		return engine.Transcript{}, ErrNoTranscript
	}

	for _, lang := range engine.Cfg.TranscriptLanguages {
		track, ok := trackForLanguage(tracks, lang)
		if !ok {
			slog.Debug("transcript: no track for language",
				slog.String("id", videoID), slog.String("lang", lang))
			continue
		}
		text, err := fetchTimedText(ctx, track.BaseURL)
		if err != nil {
			slog.Warn("transcript: track fetch failed",
				slog.String("id", videoID), slog.String("lang", lang), slog.Any("error", err))
			continue
		}
		if text != "" {
			slog.Debug("transcript: fetched",
				slog.String("id", videoID), slog.String("lang", lang), slog.Int("length", len(text)))
			return engine.Transcript{VideoID: videoID, Text: text, Language: lang}, nil
		}
	}

	// No preferred language matched; let the source pick by taking its
	// first listed track.
	text, err := fetchTimedText(ctx, tracks[0].BaseURL)
	if err != nil {
		slog.Warn("transcript: auto fallback failed",
			slog.String("id", videoID), slog.Any("error", err))
		return engine.Transcript{}, ErrNoTranscript
	}
	if text == "" {
		return engine.Transcript{}, ErrNoTranscript
	}
	slog.Debug("transcript: fetched via auto fallback",
		slog.String("id", videoID), slog.String("track_lang", tracks[0].LanguageCode))
	return engine.Transcript{VideoID: videoID, Text: text, Language: "auto"}, nil
}

// fetchCaptionTracks scrapes the watch page and extracts the caption track
// list from ytInitialPlayerResponse.
func fetchCaptionTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	watchURL := "https://www.youtube.com/watch?v=" + videoID

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}

	idx := strings.Index(string(body), ytPlayerResponseMarker)
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var player ytPlayerResp
	if err := json.Unmarshal(jsonData, &player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	if player.Captions == nil {
		if player.PlayabilityStatus != nil && player.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("captions unavailable: %s", player.PlayabilityStatus.Reason)
		}
		return nil, nil
	}
	return player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

// trackForLanguage finds a track for the given language code, preferring a
// manual track over an auto-generated one.
func trackForLanguage(tracks []captionTrack, lang string) (captionTrack, bool) {
	for _, t := range tracks {
		if t.LanguageCode == lang && t.Kind != "asr" {
			return t, true
		}
	}
	for _, t := range tracks {
		if t.LanguageCode == lang {
			return t, true
		}
	}
	return captionTrack{}, false
}

// fetchTimedText downloads a timedtext XML caption URL and joins its lines
// into plain text.
func fetchTimedText(ctx context.Context, baseURL string) (string, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", err
	}
	return parseTimedText(body)
}

// parseTimedText joins the text lines of a timedtext XML document with
// single spaces, dropping markup and empty lines.
func parseTimedText(body []byte) (string, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext XML: %w", err)
	}

	var sb strings.Builder
	for _, line := range tt.Lines {
		text := engine.CleanHTML(line.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by
// tracking brace depth outside of string literals.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		switch {
		case escaped:
			escaped = false
		case inStr:
			switch c {
			case '\\':
				escaped = true
			case '"':
				inStr = false
			}
		default:
			switch c {
			case '"':
				inStr = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return b[:i+1]
				}
			}
		}
	}
	return nil
}
