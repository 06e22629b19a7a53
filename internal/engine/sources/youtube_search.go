package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_medscan/internal/engine"
)

// YouTube Data API v3 search with date-chunked pagination. Each search run
// splits the requested window into fixed 14-day chunks so no single query
// runs into the API's per-query result ceiling, pages through each chunk at
// 50 results a page, and resolves full details for every page in one batched
// videos.list call.

const (
	ytAPIBase          = "https://www.googleapis.com/youtube/v3"
	ytPageSize         = 50
	ytChunkDays        = 14
	ytDefaultYearsBack = 5
)

// ErrKeysExhausted marks the credential pool as spent. The search walk
// treats it as a soft stop; pages already yielded stay delivered.
var ErrKeysExhausted = errors.New("youtube: all API keys exhausted")

// YouTube issues Data API requests, rotating through a credential pool on
// quota exhaustion. The pool index only moves forward; a spent key is never
// retried within the client's lifetime.
type YouTube struct {
	keys    []string
	current int
	limiter *rate.Limiter
	http    *http.Client
	baseURL string
}

// NewYouTube builds a client from the engine configuration. An empty
// credential pool is a startup error.
func NewYouTube() (*YouTube, error) {
	keys := engine.Cfg.YouTubeAPIKeys
	if len(keys) == 0 {
		return nil, errors.New("youtube: no API keys configured")
	}
	var limiter *rate.Limiter
	if rps := engine.Cfg.APIRequestsPerSecond; rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	slog.Info("youtube: client ready", slog.Int("keys", len(keys)))
	return &YouTube{keys: keys, limiter: limiter, http: engine.Cfg.HTTPClient, baseURL: ytAPIBase}, nil
}

// --- Data API response types ---

type ytSearchResp struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type ytVideosResp struct {
	Items []ytVideoItem `json:"items"`
}

type ytVideoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		PublishedAt  string `json:"publishedAt"`
		ChannelTitle string `json:"channelTitle"`
		Thumbnails   struct {
			High struct {
				URL string `json:"url"`
			} `json:"high"`
		} `json:"thumbnails"`
	} `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
	} `json:"statistics"`
}

type ytErrorResp struct {
	Error struct {
		Code   int    `json:"code"`
		Status string `json:"status"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// SearchVideos walks query results across the date window as a lazy sequence
// of pages. Each yielded page is already deduplicated and detail-resolved;
// the consumer persists it before the next API request is issued. The walk
// ends when the window is covered, the result cap is hit, the credential
// pool runs dry (soft stop, no error), or a non-quota API error occurs
// (yielded with a nil page, ending the sequence).
func (yt *YouTube) SearchVideos(ctx context.Context, query string, opts engine.SearchOptions) iter.Seq2[[]engine.VideoMetadata, error] {
	return func(yield func([]engine.VideoMetadata, error) bool) {
		end := opts.EndDate
		if end.IsZero() {
			end = time.Now().UTC()
		}
		start := opts.StartDate
		if start.IsZero() {
			yearsBack := opts.YearsBack
			if yearsBack <= 0 {
				yearsBack = ytDefaultYearsBack
			}
			start = end.AddDate(-yearsBack, 0, 0)
		}

		slog.Info("youtube: search starting",
			slog.String("query", query),
			slog.Time("from", start),
			slog.Time("to", end),
			slog.Int("max_results", opts.MaxResults))

		fetched := 0
		for _, chunk := range chunkWindow(start, end, ytChunkDays*24*time.Hour) {
			slog.Debug("youtube: date chunk",
				slog.Time("from", chunk.start),
				slog.Time("to", chunk.end))

			done, err := yt.walkChunk(ctx, query, opts, chunk, &fetched, yield)
			if err != nil {
				if errors.Is(err, ErrKeysExhausted) {
					slog.Warn("youtube: key pool exhausted, stopping with partial results",
						slog.Int("fetched", fetched))
					return
				}
				yield(nil, err)
				return
			}
			if done {
				return
			}
			if opts.MaxResults > 0 && fetched >= opts.MaxResults {
				slog.Info("youtube: result cap reached", slog.Int("fetched", fetched))
				return
			}
		}
		slog.Info("youtube: search complete", slog.String("query", query), slog.Int("fetched", fetched))
	}
}

// CollectVideos drains SearchVideos into a single slice.
func (yt *YouTube) CollectVideos(ctx context.Context, query string, opts engine.SearchOptions) ([]engine.VideoMetadata, error) {
	var all []engine.VideoMetadata
	for page, err := range yt.SearchVideos(ctx, query, opts) {
		if err != nil {
			return all, err
		}
		all = append(all, page...)
	}
	return all, nil
}

type dateChunk struct {
	start, end time.Time
}

// chunkWindow splits [start, end) into fixed-size chunks, earliest first,
// the last one clamped to end.
func chunkWindow(start, end time.Time, size time.Duration) []dateChunk {
	var chunks []dateChunk
	for cur := start; cur.Before(end); {
		next := cur.Add(size)
		if next.After(end) {
			next = end
		}
		chunks = append(chunks, dateChunk{start: cur, end: next})
		cur = next
	}
	return chunks
}

// walkChunk pages through one date chunk. Returns done=true when the
// consumer stopped the iteration.
func (yt *YouTube) walkChunk(ctx context.Context, query string, opts engine.SearchOptions, chunk dateChunk, fetched *int, yield func([]engine.VideoMetadata, error) bool) (done bool, err error) {
	pageToken := ""
	for {
		page, nextToken, err := yt.searchPage(ctx, query, opts, chunk, pageToken)
		if err != nil {
			return false, err
		}
		if len(page.Items) == 0 {
			slog.Debug("youtube: empty page, chunk done")
			return false, nil
		}

		ids := make([]string, 0, len(page.Items))
		for _, item := range page.Items {
			if item.ID.VideoID != "" {
				ids = append(ids, item.ID.VideoID)
			}
		}
		if len(ids) == 0 {
			return false, nil
		}

		details, err := yt.videoDetails(ctx, ids)
		if err != nil {
			return false, err
		}

		videos := dedupeVideos(details)
		*fetched += len(videos)
		slog.Debug("youtube: page delivered",
			slog.Int("videos", len(videos)),
			slog.Int("total", *fetched))

		if !yield(videos, nil) {
			return true, nil
		}

		if nextToken == "" {
			return false, nil
		}
		if opts.MaxResults > 0 && *fetched >= opts.MaxResults {
			return false, nil
		}
		pageToken = nextToken
	}
}

// searchPage issues one search.list call, rotating keys on quota errors.
func (yt *YouTube) searchPage(ctx context.Context, query string, opts engine.SearchOptions, chunk dateChunk, pageToken string) (*ytSearchResp, string, error) {
	engine.IncrYouTubeSearch()

	order := opts.Order
	if order == "" {
		order = "relevance"
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(ytPageSize))
	params.Set("order", order)
	params.Set("regionCode", "US")
	params.Set("relevanceLanguage", lang)
	params.Set("publishedAfter", chunk.start.Format(time.RFC3339))
	params.Set("publishedBefore", chunk.end.Format(time.RFC3339))
	params.Set("videoDuration", "any")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var out ytSearchResp
	if err := yt.doAPI(ctx, "/search", params, &out); err != nil {
		return nil, "", err
	}
	return &out, out.NextPageToken, nil
}

// videoDetails resolves snippet, duration and statistics for one page of IDs
// in a single batched call.
func (yt *YouTube) videoDetails(ctx context.Context, ids []string) ([]engine.VideoMetadata, error) {
	engine.IncrYouTubeDetail()

	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", strings.Join(ids, ","))

	var out ytVideosResp
	if err := yt.doAPI(ctx, "/videos", params, &out); err != nil {
		return nil, err
	}

	videos := make([]engine.VideoMetadata, 0, len(out.Items))
	for _, item := range out.Items {
		if item.ID == "" {
			continue
		}
		videos = append(videos, videoFromItem(item))
	}
	return videos, nil
}

// GetVideoDetails looks up one video by identifier. A missing video, an
// exhausted key pool, or an upstream failure all yield nil without error; a
// single lookup going wrong never aborts a batch. Only context cancellation
// propagates.
func (yt *YouTube) GetVideoDetails(ctx context.Context, videoID string) (*engine.VideoMetadata, error) {
	engine.IncrYouTubeDetail()

	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", videoID)

	var out ytVideosResp
	if err := yt.doAPI(ctx, "/videos", params, &out); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrKeysExhausted) {
			slog.Warn("youtube: key pool exhausted during detail lookup", slog.String("id", videoID))
		} else {
			slog.Error("youtube: detail lookup failed", slog.String("id", videoID), slog.Any("error", err))
		}
		return nil, nil
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	v := videoFromItem(out.Items[0])
	return &v, nil
}

func videoFromItem(item ytVideoItem) engine.VideoMetadata {
	viewCount, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
	return engine.VideoMetadata{
		ID:                item.ID,
		Title:             item.Snippet.Title,
		Description:       item.Snippet.Description,
		PublishedDate:     item.Snippet.PublishedAt,
		DurationInSeconds: ParseISODuration(item.ContentDetails.Duration),
		ViewCount:         viewCount,
		URL:               "https://www.youtube.com/watch?v=" + item.ID,
		Thumbnail:         item.Snippet.Thumbnails.High.URL,
		ChannelName:       item.Snippet.ChannelTitle,
	}
}

// doAPI issues one Data API call, decoding into out. Quota errors rotate the
// credential pool and retry the same request; a spent pool surfaces as
// ErrKeysExhausted. Other API errors propagate as-is.
func (yt *YouTube) doAPI(ctx context.Context, path string, params url.Values, out any) error {
	for {
		if yt.limiter != nil {
			if err := yt.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		params.Set("key", yt.keys[yt.current])
		apiURL := yt.baseURL + path + "?" + params.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)

		resp, err := yt.http.Do(req)
		if err != nil {
			return fmt.Errorf("youtube%s: %w", path, err)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("youtube%s: read body: %w", path, err)
		}

		if resp.StatusCode == http.StatusOK {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("youtube%s: decode: %w", path, err)
			}
			return nil
		}

		if isQuotaExceeded(resp.StatusCode, body) {
			if !yt.rotateKey() {
				return ErrKeysExhausted
			}
			continue
		}

		return fmt.Errorf("youtube%s: HTTP %d: %s", path, resp.StatusCode, engine.Truncate(string(body), 300))
	}
}

// rotateKey advances to the next credential. Returns false when none remain.
func (yt *YouTube) rotateKey() bool {
	if yt.current+1 >= len(yt.keys) {
		return false
	}
	yt.current++
	engine.IncrKeyRotation()
	slog.Info("youtube: switching API key",
		slog.Int("index", yt.current+1),
		slog.Int("total", len(yt.keys)))
	return true
}

// isQuotaExceeded recognizes the Data API quota errors: HTTP 403 with a
// quota-class reason in the error body. Other 403s (bad key, disabled API)
// are not rotation triggers.
func isQuotaExceeded(status int, body []byte) bool {
	if status != http.StatusForbidden {
		return false
	}
	var er ytErrorResp
	if err := json.Unmarshal(body, &er); err != nil {
		return false
	}
	for _, e := range er.Error.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
			return true
		}
	}
	return false
}

// dedupeVideos drops repeated identifiers within one page, first occurrence
// wins.
func dedupeVideos(videos []engine.VideoMetadata) []engine.VideoMetadata {
	seen := make(map[string]bool, len(videos))
	out := videos[:0:0]
	for _, v := range videos {
		if seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
	}
	return out
}

var isoDurationRE = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseISODuration converts a "PT#H#M#S" duration to whole seconds. Missing
// components count as zero; anything unparsable yields 0.
func ParseISODuration(s string) int {
	m := isoDurationRE.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	total := 0
	for i, mult := range []int{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			continue
		}
		total += n * mult
	}
	return total
}
