package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anatolykoptev/go_medscan/internal/engine"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"PT1H2M3S", 3723},
		{"PT15M33S", 933},
		{"PT45S", 45},
		{"PT2H", 7200},
		{"PT3M", 180},
		{"PT1H30S", 3630},
		{"PT0S", 0},
		{"PT", 0},
		{"", 0},
		{"garbage", 0},
		{"1H2M3S", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseISODuration(tt.in); got != tt.want {
				t.Errorf("ParseISODuration(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestChunkWindow(t *testing.T) {
	size := 14 * 24 * time.Hour

	t.Run("uneven window", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		end := start.Add(60 * 24 * time.Hour)
		chunks := chunkWindow(start, end, size)

		if len(chunks) != 5 {
			t.Fatalf("expected 5 chunks, got %d", len(chunks))
		}
		if !chunks[0].start.Equal(start) {
			t.Errorf("first chunk starts at %v, want %v", chunks[0].start, start)
		}
		if !chunks[len(chunks)-1].end.Equal(end) {
			t.Errorf("last chunk ends at %v, want %v", chunks[len(chunks)-1].end, end)
		}
		for i := 1; i < len(chunks); i++ {
			if !chunks[i].start.Equal(chunks[i-1].end) {
				t.Errorf("gap between chunk %d and %d: %v vs %v", i-1, i, chunks[i-1].end, chunks[i].start)
			}
		}
	})

	t.Run("exact multiple", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		end := start.Add(28 * 24 * time.Hour)
		chunks := chunkWindow(start, end, size)
		if len(chunks) != 2 {
			t.Fatalf("expected 2 chunks, got %d", len(chunks))
		}
		if !chunks[1].end.Equal(end) {
			t.Errorf("last chunk end %v, want %v", chunks[1].end, end)
		}
	})

	t.Run("empty window", func(t *testing.T) {
		now := time.Now()
		if chunks := chunkWindow(now, now, size); len(chunks) != 0 {
			t.Errorf("expected no chunks for empty window, got %d", len(chunks))
		}
	})
}

func TestDedupeVideos(t *testing.T) {
	in := []engine.VideoMetadata{
		{ID: "a", Title: "first a"},
		{ID: "b", Title: "only b"},
		{ID: "a", Title: "second a"},
	}
	got := dedupeVideos(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(got))
	}
	if got[0].ID != "a" || got[0].Title != "first a" {
		t.Errorf("first occurrence should win, got %+v", got[0])
	}
	if got[1].ID != "b" {
		t.Errorf("expected b second, got %+v", got[1])
	}
}

const quotaBody = `{"error":{"code":403,"errors":[{"reason":"quotaExceeded"}]}}`

// fakeDataAPI serves search and videos endpoints, returning quota errors for
// any key in the bad set.
func fakeDataAPI(t *testing.T, badKeys map[string]bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if badKeys[r.URL.Query().Get("key")] {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, quotaBody)
			return
		}
		switch r.URL.Path {
		case "/search":
			fmt.Fprint(w, `{"items":[{"id":{"videoId":"vid00000001"}},{"id":{"videoId":"vid00000001"}},{"id":{"videoId":"vid00000002"}}]}`)
		case "/videos":
			fmt.Fprint(w, `{"items":[
				{"id":"vid00000001","snippet":{"title":"First","publishedAt":"2024-02-01T00:00:00Z","channelTitle":"Chan"},"contentDetails":{"duration":"PT1M30S"},"statistics":{"viewCount":"120"}},
				{"id":"vid00000001","snippet":{"title":"Dup"},"contentDetails":{"duration":"PT1M"},"statistics":{}},
				{"id":"vid00000002","snippet":{"title":"Second","publishedAt":"2024-02-02T00:00:00Z","channelTitle":"Chan"},"contentDetails":{"duration":"PT2H"},"statistics":{}}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func searchOpts() engine.SearchOptions {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return engine.SearchOptions{
		StartDate: start,
		EndDate:   start.Add(24 * time.Hour), // single chunk
	}
}

func TestSearchVideosRotatesKeyOnQuota(t *testing.T) {
	srv := fakeDataAPI(t, map[string]bool{"spent": true})
	defer srv.Close()

	yt := &YouTube{keys: []string{"spent", "fresh"}, http: srv.Client(), baseURL: srv.URL}

	var videos []engine.VideoMetadata
	for page, err := range yt.SearchVideos(context.Background(), "rare disease", searchOpts()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		videos = append(videos, page...)
	}

	if len(videos) != 2 {
		t.Fatalf("expected 2 videos after dedupe, got %d", len(videos))
	}
	if videos[0].ID != "vid00000001" || videos[0].Title != "First" {
		t.Errorf("first video = %+v", videos[0])
	}
	if videos[0].DurationInSeconds != 90 {
		t.Errorf("duration = %d, want 90", videos[0].DurationInSeconds)
	}
	if videos[0].ViewCount != 120 {
		t.Errorf("view count = %d, want 120", videos[0].ViewCount)
	}
	if yt.current != 1 {
		t.Errorf("expected rotation to second key, index = %d", yt.current)
	}
}

func TestSearchVideosPoolExhaustedSoftStop(t *testing.T) {
	srv := fakeDataAPI(t, map[string]bool{"k1": true, "k2": true})
	defer srv.Close()

	yt := &YouTube{keys: []string{"k1", "k2"}, http: srv.Client(), baseURL: srv.URL}

	var videos []engine.VideoMetadata
	for page, err := range yt.SearchVideos(context.Background(), "rare disease", searchOpts()) {
		if err != nil {
			t.Fatalf("pool exhaustion must not surface an error, got: %v", err)
		}
		videos = append(videos, page...)
	}
	if len(videos) != 0 {
		t.Errorf("expected no videos, got %d", len(videos))
	}
}

func TestSearchVideosNonQuotaErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"errors":[{"reason":"invalidSearchFilter"}]}}`)
	}))
	defer srv.Close()

	yt := &YouTube{keys: []string{"k1", "k2"}, http: srv.Client(), baseURL: srv.URL}

	var sawErr error
	for _, err := range yt.SearchVideos(context.Background(), "rare disease", searchOpts()) {
		if err != nil {
			sawErr = err
		}
	}
	if sawErr == nil {
		t.Fatal("expected non-quota API error to propagate")
	}
	if yt.current != 0 {
		t.Errorf("non-quota error must not rotate keys, index = %d", yt.current)
	}
}

func TestGetVideoDetails(t *testing.T) {
	srv := fakeDataAPI(t, nil)
	defer srv.Close()

	yt := &YouTube{keys: []string{"k"}, http: srv.Client(), baseURL: srv.URL}

	v, err := yt.GetVideoDetails(context.Background(), "vid00000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v == nil {
		t.Fatal("expected a video")
	}
	if v.URL != "https://www.youtube.com/watch?v=vid00000001" {
		t.Errorf("url = %q", v.URL)
	}
}

func TestGetVideoDetailsUpstreamFailureRecoverable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":500,"status":"INTERNAL"}}`)
	}))
	defer srv.Close()

	yt := &YouTube{keys: []string{"k"}, http: srv.Client(), baseURL: srv.URL}

	v, err := yt.GetVideoDetails(context.Background(), "vid00000001")
	if err != nil {
		t.Fatalf("an upstream failure on a single lookup must not surface an error, got: %v", err)
	}
	if v != nil {
		t.Errorf("expected no video, got %+v", v)
	}
}

func TestGetVideoDetailsCancelledContext(t *testing.T) {
	srv := fakeDataAPI(t, nil)
	defer srv.Close()

	yt := &YouTube{keys: []string{"k"}, http: srv.Client(), baseURL: srv.URL}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := yt.GetVideoDetails(ctx, "vid00000001"); err == nil {
		t.Fatal("expected cancellation to propagate")
	}
}
