package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_medscan/internal/engine"
	"github.com/anatolykoptev/go_medscan/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return NewServer(st), st
}

func seedLabel(t *testing.T, st store.Store, label string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.UpsertSearchConfig(ctx, "default_user", label+" disease", label))

	videos := []struct {
		id        string
		videoType string
	}{
		{"vidstory0001", engine.TypePatientStory},
		{"vidkolint001", "KOL Interview"},
		{"vidinfoonly1", engine.TypeInformational},
	}
	for _, v := range videos {
		require.NoError(t, st.UpsertVideo(ctx, engine.VideoMetadata{
			ID:            v.id,
			Title:         "Title " + v.id,
			PublishedDate: "2024-05-01T00:00:00Z",
			URL:           "https://www.youtube.com/watch?v=" + v.id,
			SearchName:    label,
		}))
		require.NoError(t, st.UpsertTranscript(ctx, engine.Transcript{
			VideoID:  v.id,
			Text:     "patient describes symptoms",
			Language: "en",
		}))
		require.NoError(t, st.UpsertAnalysis(ctx, v.id, engine.AnalysisResult{
			VideoType: v.videoType,
			Symptoms:  []string{"fatigue"},
		}))
	}
}

func postDashboard(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/dashboard", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestDashboardRequiresNameOrURL(t *testing.T) {
	srv, _ := newTestServer(t)

	w := postDashboard(t, srv, `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Either search name or video URL is required", decodeBody(t, w)["error"])

	w = postDashboard(t, srv, `not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardUnknownLabel(t *testing.T) {
	srv, _ := newTestServer(t)

	w := postDashboard(t, srv, `{"searchName":"fabry"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, decodeBody(t, w)["error"], `No data found for search name "fabry"`)

	// The message echoes the label lowercased, whatever casing was sent.
	w = postDashboard(t, srv, `{"searchName":"FaBrY"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, decodeBody(t, w)["error"], `No data found for search name "fabry"`)
}

func TestDashboardData(t *testing.T) {
	srv, st := newTestServer(t)
	seedLabel(t, st, "pompe")

	w := postDashboard(t, srv, `{"searchName":"POMPE"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, "dashboardData", body["type"])
	data := body["data"].(map[string]any)
	require.EqualValues(t, 3, data["videoCount"])
	require.EqualValues(t, 3, data["transcriptCount"])
	require.EqualValues(t, 1, data["patientStoriesCount"])
	require.EqualValues(t, 1, data["kolInterviewsCount"])
}

func TestDashboardContentItems(t *testing.T) {
	srv, st := newTestServer(t)
	seedLabel(t, st, "pompe")

	w := postDashboard(t, srv, `{"searchName":"pompe","desiredOutcomes":{"patientStories":true}}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, "contentItems", body["type"])
	require.Len(t, body["data"], 1)

	w = postDashboard(t, srv, `{"searchName":"pompe","desiredOutcomes":{"patientStories":true,"kolInterviews":true}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["data"], 2)

	// Both flags off falls through to the counts shape.
	w = postDashboard(t, srv, `{"searchName":"pompe","desiredOutcomes":{}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "dashboardData", decodeBody(t, w)["type"])
}

func TestDashboardContentItemsEmptyArray(t *testing.T) {
	srv, st := newTestServer(t)
	require.NoError(t, st.UpsertSearchConfig(context.Background(), "default_user", "gaucher disease", "gaucher"))

	w := postDashboard(t, srv, `{"searchName":"gaucher","desiredOutcomes":{"kolInterviews":true}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"type":"contentItems","data":[]}`, w.Body.String())
}

func TestDashboardVideoAnalysis(t *testing.T) {
	srv, st := newTestServer(t)
	seedLabel(t, st, "pompe")

	w := postDashboard(t, srv, `{"contentType":"video","contentUrl":"https://youtu.be/vidstory0001"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, "videoAnalysis", body["type"])
	data := body["data"].(map[string]any)
	require.Equal(t, true, data["transcriptAvailable"])
	video := data["video"].(map[string]any)
	require.Equal(t, "vidstory0001", video["video_id"])
}

func TestDashboardVideoAnalysisInvalidURL(t *testing.T) {
	srv, _ := newTestServer(t)

	w := postDashboard(t, srv, `{"contentType":"video","contentUrl":"https://example.org/clip"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid YouTube URL", decodeBody(t, w)["error"])
}

func TestDashboardVideoAnalysisMissingVideo(t *testing.T) {
	srv, _ := newTestServer(t)

	w := postDashboard(t, srv, `{"contentType":"video","contentUrl":"https://youtu.be/missingvid01"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Video with ID missingvid01 not found in the database.", decodeBody(t, w)["error"])
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
