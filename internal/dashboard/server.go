// Package dashboard serves the read-only query surface: aggregate counts
// per search label, single-video detail, and filtered content listings.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anatolykoptev/go_medscan/internal/engine"
	"github.com/anatolykoptev/go_medscan/internal/store"
)

// Server handles dashboard requests against a Store.
type Server struct {
	store store.Store
}

func NewServer(st store.Store) *Server {
	return &Server{store: st}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/dashboard", s.handleDashboard)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, engine.FormatMetrics())
	})
	return r
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("dashboard listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// dashboardRequest is the single POST body. The three response shapes are
// selected by which fields are set: contentType+contentUrl → videoAnalysis,
// desiredOutcomes → contentItems, otherwise → dashboardData.
type dashboardRequest struct {
	SearchName      string `json:"searchName"`
	ContentType     string `json:"contentType"`
	ContentURL      string `json:"contentUrl"`
	DesiredOutcomes *struct {
		PatientStories bool `json:"patientStories"`
		KOLInterviews  bool `json:"kolInterviews"`
	} `json:"desiredOutcomes"`
}

func (s *Server) handleDashboard(c *gin.Context) {
	var req dashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SearchName == "" && req.ContentURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either search name or video URL is required"})
		return
	}

	if req.ContentType != "" && req.ContentURL != "" {
		s.serveVideoAnalysis(c, req.ContentURL)
		return
	}

	if _, err := s.store.SearchConfigByLabel(c.Request.Context(), req.SearchName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The message echoes the label lowercased, matching the form the
			// lookup normalizes to.
			c.JSON(http.StatusNotFound, gin.H{
				"error": fmt.Sprintf("No data found for search name %q. Please run the pipeline for this search term.", strings.ToLower(req.SearchName)),
			})
			return
		}
		s.serverError(c, err)
		return
	}

	if req.DesiredOutcomes != nil && (req.DesiredOutcomes.PatientStories || req.DesiredOutcomes.KOLInterviews) {
		var types []string
		if req.DesiredOutcomes.PatientStories {
			types = append(types, engine.TypePatientStory)
		}
		if req.DesiredOutcomes.KOLInterviews {
			types = append(types, engine.TypeKOLInterview)
		}
		s.serveContentItems(c, req.SearchName, types)
		return
	}

	s.serveDashboardData(c, req.SearchName)
}

func (s *Server) serveVideoAnalysis(c *gin.Context, contentURL string) {
	videoID := ExtractVideoID(contentURL)
	if videoID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid YouTube URL"})
		return
	}

	va, err := s.store.VideoAnalysis(c.Request.Context(), videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": fmt.Sprintf("Video with ID %s not found in the database.", videoID),
			})
			return
		}
		s.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"type": "videoAnalysis", "data": va})
}

func (s *Server) serveContentItems(c *gin.Context, label string, types []string) {
	items, err := s.store.ContentItems(c.Request.Context(), label, types)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if items == nil {
		items = []store.ContentItem{}
	}
	c.JSON(http.StatusOK, gin.H{"type": "contentItems", "data": items})
}

// serveDashboardData answers the aggregate-counts shape, cached per label.
func (s *Server) serveDashboardData(c *gin.Context, label string) {
	ctx := c.Request.Context()
	cacheKey := engine.CacheKey("dashboard", label)
	if cached, ok := engine.CacheGet(ctx, cacheKey); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
		return
	}

	counts, err := s.store.DashboardCounts(ctx, label)
	if err != nil {
		s.serverError(c, err)
		return
	}

	body, err := json.Marshal(gin.H{"type": "dashboardData", "data": counts})
	if err != nil {
		s.serverError(c, err)
		return
	}
	engine.CacheSet(ctx, cacheKey, body)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (s *Server) serverError(c *gin.Context, err error) {
	slog.Error("dashboard: query failed", slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
