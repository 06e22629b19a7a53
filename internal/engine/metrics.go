package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	SearchRequests     atomic.Int64
	DetailRequests     atomic.Int64
	TranscriptRequests atomic.Int64
	ScrapeRequests     atomic.Int64
	ScrapeErrors       atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	KeyRotations       atomic.Int64
	StoreWrites        atomic.Int64
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"youtube_search_requests": metrics.SearchRequests.Load(),
		"youtube_detail_requests": metrics.DetailRequests.Load(),
		"transcript_requests":     metrics.TranscriptRequests.Load(),
		"scrape_requests":         metrics.ScrapeRequests.Load(),
		"scrape_errors":           metrics.ScrapeErrors.Load(),
		"llm_calls":               metrics.LLMCalls.Load(),
		"llm_errors":              metrics.LLMErrors.Load(),
		"key_rotations":           metrics.KeyRotations.Load(),
		"store_writes":            metrics.StoreWrites.Load(),
		"cache_hits":              hits,
		"cache_misses":            misses,
	}
}

// FormatMetrics returns metrics as a simple text format for the HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"youtube_search_requests", "youtube_detail_requests",
		"transcript_requests",
		"scrape_requests", "scrape_errors",
		"llm_calls", "llm_errors",
		"key_rotations", "store_writes",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the sources/ sub-package.
func IncrYouTubeSearch()     { metrics.SearchRequests.Add(1) }
func IncrYouTubeDetail()     { metrics.DetailRequests.Add(1) }
func IncrYouTubeTranscript() { metrics.TranscriptRequests.Add(1) }
func IncrKeyRotation()       { metrics.KeyRotations.Add(1) }

func IncrScrapeRequest() { metrics.ScrapeRequests.Add(1) }
func IncrScrapeError()   { metrics.ScrapeErrors.Add(1) }

func IncrStoreWrite() { metrics.StoreWrites.Add(1) }
