package engine

import "time"

// --- Video metadata ---

// VideoMetadata is one video as returned by the search or single-item lookup.
// ID is the opaque source-assigned identifier and is stable across requests.
type VideoMetadata struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	PublishedDate     string `json:"publishedDate"`
	DurationInSeconds int    `json:"durationInSeconds"`
	ViewCount         int64  `json:"viewCount"`
	URL               string `json:"url"`
	Thumbnail         string `json:"thumbnail,omitempty"`
	ChannelName       string `json:"channel_name"`
	SearchName        string `json:"search_name,omitempty"`
}

// SearchOptions controls a video search run.
type SearchOptions struct {
	MaxResults int       // 0 = no cap
	YearsBack  int       // default lookback when StartDate is zero (0 = 5 years)
	StartDate  time.Time // zero = EndDate minus YearsBack
	EndDate    time.Time // zero = now
	Order      string    // "relevance" (default), "date", "viewCount"
	Language   string    // relevance language, default "en"
}

// --- Transcripts ---

// TranscriptUnavailable is the sentinel stored when no transcript exists.
const TranscriptUnavailable = "NOT AVAILABLE"

// Transcript is the joined text of a video's timed segments plus the
// language it was retrieved in ("auto" when the source picked the track,
// "none" when nothing was available).
type Transcript struct {
	VideoID  string `json:"videoId"`
	Text     string `json:"transcript"`
	Language string `json:"language"`
}

// Available reports whether the transcript holds real text.
func (t Transcript) Available() bool {
	return t.Text != "" && t.Text != TranscriptUnavailable
}

// --- Web scraping ---

// ScrapedPage is the extracted content of a web page. Its URL doubles as the
// analysis identifier, which is how the normalizer distinguishes web input
// from video input.
type ScrapedPage struct {
	URL     string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
