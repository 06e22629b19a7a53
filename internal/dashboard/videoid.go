package dashboard

import "regexp"

// videoIDRe matches the 11-character video identifier in conventional
// watch, share, embed and shortened URL forms.
var videoIDRe = regexp.MustCompile(`(?i)(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)

// ExtractVideoID pulls the video identifier out of a YouTube URL, empty
// string when the URL matches no known form.
func ExtractVideoID(rawURL string) string {
	m := videoIDRe.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
