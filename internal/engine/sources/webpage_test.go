package sources

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_medscan/internal/engine"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Living with Pompe</title><style>body { color: red; }</style></head>
<body>
<nav>Home | About</nav>
<article>
<h1>Living with Pompe</h1>
<p>My diagnosis took eleven years.</p>
<p>The first symptom was muscle weakness.</p>
</article>
<script>track();</script>
<footer>Copyright</footer>
</body>
</html>`

func TestExtractWithGoquery(t *testing.T) {
	title, content := extractWithGoquery([]byte(samplePage))
	if title != "Living with Pompe" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(content, "diagnosis took eleven years") {
		t.Errorf("content missing article text: %q", content)
	}
	if strings.Contains(content, "track()") || strings.Contains(content, "color: red") {
		t.Errorf("script/style leaked into content: %q", content)
	}
	if strings.Contains(content, "Home | About") {
		t.Errorf("nav leaked into content: %q", content)
	}
}

func TestExtractTextNodes(t *testing.T) {
	title, content := extractTextNodes([]byte(samplePage), "")
	if title != "Living with Pompe" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(content, "muscle weakness") {
		t.Errorf("content missing text: %q", content)
	}
	if strings.Contains(content, "track()") {
		t.Errorf("script leaked: %q", content)
	}
}

func TestScrapeWebpage(t *testing.T) {
	engine.Init(engine.Config{MaxContentChars: 6000})

	t.Run("article page", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, samplePage)
		}))
		defer srv.Close()

		page, err := ScrapeWebpage(t.Context(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.URL != srv.URL {
			t.Errorf("url = %q, want %q", page.URL, srv.URL)
		}
		if page.Title != "Living with Pompe" {
			t.Errorf("title = %q", page.Title)
		}
		if !strings.Contains(page.Content, "muscle weakness") {
			t.Errorf("content = %q", page.Content)
		}
	})

	t.Run("truncates long content", func(t *testing.T) {
		engine.Init(engine.Config{MaxContentChars: 100})
		defer engine.Init(engine.Config{MaxContentChars: 6000})

		long := "<html><head><title>Long</title></head><body><article><p>" +
			strings.Repeat("word ", 200) + "</p></article></body></html>"
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, long)
		}))
		defer srv.Close()

		page, err := ScrapeWebpage(t.Context(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page.Content) > 103 { // cap plus ellipsis
			t.Errorf("content length %d exceeds cap", len(page.Content))
		}
	})

	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		if _, err := ScrapeWebpage(t.Context(), srv.URL); err == nil {
			t.Error("expected error for 404 page")
		}
	})
}
