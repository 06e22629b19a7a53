package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_medscan/internal/engine"
)

// Web page scraping for non-video patient stories. The page URL doubles as
// the analysis identifier downstream, which is what routes the normalizer
// into its array-shaped output.

var whitespaceRE = regexp.MustCompile(`\s+`)

// ScrapeWebpage fetches a URL and extracts its readable text. Extraction
// tries readability first, then a selector-based goquery pass, then a bare
// text-node walk. An empty extraction is an error; the page is useless
// without content.
func ScrapeWebpage(ctx context.Context, rawURL string) (engine.ScrapedPage, error) {
	engine.IncrScrapeRequest()

	page, err := scrapeWebpage(ctx, rawURL)
	if err != nil {
		engine.IncrScrapeError()
		return engine.ScrapedPage{}, err
	}
	return page, nil
}

func scrapeWebpage(ctx context.Context, rawURL string) (engine.ScrapedPage, error) {
	if timeout := engine.Cfg.FetchTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := fetchHTML(ctx, rawURL)
	if err != nil {
		return engine.ScrapedPage{}, err
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return engine.ScrapedPage{}, fmt.Errorf("parse URL %s: %w", rawURL, err)
	}

	title, content := extractReadable(body, parsedURL)
	if content == "" {
		title, content = extractWithGoquery(body)
	}
	if content == "" {
		title, content = extractTextNodes(body, title)
	}
	if content == "" {
		return engine.ScrapedPage{}, fmt.Errorf("no content extracted from %s", rawURL)
	}
	if title == "" {
		title = "Untitled"
	}

	if max := engine.Cfg.MaxContentChars; max > 0 {
		content = engine.TruncateRunes(content, max, "...")
	}

	return engine.ScrapedPage{URL: rawURL, Title: title, Content: content}, nil
}

func fetchHTML(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}

// extractReadable runs readability and converts the article HTML to
// markdown, falling back to the plain-text rendition when conversion fails.
func extractReadable(body []byte, pageURL *url.URL) (title, content string) {
	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err != nil {
		return "", ""
	}

	md, err := htmltomarkdown.ConvertString(article.Content)
	if err != nil {
		md = article.TextContent
	}
	return article.Title, strings.TrimSpace(md)
}

// extractWithGoquery strips boilerplate elements and takes the text of the
// most content-like container.
func extractWithGoquery(body []byte) (title, content string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, noscript, iframe, svg, nav, header, footer, aside").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	contentSel := doc.Find("article, main, .content, .post-content, #content").First()
	if contentSel.Length() == 0 {
		contentSel = doc.Find("body")
	}

	content = whitespaceRE.ReplaceAllString(strings.TrimSpace(contentSel.Text()), " ")
	return title, content
}

// extractTextNodes walks the raw HTML tree collecting text nodes, skipping
// script and style subtrees. Last resort for malformed markup.
func extractTextNodes(body []byte, title string) (string, string) {
	root, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return title, ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			case "title":
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return title, whitespaceRE.ReplaceAllString(sb.String(), " ")
}
