package pipeline

import (
	"context"
	"log/slog"

	"github.com/anatolykoptev/go_medscan/internal/engine"
	"github.com/anatolykoptev/go_medscan/internal/engine/sources"
)

// Scrape extracts one web page and optionally writes it as a one-element
// JSON array in the scraped-page format Analyze accepts as input.
func Scrape(ctx context.Context, rawURL, outputFile string) ([]engine.ScrapedPage, error) {
	page, err := sources.ScrapeWebpage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	pages := []engine.ScrapedPage{page}
	if outputFile != "" {
		if err := writeJSONFile(outputFile, pages); err != nil {
			return pages, err
		}
		slog.Info("scrape: wrote output", slog.String("file", outputFile), slog.String("url", rawURL))
	}
	return pages, nil
}
