package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_medscan/internal/pipeline"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var (
		searchName   string
		phrases      string
		videoID      string
		maxResults   int
		startDate    string
		endDate      string
		outputFile   string
		videoIDsFile string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Search videos (or look one up) and store their metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			if searchName == "" && videoID == "" {
				return fmt.Errorf("--search-name or --video-id is required")
			}

			opts := pipeline.FetchOptions{
				SearchName:   searchName,
				VideoID:      videoID,
				MaxResults:   maxResults,
				OutputFile:   outputFile,
				VideoIDsFile: videoIDsFile,
			}
			if phrases != "" {
				for _, p := range strings.Split(phrases, ",") {
					opts.Phrases = append(opts.Phrases, strings.TrimSpace(p))
				}
			}
			var err error
			if opts.StartDate, err = parseDateFlag(startDate); err != nil {
				return err
			}
			if opts.EndDate, err = parseDateFlag(endDate); err != nil {
				return err
			}

			yt, err := ctx.newYouTube()
			if err != nil {
				return err
			}
			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			videos, err := pipeline.Fetch(cmd.Context(), yt, st, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d videos\n", len(videos))
			return nil
		},
	}

	cmd.Flags().StringVar(&searchName, "search-name", "", "Label the fetched videos are stored under")
	cmd.Flags().StringVar(&phrases, "search-phrase", "", "Comma-separated search phrases (defaults to the search name)")
	cmd.Flags().StringVar(&videoID, "video-id", "", "Fetch a single video by id instead of searching")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Cap on fetched videos (0 = no cap)")
	cmd.Flags().StringVar(&startDate, "start-date", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "Window end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Metadata JSON file, merged unique by id")
	cmd.Flags().StringVar(&videoIDsFile, "video-ids-file", "", "Video id list JSON file, merged unique")

	return cmd
}

func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}
