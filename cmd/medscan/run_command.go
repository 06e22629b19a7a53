package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_medscan/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		searchName string
		phrases    string
		maxResults int
		startDate  string
		endDate    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline for one search: fetch, transcripts, analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			if searchName == "" {
				return fmt.Errorf("--search-name is required")
			}
			if err := ctx.ensureLLM(); err != nil {
				return err
			}

			opts := pipeline.RunOptions{
				SearchName: searchName,
				MaxResults: maxResults,
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

			summary, err := pipeline.Run(cmd.Context(), yt, st, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "videos: %d, transcripts: %d, analyses: %d\n",
				summary.VideosFetched, summary.Transcripts, summary.Analyses)
			return nil
		},
	}

	cmd.Flags().StringVar(&searchName, "search-name", "", "Label the run is stored under")
	cmd.Flags().StringVar(&phrases, "search-phrase", "", "Comma-separated search phrases (defaults to the search name)")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Cap on fetched videos (0 = no cap)")
	cmd.Flags().StringVar(&startDate, "start-date", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "Window end (YYYY-MM-DD)")

	return cmd
}
