package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_medscan/internal/pipeline"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		videoID      string
		inputFile    string
		metadataFile string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run LLM extraction over transcripts or scraped pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if videoID == "" && inputFile == "" {
				return fmt.Errorf("--video-id or --input-file is required")
			}
			if err := ctx.ensureLLM(); err != nil {
				return err
			}

			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := pipeline.Analyze(cmd.Context(), st, pipeline.AnalyzeOptions{
				VideoID:      videoID,
				InputFile:    inputFile,
				MetadataFile: metadataFile,
				OutputFile:   outputFile,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "produced %d analysis records\n", len(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&videoID, "video-id", "", "Analyze a single video, fetching its transcript live")
	cmd.Flags().StringVar(&inputFile, "input-file", "", "Transcripts or scraped-pages JSON file")
	cmd.Flags().StringVar(&metadataFile, "metadata-file", "", "Metadata JSON file supplying titles")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Analysis JSON file")

	return cmd
}
