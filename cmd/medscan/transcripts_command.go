package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_medscan/internal/pipeline"
)

func newTranscriptsCommand(ctx *commandContext) *cobra.Command {
	var (
		videoID    string
		inputFile  string
		searchName string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "Fetch and store transcripts for videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			if videoID == "" && inputFile == "" && searchName == "" {
				return fmt.Errorf("--video-id, --input-file, or --search-name is required")
			}

			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			opts := pipeline.TranscriptOptions{
				VideoID:    videoID,
				InputFile:  inputFile,
				OutputFile: outputFile,
			}
			if searchName != "" {
				ids, err := st.VideoIDs(cmd.Context(), searchName)
				if err != nil {
					return err
				}
				opts.VideoIDs = ids
			}

			transcripts, err := pipeline.Transcripts(cmd.Context(), st, opts)
			if err != nil {
				return err
			}

			available := 0
			for _, tr := range transcripts {
				if tr.Available() {
					available++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d transcripts (%d available)\n", len(transcripts), available)
			return nil
		},
	}

	cmd.Flags().StringVar(&videoID, "video-id", "", "Fetch a single video's transcript")
	cmd.Flags().StringVar(&inputFile, "input-file", "", "JSON array of video ids")
	cmd.Flags().StringVar(&searchName, "search-name", "", "Fetch transcripts for all stored videos under this label")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Transcripts JSON file")

	return cmd
}
