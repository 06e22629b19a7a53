package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_medscan/internal/pipeline"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var (
		rawURL     string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape a web page into the analyzable JSON format",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rawURL == "" {
				return fmt.Errorf("--url is required")
			}

			pages, err := pipeline.Scrape(cmd.Context(), rawURL, outputFile)
			if err != nil {
				return err
			}
			if outputFile == "" {
				data, err := json.Marshal(pages)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rawURL, "url", "", "Page URL to scrape")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Scraped-page JSON file")

	return cmd
}
