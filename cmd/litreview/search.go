// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search academic APIs for candidate papers",
	Long: `Search queries arXiv (and Semantic Scholar when enabled) for papers
matching the query. Results are deduplicated across sources and ranked.
Nothing is extracted, analyzed or stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := pipelineCfg.Search
	if cmd.Flags().Changed("semantic-scholar") {
		cfg.EnableSemanticScholar, _ = cmd.Flags().GetBool("semantic-scholar")
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")
	if !cmd.Flags().Changed("max-results") {
		maxResults = cfg.MaxResults
	}

	svc := search.NewService(cfg, logger.With().Str("component", "search").Logger(), metrics)
	papers := svc.Search(cmd.Context(), strings.Join(args, " "), maxResults)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return search.FormatJSON(papers, os.Stdout)
	}
	if len(papers) == 0 {
		fmt.Println("No papers found.")
		return nil
	}
	search.FormatTable(papers, os.Stdout)
	return nil
}

func init() {
	searchCmd.Flags().Int("max-results", 10, "maximum number of results to return")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("semantic-scholar", false, "also search Semantic Scholar")

	rootCmd.AddCommand(searchCmd)
}
