// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/memory"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Query and manage the semantic memory of past analyses",
	Long: `Memory operates on the local index that run populates with one entry
per analyzed paper. Use subcommands to search it, export it, clear it,
or show its size.`,
}

// --- search subcommand ---

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find stored analyses most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemorySearch,
}

func runMemorySearch(cmd *cobra.Command, args []string) error {
	store, err := openMemory(cmd.Context())
	if err != nil {
		return err
	}
	k, _ := cmd.Flags().GetInt("k")
	results, err := store.SearchWithScore(cmd.Context(), strings.Join(args, " "), k)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatMemoryResults(os.Stdout, results, jsonOutput)
}

func formatMemoryResults(w io.Writer, results []memory.Result, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-6s  %-20s  %-50s\n", "Rank", "Score", "Paper", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 86))
	for i, r := range results {
		paper := truncate(r.Entry.ID, 20)
		title := truncate(r.Entry.Metadata["title"], 50)
		fmt.Fprintf(w, "%-4d  %6.3f  %-20s  %-50s\n", i+1, r.Score, paper, title)
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// --- export subcommand ---

var memoryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored analyses to YAML or JSON",
	Long: `Export writes every stored entry (ID, text, metadata) to stdout or to
--out. Vectors are not exported.`,
	RunE: runMemoryExport,
}

func runMemoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	store, err := openMemory(cmd.Context())
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "yaml", "":
		err = store.ExportYAML(w)
	case "json":
		err = store.ExportJSON(w)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintf(os.Stderr, "Exported %d entries to %s\n", store.Len(), out)
	}
	return nil
}

// --- clear subcommand ---

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored entry and save the empty index",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMemory(cmd.Context())
		if err != nil {
			return err
		}
		n := store.Len()
		store.Clear()
		if err := store.Save(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Cleared %d entries from %s\n", n, store.Path())
		return nil
	},
}

// --- stats subcommand ---

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the size of the semantic memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMemory(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Index:     %s\n", store.Path())
		fmt.Printf("Embedder:  %s\n", pipelineCfg.Embedding.Provider)
		fmt.Printf("Entries:   %d\n", store.Len())
		fmt.Printf("Dimension: %d\n", store.Dimension())
		return nil
	},
}

func init() {
	memorySearchCmd.Flags().Int("k", 0, "number of results (0 = memory.default_k)")
	memorySearchCmd.Flags().Bool("json", false, "output results as JSON")

	memoryExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	memoryExportCmd.Flags().String("out", "", "write to this file instead of stdout")

	memoryCmd.AddCommand(memorySearchCmd)
	memoryCmd.AddCommand(memoryExportCmd)
	memoryCmd.AddCommand(memoryClearCmd)
	memoryCmd.AddCommand(memoryStatsCmd)

	rootCmd.AddCommand(memoryCmd)
}
