// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-writer/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run history",
	Long: `Runs reads the history database written by the write command. Each
run records the paper, its sections, every reference with its fetch outcome
and normalized text, and the citations.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over stored reference text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRunsSearch,
}

func init() {
	runsCmd.PersistentFlags().String("db", "", "run history database (default from store.path)")
	runsCmd.PersistentFlags().Int("limit", 0, "maximum results (0 = default of 20)")
	runsCmd.PersistentFlags().Bool("json", false, "output results as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsSearchCmd)
	rootCmd.AddCommand(runsCmd)
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	path := dbPath(cmd)
	if path == "" {
		return nil, fmt.Errorf("no history database configured; set --db or store.path")
	}
	return store.Open(path, logger.Named("store"))
}

func runRunsList(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := s.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tREFS\tFETCHED\tCITED\tTITLE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.ID, r.CreatedAt, r.References, r.Fetched, r.Citations, r.Title)
	}
	return tw.Flush()
}

func runRunsSearch(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	hits, err := s.Search(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(out, hits)
	}
	if len(hits) == 0 {
		fmt.Fprintln(out, "No matching references.")
		return nil
	}
	for i, h := range hits {
		fmt.Fprintf(out, "%d. [%s] %s\n   run %s: %s\n   %s\n", i+1, h.Label, h.Locator, h.RunID, h.Title, h.Snippet)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
