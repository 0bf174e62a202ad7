// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <locators...>",
	Short: "Fetch and normalize references",
	Long: `Fetch retrieves each locator once, extracts text from HTML or PDF
responses, and normalizes it. Progress and a batch summary go to stdout;
--show prints each reference's normalized text after the summary.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Bool("show", false, "print normalized text for each fetched reference")
	fetchCmd.Flags().Int("workers", 0, "concurrent fetches (default from fetch.workers)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		cfg.Fetch.Workers = n
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(os.Stdout)
	if err != nil {
		return err
	}
	result := engine.Acquire(ctx, args)

	show, _ := cmd.Flags().GetBool("show")
	for _, ref := range result.References {
		if ref.OK() {
			fmt.Printf("%s\t%s\t%d chars\n", ref.Label, ref.Locator, len([]rune(ref.Text)))
			if show {
				fmt.Printf("\n%s\n\n", ref.Text)
			}
			continue
		}
		fmt.Printf("%s\t%s\t%v\n", ref.Label, ref.Locator, ref.Outcome.Failure)
	}

	if result.HasFailures() {
		return fmt.Errorf("%d of %d locator(s) failed", result.Failed+result.Canceled, result.Total())
	}
	return nil
}
