// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-writer/internal/locator"
)

var locatorsCmd = &cobra.Command{
	Use:   "locators [files...]",
	Short: "Extract and deduplicate locators from search text",
	Long: `Locators scans text for http and https locators. Each file is treated
as one section's search result; with no files, stdin is one section. The
merged list is printed one locator per line in first-seen order.`,
	RunE: runLocators,
}

func init() {
	locatorsCmd.Flags().Bool("labels", false, "print each locator's label before it")

	rootCmd.AddCommand(locatorsCmd)
}

func runLocators(cmd *cobra.Command, args []string) error {
	sections, err := readSections(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	labels, _ := cmd.Flags().GetBool("labels")
	out := cmd.OutOrStdout()
	for _, loc := range mergeSections(sections) {
		if labels {
			fmt.Fprintf(out, "%s\t%s\n", locator.Label(loc), loc)
			continue
		}
		fmt.Fprintln(out, loc)
	}
	return nil
}

// readSections returns the text of each file, or of stdin when files is empty.
func readSections(stdin io.Reader, files []string) ([]string, error) {
	if len(files) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return []string{string(data)}, nil
	}
	sections := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		sections = append(sections, string(data))
	}
	return sections, nil
}

// mergeSections extracts locators per section and merges them.
func mergeSections(sections []string) []string {
	perSection := make([][]string, len(sections))
	for i, text := range sections {
		perSection[i] = locator.ExtractAll(text)
	}
	return locator.Merge(perSection)
}
