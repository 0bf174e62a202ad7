// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-writer/internal/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize text from stdin",
	Long: `Normalize reads extracted text on stdin, runs the normalization
pipeline, truncates to fetch.max_content_length characters and writes the
result to stdout. --trace writes each stage's output to stderr.`,
	Args: cobra.NoArgs,
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().Bool("trace", false, "print the output of every stage to stderr")
	normalizeCmd.Flags().Int("max-length", 0, "maximum output length in characters (default from fetch.max_content_length)")

	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	text := string(data)

	if trace, _ := cmd.Flags().GetBool("trace"); trace {
		errOut := cmd.ErrOrStderr()
		for _, st := range normalize.Trace(text) {
			fmt.Fprintf(errOut, "== %s ==\n%s\n", st.Stage, st.Text)
		}
	}

	maxLen := cfg.Fetch.MaxContentLength
	if n, _ := cmd.Flags().GetInt("max-length"); n > 0 {
		maxLen = n
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), normalize.Finalize(text, maxLen))
	return err
}
