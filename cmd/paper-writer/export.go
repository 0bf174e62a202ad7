// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-writer/internal/draft"
	"github.com/pdiddy/paper-writer/internal/project"
	"github.com/pdiddy/paper-writer/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export <result.yaml>",
	Short: "Render a finished paper as Markdown or BibTeX",
	Long: `Export reads a paper written by the write command and renders it.
The markdown format lists the outline, the sources found per section, the
citations and the references; bibtex emits one entry per fetched reference.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", "markdown", "output format: markdown, bibtex, or yaml")
	exportCmd.Flags().String("out", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	p, err := project.Load(args[0])
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	var w io.Writer = cmd.OutOrStdout()
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	if err := renderPaper(w, p, format); err != nil {
		return err
	}
	if missing := draft.Uncited(p); len(missing) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d fetched reference(s) have no citation\n", len(missing))
	}
	return nil
}

func renderPaper(w io.Writer, p *types.Paper, format string) error {
	switch format {
	case "markdown", "md":
		return draft.Markdown(w, p)
	case "bibtex", "bib":
		_, err := io.WriteString(w, draft.BibTeX(p))
		return err
	case "yaml":
		return project.Encode(w, p)
	default:
		return fmt.Errorf("unknown format %q (valid: markdown, bibtex, yaml)", format)
	}
}
