// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-writer/internal/citation"
	"github.com/pdiddy/paper-writer/internal/project"
	"github.com/pdiddy/paper-writer/internal/store"
	"github.com/pdiddy/paper-writer/internal/writer"
	"github.com/pdiddy/paper-writer/pkg/types"
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Run the full pipeline for a paper",
	Long: `Write drafts a description and outline from the title and seed
description, searches for sources per section, fetches and normalizes every
referenced document, and produces one citation per fetched source.

A project file given with --paper may already hold an outline or references;
stages whose output is present are skipped. The finished paper is written as
YAML to --out ("-" for stdout) and recorded in the run history database.`,
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().String("title", "", "paper title")
	writeCmd.Flags().String("description", "", "seed description")
	writeCmd.Flags().String("paper", "", "project file (YAML) with title, description and optional outline")
	writeCmd.Flags().String("out", "result.yaml", `output file for the finished paper ("-" for stdout)`)
	writeCmd.Flags().String("db", "", "run history database (default from store.path)")
	writeCmd.Flags().Bool("no-history", false, "do not record the run in the history database")
	writeCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	writeCmd.Flags().String("prompts-dir", "", "directory of *.md prompt templates overriding the built-ins")
	writeCmd.Flags().StringSlice("searchers", nil, "search backends: model, openalex, arxiv, semantic_scholar (default from search.backends)")
	writeCmd.Flags().Int("workers", 0, "concurrent fetches and citations (default from fetch.workers)")

	rootCmd.AddCommand(writeCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	p, err := paperFromFlags(cmd)
	if err != nil {
		return err
	}

	if dir, _ := cmd.Flags().GetString("prompts-dir"); dir != "" {
		cfg.Prompts.Dir = dir
	}
	if names, _ := cmd.Flags().GetStringSlice("searchers"); len(names) > 0 {
		for _, n := range names {
			if !slices.Contains(knownBackends, n) {
				return fmt.Errorf("unknown search backend %q (valid: %v)", n, knownBackends)
			}
		}
		cfg.Search.Backends = names
	}
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		cfg.Fetch.Workers = n
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		srv := serveMetrics(addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	templates, err := newPrompts()
	if err != nil {
		return err
	}
	simple, err := newGenerator("simple", cfg.Models.Simple, false)
	if err != nil {
		return err
	}
	searcher, err := newSearcher(templates)
	if err != nil {
		return err
	}
	engine, err := newEngine(os.Stdout)
	if err != nil {
		return err
	}
	assembler := citation.New(simple, templates,
		citation.WithWorkers(cfg.Fetch.Workers),
		citation.WithLogger(logger.Named("citation")),
		citation.WithProgress(os.Stdout),
	)
	w := writer.New(simple, searcher, engine, assembler, templates,
		writer.WithLogger(logger.Named("writer")),
		writer.WithProgress(os.Stdout),
	)

	report, runErr := w.Run(ctx, p)

	// A failed run still records whatever stages completed.
	if p.RunID != "" {
		if err := recordRun(cmd, p); err != nil {
			logger.Warn("could not record run", zap.String("run_id", p.RunID), zap.Error(err))
		}
		out, _ := cmd.Flags().GetString("out")
		if err := exportPaper(out, p); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("writing paper: %w", runErr)
	}

	fmt.Fprintf(os.Stderr, "Run %s: %d sections, %d references (%d fetched), %d citations\n",
		p.RunID, len(p.Outline), len(p.References), report.Acquisition.Fetched, report.Citations.Cited)
	return nil
}

// paperFromFlags loads --paper when given and applies --title and
// --description on top of it.
func paperFromFlags(cmd *cobra.Command) (*types.Paper, error) {
	p := &types.Paper{}
	if path, _ := cmd.Flags().GetString("paper"); path != "" {
		loaded, err := project.Load(path)
		if err != nil {
			return nil, err
		}
		p = loaded
	}
	if title, _ := cmd.Flags().GetString("title"); title != "" {
		p.Title = strings.TrimSpace(title)
	}
	if desc, _ := cmd.Flags().GetString("description"); desc != "" {
		p.Description = strings.TrimSpace(desc)
	}
	if p.Title == "" {
		return nil, fmt.Errorf("provide --title or a --paper file with a title")
	}
	return p, nil
}

// recordRun saves p to the history database unless --no-history is set.
func recordRun(cmd *cobra.Command, p *types.Paper) error {
	if skip, _ := cmd.Flags().GetBool("no-history"); skip {
		return nil
	}
	path := dbPath(cmd)
	if path == "" {
		return nil
	}
	s, err := store.Open(path, logger.Named("store"))
	if err != nil {
		return err
	}
	defer s.Close()
	// The run context may already be canceled; the record is still wanted.
	return s.SaveRun(context.Background(), p)
}

// exportPaper writes p as YAML to path, or to stdout for "-".
func exportPaper(path string, p *types.Paper) error {
	switch path {
	case "":
		return nil
	case "-":
		return project.Encode(os.Stdout, p)
	default:
		if err := project.Save(path, p); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Wrote", path)
		return nil
	}
}

// serveMetrics exposes the default Prometheus registry on addr until the
// returned server is shut down.
func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}

// dbPath returns --db when set, otherwise store.path from config.
func dbPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p
	}
	return cfg.Store.Path
}
