// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire turns per-section search text into normalized references.
// It extracts locators from each section, merges them into one ordered list,
// fetches every locator on a bounded worker pool, and normalizes the text.
package acquire

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-writer/internal/locator"
	"github.com/pdiddy/paper-writer/internal/metrics"
	"github.com/pdiddy/paper-writer/internal/normalize"
	"github.com/pdiddy/paper-writer/pkg/types"
)

// Fetcher resolves one locator. Implementations never return an error;
// failures are carried on the outcome.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) types.FetchOutcome
}

// BatchResult holds the outcome of one acquisition run.
type BatchResult struct {
	Fetched  int
	Failed   int
	Canceled int

	// EmptySections counts search results without any locator. It is
	// informational and never a failure.
	EmptySections int

	// References is parallel to the input locators.
	References []types.Reference
}

// Total returns the total number of locators processed.
func (r BatchResult) Total() int {
	return r.Fetched + r.Failed + r.Canceled
}

// HasFailures reports whether any locator failed or was never attempted.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0 || r.Canceled > 0
}

// Engine runs reference acquisition.
type Engine struct {
	fetcher Fetcher
	workers int
	maxLen  int
	log     *zap.Logger
	out     io.Writer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithProgress sets the writer that receives one status line per locator
// and the batch summary.
func WithProgress(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// New returns an Engine using f. Workers and the content cap come from cfg.
func New(f Fetcher, cfg types.FetchConfig, opts ...Option) *Engine {
	cfg = cfg.WithDefaults()
	e := &Engine{
		fetcher: f,
		workers: cfg.Workers,
		maxLen:  cfg.MaxContentLength,
		log:     zap.NewNop(),
		out:     io.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Collect extracts the locators of every section into searches[i].Locators
// and returns the merged, duplicate-free list in first-appearance order.
// Sections whose search failed contribute nothing.
func Collect(searches []types.SectionSearch) (merged []string, empty int) {
	perSection := make([][]string, 0, len(searches))
	for i := range searches {
		if searches[i].Failure != nil {
			continue
		}
		searches[i].Locators = locator.ExtractAll(searches[i].Text)
		if len(searches[i].Locators) == 0 {
			empty++
		}
		perSection = append(perSection, searches[i].Locators)
	}
	return locator.Merge(perSection), empty
}

// Run collects the locators of searches and acquires them.
func (e *Engine) Run(ctx context.Context, searches []types.SectionSearch) BatchResult {
	locs, empty := Collect(searches)
	if empty > 0 {
		e.log.Info("sections without locators",
			zap.String("kind", string(types.FailureExtractionEmpty)),
			zap.Int("count", empty),
		)
	}
	result := e.Acquire(ctx, locs)
	result.EmptySections = empty
	return result
}

// Acquire fetches and normalizes locs. The result has one Reference per
// locator, in input order. A failure on one locator never affects another.
//
// Cancelling ctx stops new fetches from starting; locators never attempted
// get a canceled failure. Fetches already running finish on a context
// detached from ctx, bounded by the fetcher's own timeout.
func (e *Engine) Acquire(ctx context.Context, locs []string) BatchResult {
	refs := make([]types.Reference, len(locs))
	detached := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, loc := range locs {
		if ctx.Err() != nil {
			refs[i] = canceled(loc, ctx.Err())
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				refs[i] = canceled(loc, ctx.Err())
				return nil
			}
			refs[i] = e.acquireOne(detached, loc)
			return nil
		})
	}
	_ = g.Wait()

	return e.summarize(refs)
}

func (e *Engine) acquireOne(ctx context.Context, loc string) types.Reference {
	ref := types.Reference{
		Locator: loc,
		Label:   locator.Label(loc),
		Outcome: e.fetcher.Fetch(ctx, loc),
	}
	if ref.OK() {
		ref.Text = normalize.Finalize(ref.Outcome.Content, e.maxLen)
		metrics.NormalizedChars.Observe(float64(utf8.RuneCountInString(ref.Text)))
	}
	return ref
}

func canceled(loc string, cause error) types.Reference {
	return types.Reference{
		Locator: loc,
		Label:   locator.Label(loc),
		Outcome: types.Failed(loc, types.NewFailure(types.FailureCanceled, "not attempted: %v", cause)),
	}
}

func (e *Engine) summarize(refs []types.Reference) BatchResult {
	result := BatchResult{References: refs}
	for _, ref := range refs {
		switch {
		case ref.OK():
			result.Fetched++
			fmt.Fprintf(e.out, "fetched: %s (%s, %d chars)\n",
				ref.Locator, ref.Outcome.ContentKind, utf8.RuneCountInString(ref.Text))
		case ref.Outcome.Failure != nil && ref.Outcome.Failure.Kind == types.FailureCanceled:
			result.Canceled++
			fmt.Fprintf(e.out, "skipped: %s (canceled)\n", ref.Locator)
		default:
			result.Failed++
			fmt.Fprintf(e.out, "failed:  %s (%v)\n", ref.Locator, ref.Outcome.Failure)
		}
	}
	fmt.Fprintf(e.out, "\nBatch summary: %d fetched, %d failed, %d canceled (total: %d)\n",
		result.Fetched, result.Failed, result.Canceled, result.Total())
	e.log.Info("acquisition finished",
		zap.Int("fetched", result.Fetched),
		zap.Int("failed", result.Failed),
		zap.Int("canceled", result.Canceled),
	)
	return result
}
