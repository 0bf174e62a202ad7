// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation pairs each acquired reference with a generated citation.
package citation

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-writer/internal/llm"
	"github.com/pdiddy/paper-writer/internal/prompts"
	"github.com/pdiddy/paper-writer/pkg/types"
)

// Summary counts the records of one assembly run.
type Summary struct {
	Cited   int
	Skipped int // fetch failed, generator not called
	Failed  int // generator failed
}

// Total returns the number of records.
func (s Summary) Total() int {
	return s.Cited + s.Skipped + s.Failed
}

// Assembler renders the citation prompt for every reference and calls the
// text generator on a bounded pool.
type Assembler struct {
	gen     llm.TextGenerator
	prompts *prompts.Store
	workers int
	log     *zap.Logger
	out     io.Writer
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithWorkers bounds concurrent generator calls. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(a *Assembler) { a.workers = max(n, 1) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) { a.log = l }
}

// WithProgress sets the writer that receives one status line per reference.
func WithProgress(w io.Writer) Option {
	return func(a *Assembler) { a.out = w }
}

// New returns an Assembler using gen and the citation prompt from store.
func New(gen llm.TextGenerator, store *prompts.Store, opts ...Option) *Assembler {
	a := &Assembler{
		gen:     gen,
		prompts: store,
		workers: types.DefaultFetchWorkers,
		log:     zap.NewNop(),
		out:     io.Discard,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble returns one record per reference in input order. References
// whose fetch failed carry that failure without a generator call. A
// generator error is recorded on its record only.
func (a *Assembler) Assemble(ctx context.Context, refs []types.Reference) ([]types.CitationRecord, Summary) {
	records := make([]types.CitationRecord, len(refs))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, ref := range refs {
		records[i] = types.CitationRecord{Locator: ref.Locator, Label: ref.Label}
		if !ref.OK() {
			records[i].Failure = ref.Outcome.Failure
			continue
		}
		g.Go(func() error {
			records[i].Citation, records[i].Failure = a.cite(ctx, ref)
			return nil
		})
	}
	_ = g.Wait()

	return records, a.summarize(refs, records)
}

func (a *Assembler) cite(ctx context.Context, ref types.Reference) (string, *types.Failure) {
	prompt, err := a.prompts.Render(prompts.Citation, prompts.Data{Text: ref.Text})
	if err != nil {
		return "", types.NewFailure(types.FailureCollaborator, "%v", err)
	}
	if ctx.Err() != nil {
		return "", types.NewFailure(types.FailureCanceled, "not attempted: %v", ctx.Err())
	}
	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.log.Warn("citation generation failed", zap.String("locator", ref.Locator), zap.Error(err))
		return "", types.NewFailure(types.FailureCollaborator, "generating citation for %s: %v", ref.Locator, err)
	}
	return text, nil
}

func (a *Assembler) summarize(refs []types.Reference, records []types.CitationRecord) Summary {
	var s Summary
	for i, rec := range records {
		switch {
		case rec.Failure == nil:
			s.Cited++
			fmt.Fprintf(a.out, "cited:   %s\n", rec.Locator)
		case !refs[i].OK():
			s.Skipped++
		default:
			s.Failed++
			fmt.Fprintf(a.out, "failed:  %s (%v)\n", rec.Locator, rec.Failure)
		}
	}
	fmt.Fprintf(a.out, "\nCitation summary: %d cited, %d skipped, %d failed (total: %d)\n",
		s.Cited, s.Skipped, s.Failed, s.Total())
	return s
}
