// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package writer runs the document assembly sequence: title, description,
// outline, per-section search, reference acquisition, and citations. Each
// stage fills one part of a types.Paper; stages whose output is already
// present are skipped.
package writer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-writer/internal/acquire"
	"github.com/pdiddy/paper-writer/internal/citation"
	"github.com/pdiddy/paper-writer/internal/llm"
	"github.com/pdiddy/paper-writer/internal/metrics"
	"github.com/pdiddy/paper-writer/internal/prompts"
	"github.com/pdiddy/paper-writer/internal/search"
	"github.com/pdiddy/paper-writer/pkg/types"
)

// Precondition failures. They abort the run.
var (
	ErrNoTitle      = errors.New("paper has no title")
	ErrNoOutline    = errors.New("paper has no outline; generate one before acquiring references")
	ErrNoReferences = errors.New("paper has no references; acquire references before citing")
)

// Report summarizes one run.
type Report struct {
	Acquisition acquire.BatchResult
	Citations   citation.Summary
}

// Writer drives the stages. It keeps no state between runs.
type Writer struct {
	simple    llm.TextGenerator
	searcher  search.Searcher
	engine    *acquire.Engine
	assembler *citation.Assembler
	prompts   *prompts.Store
	log       *zap.Logger
	out       io.Writer
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Writer) { w.log = l }
}

// WithProgress sets the writer that receives stage progress lines.
func WithProgress(out io.Writer) Option {
	return func(w *Writer) { w.out = out }
}

// New returns a Writer. simple drafts the description and outline.
func New(simple llm.TextGenerator, searcher search.Searcher, engine *acquire.Engine, assembler *citation.Assembler, store *prompts.Store, opts ...Option) *Writer {
	w := &Writer{
		simple:    simple,
		searcher:  searcher,
		engine:    engine,
		assembler: assembler,
		prompts:   store,
		log:       zap.NewNop(),
		out:       io.Discard,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes every stage whose output is missing from p. An outline
// already present skips the description and outline stages.
func (w *Writer) Run(ctx context.Context, p *types.Paper) (report Report, err error) {
	if strings.TrimSpace(p.Title) == "" {
		return Report{}, ErrNoTitle
	}
	if p.RunID == "" {
		p.RunID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	log := w.log.With(zap.String("run_id", p.RunID))
	defer func() {
		status := "ok"
		switch {
		case err != nil:
			status = "failed"
		case report.Acquisition.HasFailures() || report.Citations.Failed > 0:
			status = "partial"
		}
		metrics.RunsCompleted.WithLabelValues(status).Inc()
		log.Info("run finished", zap.String("status", status))
	}()

	if len(p.Outline) == 0 {
		if err := w.Describe(ctx, p); err != nil {
			return Report{}, err
		}
		if err := w.Outline(ctx, p); err != nil {
			return Report{}, err
		}
	} else {
		log.Info("outline present, skipping description and outline", zap.Int("sections", len(p.Outline)))
	}

	if len(p.References) == 0 {
		report.Acquisition, err = w.Acquire(ctx, p)
		if err != nil {
			return report, err
		}
	}

	if len(p.Citations) == 0 {
		if len(p.References) == 0 {
			log.Warn("no references found; skipping citations")
			return report, nil
		}
		report.Citations, err = w.Cite(ctx, p)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// Describe expands the seed description into a full description.
func (w *Writer) Describe(ctx context.Context, p *types.Paper) error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrNoTitle
	}
	text, err := w.generate(ctx, prompts.Description, prompts.PaperData(p))
	if err != nil {
		return fmt.Errorf("description: %w", err)
	}
	p.Description = strings.TrimSpace(text)
	fmt.Fprintf(w.out, "description: %d chars\n", len([]rune(p.Description)))
	return nil
}

// outlineResponse is the JSON contract of the outline prompt.
type outlineResponse struct {
	Sections []types.OutlineSection `json:"sections"`
}

// numbering matches list prefixes such as "1. ", "2.3) " or "IV. ".
var numbering = regexp.MustCompile(`^\s*(?:\d+(?:\.\d+)*[.)]|[IVXLCDM]+[.)])\s*`)

// Outline generates the section list.
func (w *Writer) Outline(ctx context.Context, p *types.Paper) error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrNoTitle
	}
	text, err := w.generate(ctx, prompts.Outline, prompts.PaperData(p))
	if err != nil {
		return fmt.Errorf("outline: %w", err)
	}
	sections, err := ParseOutline(text)
	if err != nil {
		return fmt.Errorf("outline: %w", err)
	}
	p.Outline = sections
	fmt.Fprintf(w.out, "outline: %d sections\n", len(sections))
	return nil
}

// ParseOutline decodes an outline response. Numbering prefixes are removed
// from titles and sections without a title are dropped. A response with no
// usable section is a collaborator_response failure.
func ParseOutline(text string) ([]types.OutlineSection, error) {
	var resp outlineResponse
	if err := llm.DecodeJSONObject(text, &resp); err != nil {
		return nil, err
	}
	sections := make([]types.OutlineSection, 0, len(resp.Sections))
	for _, s := range resp.Sections {
		title := strings.TrimSpace(numbering.ReplaceAllString(s.Title, ""))
		if title == "" {
			continue
		}
		sections = append(sections, types.OutlineSection{
			Title:       title,
			Description: strings.TrimSpace(s.Description),
		})
	}
	if len(sections) == 0 {
		return nil, types.NewFailure(types.FailureCollaboratorResponse, "outline has no sections")
	}
	return sections, nil
}

// Search runs the searcher once per outline section, in document order.
// A failed section is recorded on its SectionSearch and never aborts the
// stage.
func (w *Writer) Search(ctx context.Context, p *types.Paper) error {
	if len(p.Outline) == 0 {
		return ErrNoOutline
	}
	searches := make([]types.SectionSearch, len(p.Outline))
	for i, section := range p.Outline {
		searches[i].Section = section.Title
		if ctx.Err() != nil {
			searches[i].Failure = types.NewFailure(types.FailureCanceled, "not attempted: %v", ctx.Err())
			continue
		}
		text, err := w.searcher.Search(ctx, p, section)
		if err != nil {
			w.log.Warn("section search failed", zap.String("section", section.Title), zap.Error(err))
			searches[i].Failure = types.NewFailure(types.FailureCollaborator, "searching %q: %v", section.Title, err)
			fmt.Fprintf(w.out, "failed:  search %q (%v)\n", section.Title, err)
			continue
		}
		searches[i].Text = text
		fmt.Fprintf(w.out, "searched: %q\n", section.Title)
	}
	p.Searches = searches
	return nil
}

// Acquire extracts, merges, fetches and normalizes the references of every
// section. Sections are searched first when p has no search results yet.
func (w *Writer) Acquire(ctx context.Context, p *types.Paper) (acquire.BatchResult, error) {
	if len(p.Outline) == 0 {
		return acquire.BatchResult{}, ErrNoOutline
	}
	if len(p.Searches) == 0 {
		if err := w.Search(ctx, p); err != nil {
			return acquire.BatchResult{}, err
		}
	}
	result := w.engine.Run(ctx, p.Searches)
	p.References = result.References
	p.Locators = make([]string, len(result.References))
	for i, ref := range result.References {
		p.Locators[i] = ref.Locator
	}
	return result, nil
}

// Cite generates one citation record per reference.
func (w *Writer) Cite(ctx context.Context, p *types.Paper) (citation.Summary, error) {
	if len(p.References) == 0 {
		return citation.Summary{}, ErrNoReferences
	}
	records, summary := w.assembler.Assemble(ctx, p.References)
	p.Citations = records
	return summary, nil
}

// generate renders a prompt and calls the simple model. Generator errors
// become collaborator failures.
func (w *Writer) generate(ctx context.Context, name string, data prompts.Data) (string, error) {
	prompt, err := w.prompts.Render(name, data)
	if err != nil {
		return "", err
	}
	text, err := w.simple.Generate(ctx, prompt)
	if err != nil {
		return "", types.NewFailure(types.FailureCollaborator, "%v", err)
	}
	return text, nil
}
