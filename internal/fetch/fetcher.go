// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch resolves a locator to text. It issues one bounded GET,
// classifies the response as markup or document, and runs the matching
// extractor. Every problem is reported as a typed failure on the outcome.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-writer/internal/locator"
	"github.com/pdiddy/paper-writer/internal/metrics"
	"github.com/pdiddy/paper-writer/internal/normalize"
	"github.com/pdiddy/paper-writer/pkg/types"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 32 << 20

// Fetcher fetches locators and extracts their text.
type Fetcher struct {
	cfg      types.FetchConfig
	client   *http.Client
	markup   Extractor
	document Extractor
	limiter  *HostLimiter
	log      *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client. The per-fetch timeout is applied through
// the request context, not the client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMarkupExtractor replaces the HTML extractor.
func WithMarkupExtractor(e Extractor) Option {
	return func(f *Fetcher) { f.markup = e }
}

// WithDocumentExtractor replaces the PDF extractor.
func WithDocumentExtractor(e Extractor) Option {
	return func(f *Fetcher) { f.document = e }
}

// WithLimiter sets the per-host limiter. Nil disables limiting.
func WithLimiter(l *HostLimiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// New returns a Fetcher for cfg. Zero config fields take package defaults.
func New(cfg types.FetchConfig, opts ...Option) *Fetcher {
	cfg = cfg.WithDefaults()
	f := &Fetcher{
		cfg:      cfg,
		client:   &http.Client{},
		markup:   MarkupExtractor{},
		document: PDFExtractor{},
		limiter:  NewHostLimiter(cfg.PerHostRPS),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Classify picks the extractor for a response. A declared application/pdf
// content type or a locator path ending in .pdf selects the document
// extractor; either signal alone is enough.
func Classify(contentType, loc string) types.ContentKind {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") || locator.HasPDFSuffix(loc) {
		return types.ContentPDF
	}
	return types.ContentHTML
}

// Fetch retrieves loc and returns its text, truncated to the configured
// maximum content length. It makes exactly one attempt and never returns an
// error; failures are carried on the outcome.
func (f *Fetcher) Fetch(ctx context.Context, loc string) types.FetchOutcome {
	start := time.Now()
	out := f.fetch(ctx, loc)

	kind := string(out.ContentKind)
	if out.Failure != nil {
		metrics.FetchesTotal.WithLabelValues(string(out.Kind), kind).Inc()
		metrics.FetchFailures.WithLabelValues(string(out.Failure.Kind)).Inc()
		f.log.Info("fetch failed",
			zap.String("locator", loc),
			zap.String("kind", string(out.Failure.Kind)),
			zap.String("detail", out.Failure.Detail),
		)
		return out
	}
	metrics.FetchesTotal.WithLabelValues(string(out.Kind), kind).Inc()
	metrics.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	f.log.Debug("fetched",
		zap.String("locator", loc),
		zap.String("content_kind", kind),
		zap.Int("chars", len([]rune(out.Content))),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out
}

func (f *Fetcher) fetch(ctx context.Context, loc string) types.FetchOutcome {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx, loc); err != nil {
		return types.Failed(loc, transportFailure(ctx, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return types.Failed(loc, types.NewFailure(types.FailureFetchNetwork, "creating request: %v", err))
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return types.Failed(loc, transportFailure(ctx, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Failed(loc, types.NewFailure(types.FailureFetchHTTP, "HTTP %d from %s", resp.StatusCode, loc))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return types.Failed(loc, transportFailure(ctx, fmt.Errorf("reading body: %w", err)))
	}

	contentType := resp.Header.Get("Content-Type")
	kind := Classify(contentType, loc)
	ext := f.markup
	if kind == types.ContentPDF {
		ext = f.document
	}

	text, err := ext.Extract(ctx, body, contentType)
	if err != nil {
		out := types.Failed(loc, types.NewFailure(types.FailureFormatExtraction, "%s extraction: %v", kind, err))
		out.ContentKind = kind
		return out
	}
	return types.Succeeded(loc, normalize.Truncate(text, f.cfg.MaxContentLength), kind)
}

// transportFailure classifies a request error as a timeout, a cancellation,
// or a plain network failure.
func transportFailure(ctx context.Context, err error) *types.Failure {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return types.NewFailure(types.FailureFetchTimeout, "%v", err)
	case errors.Is(err, context.Canceled):
		return types.NewFailure(types.FailureCanceled, "%v", err)
	default:
		return types.NewFailure(types.FailureFetchNetwork, "%v", err)
	}
}
