// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search produces the free-text search result for one outline
// section. The text is consumed by the locator extractor, so every
// searcher renders the sources it finds as full http(s) URLs.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-writer/internal/httputil"
	"github.com/pdiddy/paper-writer/internal/metrics"
	"github.com/pdiddy/paper-writer/pkg/types"
)

// Searcher returns free text describing sources relevant to one section of
// a paper. Each backend (search model, OpenAlex, arXiv, Semantic Scholar)
// implements this interface.
type Searcher interface {
	Name() string
	Search(ctx context.Context, p *types.Paper, section types.OutlineSection) (string, error)
}

// defaultMaxResults bounds the works requested from a scholarly API per section.
const defaultMaxResults = 10

// Multi fans a section out to several searchers concurrently and joins
// their text in searcher order. It fails only when every searcher fails.
type Multi struct {
	Searchers []Searcher
	Log       *zap.Logger
}

// Name returns the backend identifier.
func (m *Multi) Name() string {
	names := make([]string, len(m.Searchers))
	for i, s := range m.Searchers {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

// Search runs every searcher and concatenates the non-empty results,
// separated by blank lines.
func (m *Multi) Search(ctx context.Context, p *types.Paper, section types.OutlineSection) (string, error) {
	if len(m.Searchers) == 0 {
		return "", fmt.Errorf("no searchers configured")
	}
	log := m.Log
	if log == nil {
		log = zap.NewNop()
	}

	texts := make([]string, len(m.Searchers))
	errs := make([]error, len(m.Searchers))
	var wg sync.WaitGroup
	for i, s := range m.Searchers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			texts[i], errs[i] = s.Search(ctx, p, section)
		}()
	}
	wg.Wait()

	var parts []string
	var failed []error
	for i, s := range m.Searchers {
		if errs[i] != nil {
			log.Warn("searcher failed",
				zap.String("searcher", s.Name()),
				zap.String("section", section.Title),
				zap.Error(errs[i]))
			failed = append(failed, fmt.Errorf("%s: %w", s.Name(), errs[i]))
			continue
		}
		if t := strings.TrimSpace(texts[i]); t != "" {
			parts = append(parts, t)
		}
	}
	if len(failed) == len(m.Searchers) {
		return "", errors.Join(failed...)
	}
	return strings.Join(parts, "\n\n"), nil
}

// work is one bibliographic hit from a scholarly API.
type work struct {
	Title   string
	Year    int
	Authors []string
	URLs    []string
}

// renderWorks writes works as a numbered list. Each URL sits on its own
// line so no trailing punctuation is glued to it.
func renderWorks(source string, works []work) string {
	if len(works) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Sources from %s:\n", source)
	for i, w := range works {
		fmt.Fprintf(&b, "%d. %s", i+1, strings.Join(strings.Fields(w.Title), " "))
		if a := formatAuthors(w.Authors); a != "" {
			fmt.Fprintf(&b, " (%s", a)
			if w.Year > 0 {
				fmt.Fprintf(&b, ", %d", w.Year)
			}
			b.WriteString(")")
		} else if w.Year > 0 {
			fmt.Fprintf(&b, " (%d)", w.Year)
		}
		b.WriteString("\n")
		seen := make(map[string]bool, len(w.URLs))
		for _, u := range w.URLs {
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			fmt.Fprintf(&b, "   %s\n", u)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return authors[0]
	default:
		return authors[0] + " et al."
	}
}

// queryText builds a keyword query for scholarly APIs from the section
// title and the paper title. Punctuation is dropped since the APIs treat
// some of it as syntax.
func queryText(p *types.Paper, section types.OutlineSection) string {
	raw := section.Title + " " + p.Title
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '-' {
			return r
		}
		return ' '
	}, raw)
	return strings.Join(strings.Fields(clean), " ")
}

// get issues a GET through the retrying client and returns the body of a
// 200 response. The caller closes it.
func get(ctx context.Context, client *http.Client, reqURL string, header http.Header, maxRetries int, log *zap.Logger) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, maxRetries, log)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func userAgent(ua string) string {
	if ua == "" {
		return types.DefaultUserAgent
	}
	return ua
}

func observe(name string, start time.Time, err error) {
	metrics.RecordCollaborator(name, time.Since(start).Seconds(), err)
}
