// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-writer/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivSearcher queries the arXiv API and renders abstract and PDF URLs.
type ArxivSearcher struct {
	Client     *http.Client
	UserAgent  string
	MaxResults int
	MaxRetries int
	Log        *zap.Logger
}

// Name returns the backend identifier.
func (s *ArxivSearcher) Name() string { return "arxiv" }

// Search queries arXiv with the section and paper titles.
func (s *ArxivSearcher) Search(ctx context.Context, p *types.Paper, section types.OutlineSection) (text string, err error) {
	start := time.Now()
	defer func() { observe("arxiv", start, err) }()

	q := buildArxivQuery(queryText(p, section))
	if q == "" {
		return "", fmt.Errorf("empty arXiv query")
	}
	maxResults := s.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, q, maxResults)

	body, err := get(ctx, s.Client, reqURL,
		http.Header{"User-Agent": {userAgent(s.UserAgent)}}, s.MaxRetries, s.Log)
	if err != nil {
		return "", fmt.Errorf("arXiv API request: %w", err)
	}
	defer body.Close()

	var feed arxivFeed
	if err := xml.NewDecoder(body).Decode(&feed); err != nil {
		return "", fmt.Errorf("parsing arXiv response: %w", err)
	}

	works := make([]work, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		id := extractArxivID(entry.ID)
		if id == "" {
			continue
		}
		w := work{
			Title: entry.Title,
			URLs:  []string{"https://arxiv.org/pdf/" + id, "https://arxiv.org/abs/" + id},
		}
		for _, a := range entry.Authors {
			w.Authors = append(w.Authors, strings.TrimSpace(a.Name))
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			w.Year = t.Year()
		}
		works = append(works, w)
	}
	return renderWorks("arXiv", works), nil
}

// buildArxivQuery turns free text into an all-fields search_query value.
func buildArxivQuery(text string) string {
	terms := strings.Fields(text)
	for i, t := range terms {
		terms[i] = url.QueryEscape(t)
	}
	if len(terms) == 0 {
		return ""
	}
	return "all:" + strings.Join(terms, "+")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
