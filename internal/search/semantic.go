// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-writer/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,year,authors,url,openAccessPdf,externalIds"

// SemanticScholarSearcher queries the Semantic Scholar API.
type SemanticScholarSearcher struct {
	Client     *http.Client
	APIKey     string
	UserAgent  string
	MaxResults int
	MaxRetries int
	Log        *zap.Logger
}

// Name returns the backend identifier.
func (s *SemanticScholarSearcher) Name() string { return "semantic_scholar" }

// Search queries Semantic Scholar with the section and paper titles.
func (s *SemanticScholarSearcher) Search(ctx context.Context, p *types.Paper, section types.OutlineSection) (text string, err error) {
	start := time.Now()
	defer func() { observe("semantic_scholar", start, err) }()

	q := queryText(p, section)
	if q == "" {
		return "", fmt.Errorf("empty Semantic Scholar query")
	}
	maxResults := s.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(maxResults)},
		"fields": {semanticFields},
	}
	header := http.Header{"User-Agent": {userAgent(s.UserAgent)}}
	if s.APIKey != "" {
		header.Set("x-api-key", s.APIKey)
	}

	body, err := get(ctx, s.Client, semanticAPIBase+"?"+params.Encode(), header, s.MaxRetries, s.Log)
	if err != nil {
		return "", fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer body.Close()

	var sr semanticResponse
	if err := json.NewDecoder(body).Decode(&sr); err != nil {
		return "", fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	works := make([]work, 0, len(sr.Data))
	for _, paper := range sr.Data {
		w := work{Title: paper.Title, Year: paper.Year}
		for _, a := range paper.Authors {
			w.Authors = append(w.Authors, a.Name)
		}
		if paper.OpenAccessPDF != nil {
			w.URLs = append(w.URLs, paper.OpenAccessPDF.URL)
		}
		if paper.ExternalIDs.DOI != "" {
			w.URLs = append(w.URLs, "https://doi.org/"+paper.ExternalIDs.DOI)
		}
		w.URLs = append(w.URLs, paper.URL)
		works = append(works, w)
	}
	return renderWorks("Semantic Scholar", works), nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Year          int                 `json:"year"`
	URL           string              `json:"url"`
	Authors       []semanticAuthor    `json:"authors"`
	OpenAccessPDF *semanticPDF        `json:"openAccessPdf"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticPDF struct {
	URL string `json:"url"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
