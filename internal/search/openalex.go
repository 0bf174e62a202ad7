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

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlexSearcher queries the OpenAlex works API and renders each work
// with its DOI, open-access and landing page URLs.
type OpenAlexSearcher struct {
	Client *http.Client
	// Email is sent as mailto parameter for polite pool access.
	Email      string
	UserAgent  string
	MaxResults int
	MaxRetries int
	Log        *zap.Logger
}

// Name returns the backend identifier.
func (s *OpenAlexSearcher) Name() string { return "openalex" }

// Search queries OpenAlex with the section and paper titles.
func (s *OpenAlexSearcher) Search(ctx context.Context, p *types.Paper, section types.OutlineSection) (text string, err error) {
	start := time.Now()
	defer func() { observe("openalex", start, err) }()

	q := queryText(p, section)
	if q == "" {
		return "", fmt.Errorf("empty OpenAlex query")
	}
	maxResults := s.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > 200 {
		maxResults = 200
	}

	params := url.Values{
		"search":   {q},
		"per_page": {strconv.Itoa(maxResults)},
		"page":     {"1"},
	}
	if s.Email != "" {
		params.Set("mailto", s.Email)
	}

	body, err := get(ctx, s.Client, openAlexSearchBase+"?"+params.Encode(),
		http.Header{"User-Agent": {userAgent(s.UserAgent)}}, s.MaxRetries, s.Log)
	if err != nil {
		return "", fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer body.Close()

	var oar openAlexResponse
	if err := json.NewDecoder(body).Decode(&oar); err != nil {
		return "", fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	works := make([]work, 0, len(oar.Results))
	for _, w := range oar.Results {
		if w.Title == "" {
			continue
		}
		r := work{Title: w.Title, Year: w.PublicationYear}
		for _, a := range w.Authorships {
			if a.Author.DisplayName != "" {
				r.Authors = append(r.Authors, a.Author.DisplayName)
			}
		}
		// Direct PDF links first so the fetcher sees full text before landing pages.
		r.URLs = []string{
			w.PrimaryLocation.PDFURL,
			w.OpenAccess.OAURL,
			w.DOI,
			w.PrimaryLocation.LandingPageURL,
		}
		works = append(works, r)
	}
	return renderWorks("OpenAlex", works), nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DOI             string               `json:"doi"`
	PublicationYear int                  `json:"publication_year"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	OpenAccess      openAlexOpenAccess   `json:"open_access"`
	PrimaryLocation openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexOpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

type openAlexLocation struct {
	LandingPageURL string `json:"landing_page_url"`
	PDFURL         string `json:"pdf_url"`
}
