// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/paper-writer/internal/httputil"
	"github.com/pdiddy/paper-writer/internal/llm"
	"github.com/pdiddy/paper-writer/internal/locator"
	"github.com/pdiddy/paper-writer/internal/prompts"
	"github.com/pdiddy/paper-writer/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
	httputil.MaxRetryAfter = time.Millisecond
}

var (
	testPaper   = &types.Paper{Title: "Tai Chi and Student Wellbeing", Description: "Effects of tai chi practice."}
	testSection = types.OutlineSection{Title: "Methods", Description: "Study design"}
)

type fakeSearcher struct {
	name string
	text string
	err  error
	wait time.Duration
}

func (f *fakeSearcher) Name() string { return f.name }

func (f *fakeSearcher) Search(context.Context, *types.Paper, types.OutlineSection) (string, error) {
	time.Sleep(f.wait)
	return f.text, f.err
}

func TestMulti(t *testing.T) {
	tests := []struct {
		name      string
		searchers []Searcher
		want      string
		wantErr   bool
	}{
		{
			name: "joins in searcher order",
			searchers: []Searcher{
				&fakeSearcher{name: "a", text: "first https://a.org/1", wait: 20 * time.Millisecond},
				&fakeSearcher{name: "b", text: "second https://b.org/2"},
			},
			want: "first https://a.org/1\n\nsecond https://b.org/2",
		},
		{
			name: "partial failure is tolerated",
			searchers: []Searcher{
				&fakeSearcher{name: "a", err: errors.New("down")},
				&fakeSearcher{name: "b", text: "ok"},
			},
			want: "ok",
		},
		{
			name: "empty text is skipped",
			searchers: []Searcher{
				&fakeSearcher{name: "a", text: "  \n"},
				&fakeSearcher{name: "b", text: "ok"},
			},
			want: "ok",
		},
		{
			name: "all failing is an error",
			searchers: []Searcher{
				&fakeSearcher{name: "a", err: errors.New("down")},
				&fakeSearcher{name: "b", err: errors.New("also down")},
			},
			wantErr: true,
		},
		{
			name:    "no searchers",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Multi{Searchers: tt.searchers, Log: zaptest.NewLogger(t)}
			got, err := m.Search(context.Background(), testPaper, testSection)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMulti_Name(t *testing.T) {
	m := &Multi{Searchers: []Searcher{&fakeSearcher{name: "model"}, &fakeSearcher{name: "openalex"}}}
	assert.Equal(t, "model+openalex", m.Name())
}

func TestModelSearcher(t *testing.T) {
	store, err := prompts.Load("")
	require.NoError(t, err)

	var gotPrompt string
	gen := llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "A survey https://example.org/survey.pdf", nil
	})
	s := &ModelSearcher{Generator: gen, Prompts: store}

	got, err := s.Search(context.Background(), testPaper, testSection)
	require.NoError(t, err)
	assert.Equal(t, "A survey https://example.org/survey.pdf", got)
	assert.Contains(t, gotPrompt, "Paper title: Tai Chi and Student Wellbeing")
	assert.Contains(t, gotPrompt, "Section: Methods: Study design")

	s.Generator = llm.GeneratorFunc(func(context.Context, string) (string, error) {
		return "", errors.New("quota")
	})
	_, err = s.Search(context.Background(), testPaper, testSection)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestQueryText(t *testing.T) {
	p := &types.Paper{Title: "Deep Learning: A Review (2nd ed.)"}
	got := queryText(p, types.OutlineSection{Title: "Self-supervised methods & tricks"})
	assert.Equal(t, "Self-supervised methods tricks Deep Learning A Review 2nd ed", got)
}

func TestRenderWorks(t *testing.T) {
	got := renderWorks("OpenAlex", []work{
		{Title: "Tai  Chi\nStudy", Year: 2020, Authors: []string{"Li", "Wang"}, URLs: []string{"https://doi.org/10.1/x", "", "https://doi.org/10.1/x"}},
		{Title: "Anonymous", URLs: []string{"https://a.org/p.pdf"}},
		{Title: "Dated", Year: 2019},
	})
	want := "Sources from OpenAlex:\n" +
		"1. Tai Chi Study (Li et al., 2020)\n" +
		"   https://doi.org/10.1/x\n" +
		"2. Anonymous\n" +
		"   https://a.org/p.pdf\n" +
		"3. Dated (2019)"
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"https://doi.org/10.1/x", "https://a.org/p.pdf"}, locator.ExtractAll(got))

	assert.Empty(t, renderWorks("arXiv", nil))
}

func TestGet_NonOK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := get(context.Background(), ts.Client(), ts.URL, nil, 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}
