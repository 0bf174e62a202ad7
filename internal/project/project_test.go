// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package project

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-writer/pkg/types"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *types.Paper
		wantErr string
	}{
		{
			name:  "title and description",
			input: "title: '  Tai Chi and Wellbeing '\ndescription: |\n  Effects on students.\n",
			want:  &types.Paper{Title: "Tai Chi and Wellbeing", Description: "Effects on students."},
		},
		{
			name: "with outline",
			input: `title: T
outline:
  - title: Introduction
    description: Background
  - title: Methods
`,
			want: &types.Paper{Title: "T", Outline: []types.OutlineSection{
				{Title: "Introduction", Description: "Background"},
				{Title: "Methods"},
			}},
		},
		{name: "unknown key", input: "title: T\ntitel: typo\n", wantErr: "titel"},
		{name: "section without title", input: "title: T\noutline:\n  - description: x\n", wantErr: "section 1 has no title"},
		{name: "empty", input: "", wantErr: "document is empty"},
		{name: "malformed", input: "title: [unclosed\n", wantErr: "parsing project"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading project")
}

func TestSaveThenLoad(t *testing.T) {
	p := &types.Paper{
		RunID:       "run-1",
		Title:       "T",
		Description: "D",
		Outline:     []types.OutlineSection{{Title: "A", Description: "a"}},
		Searches: []types.SectionSearch{
			{Section: "A", Text: "https://a.org", Locators: []string{"https://a.org"}},
		},
		Locators: []string{"https://a.org"},
		References: []types.Reference{{
			Locator: "https://a.org",
			Label:   "url-1",
			Outcome: types.Failed("https://a.org", types.NewFailure(types.FailureFetchTimeout, "deadline exceeded")),
		}},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	path := filepath.Join(t.TempDir(), "out", "result.yaml")
	require.NoError(t, Save(path, p))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: fetch_timeout")
	assert.Contains(t, string(data), "run_id: run-1")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestEncodeOmitsContent(t *testing.T) {
	p := &types.Paper{
		Title: "T",
		References: []types.Reference{{
			Locator: "https://a.org",
			Outcome: types.Succeeded("https://a.org", "RAW-BODY", types.ContentHTML),
			Text:    "clean",
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, p))
	assert.NotContains(t, buf.String(), "RAW-BODY")
	assert.Contains(t, buf.String(), "text: clean")
}
