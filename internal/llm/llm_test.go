// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/paper-writer/internal/httputil"
	"github.com/pdiddy/paper-writer/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
	httputil.MaxRetryAfter = time.Millisecond
}

func TestChatCompletions_Generate(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"See the survey."}}],"citations":["https://a.org/1","https://b.org/2"]}`))
	}))
	defer ts.Close()

	tests := []struct {
		name      string
		citations bool
		want      string
	}{
		{"plain", false, "See the survey."},
		{"with citations", true, "See the survey.\n\nCitations: https://a.org/1, https://b.org/2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &ChatCompletions{
				BaseURL: ts.URL + "/v1/", Model: "sonar", APIKey: "k",
				Client: ts.Client(), AppendCitations: tt.citations, Log: zaptest.NewLogger(t),
			}
			got, err := c.Generate(context.Background(), "find sources")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Bearer k", gotAuth)
			assert.Equal(t, "sonar", gotReq.Model)
			require.Len(t, gotReq.Messages, 1)
			assert.Equal(t, chatMessage{Role: "user", Content: "find sources"}, gotReq.Messages[0])
		})
	}
}

func TestChatCompletions_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, "returned 500"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"bad json", http.StatusOK, `not json`, "decoding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			c := &ChatCompletions{BaseURL: ts.URL, Model: "m", Client: ts.Client()}
			_, err := c.Generate(context.Background(), "p")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestChatCompletions_RetriesRateLimit(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer ts.Close()

	c := &ChatCompletions{BaseURL: ts.URL, Model: "m", Client: ts.Client(), MaxRetries: 2}
	got, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClaude_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		var req claudeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, claudeMaxTokens, req.MaxTokens)
		w.Write([]byte(`{"content":[{"type":"text","text":"Hello "},{"type":"tool_use"},{"type":"text","text":"world"}]}`))
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	c := &Claude{Model: "claude-x", APIKey: "key", Client: ts.Client()}
	got, err := c.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got)
}

func TestClaude_BaseURLAndEmptyContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Write([]byte(`{"content":[]}`))
	}))
	defer ts.Close()

	c := &Claude{BaseURL: ts.URL + "/v1", Model: "m", Client: ts.Client()}
	_, err := c.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text content")
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.ModelConfig
		wantT   any
		wantErr string
	}{
		{"openai default provider", types.ModelConfig{Name: "m", BaseURL: "http://x"}, &ChatCompletions{}, ""},
		{"anthropic", types.ModelConfig{Name: "m", Provider: types.ProviderAnthropic}, &Claude{}, ""},
		{"missing name", types.ModelConfig{BaseURL: "http://x"}, nil, "name is required"},
		{"openai without base url", types.ModelConfig{Name: "m"}, nil, "base_url is required"},
		{"unknown provider", types.ModelConfig{Name: "m", Provider: "gopher"}, nil, "unsupported provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.cfg, "k", nil, true, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantT, g)
		})
	}
}

func TestGeneratorFunc(t *testing.T) {
	g := GeneratorFunc(func(_ context.Context, p string) (string, error) { return "echo: " + p, nil })
	got, err := g.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "echo: x", got)
}

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"wrapped in prose", "Here is the outline:\n```json\n{\"sections\":[]}\n```\nThanks!", `{"sections":[]}`, true},
		{"nested", `x {"a":{"b":{}}} y {"c":2}`, `{"a":{"b":{}}}`, true},
		{"brace inside string", `{"t":"a } b { c"}`, `{"t":"a } b { c"}`, true},
		{"escaped quote in string", `{"t":"say \"}\" now"} tail`, `{"t":"say \"}\" now"}`, true},
		{"unclosed first brace skipped", `{ not closed ... then {"ok":true}`, `{"ok":true}`, true},
		{"no object", "no json here", "", false},
		{"only closing", "}}", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstJSONObject(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSONObject(t *testing.T) {
	type outline struct {
		Sections []struct {
			Title string `json:"title"`
		} `json:"sections"`
	}

	t.Run("decodes wrapped object", func(t *testing.T) {
		var o outline
		err := DecodeJSONObject("Sure!\n{\"sections\":[{\"title\":\"Intro\"}]}", &o)
		require.NoError(t, err)
		require.Len(t, o.Sections, 1)
		assert.Equal(t, "Intro", o.Sections[0].Title)
	})

	t.Run("missing object is a response failure", func(t *testing.T) {
		var o outline
		err := DecodeJSONObject("1. Introduction\n2. Methods", &o)
		var f *types.Failure
		require.True(t, errors.As(err, &f))
		assert.Equal(t, types.FailureCollaboratorResponse, f.Kind)
	})

	t.Run("malformed object is a response failure", func(t *testing.T) {
		var o outline
		err := DecodeJSONObject(`{"sections": [1, 2,]}`, &o)
		assert.ErrorIs(t, err, &types.Failure{Kind: types.FailureCollaboratorResponse})
	})
}
