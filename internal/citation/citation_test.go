// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/paper-writer/internal/llm"
	"github.com/pdiddy/paper-writer/internal/prompts"
	"github.com/pdiddy/paper-writer/pkg/types"
)

func okRef(loc, text string) types.Reference {
	return types.Reference{
		Locator: loc,
		Label:   "l-" + loc,
		Outcome: types.Succeeded(loc, text, types.ContentHTML),
		Text:    text,
	}
}

func failedRef(loc string) types.Reference {
	return types.Reference{
		Locator: loc,
		Outcome: types.Failed(loc, types.NewFailure(types.FailureFetchHTTP, "HTTP 404 from %s", loc)),
	}
}

func loadPrompts(t *testing.T) *prompts.Store {
	t.Helper()
	s, err := prompts.Load("")
	require.NoError(t, err)
	return s
}

func TestAssemble(t *testing.T) {
	var mu sync.Mutex
	var prompted []string
	gen := llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		mu.Lock()
		prompted = append(prompted, prompt)
		mu.Unlock()
		if strings.Contains(prompt, "explode") {
			return "", errors.New("model overloaded")
		}
		_, body, _ := strings.Cut(prompt, "Source text:\n")
		return "Cites " + body, nil
	})

	refs := []types.Reference{
		okRef("https://a.org/1", "alpha"),
		failedRef("https://b.org/2"),
		okRef("https://c.org/3", "explode"),
		okRef("https://d.org/4", "delta"),
	}

	var progress bytes.Buffer
	a := New(gen, loadPrompts(t), WithWorkers(2), WithLogger(zaptest.NewLogger(t)), WithProgress(&progress))
	records, summary := a.Assemble(context.Background(), refs)

	require.Len(t, records, 4)
	for i, rec := range records {
		assert.Equal(t, refs[i].Locator, rec.Locator)
		assert.Equal(t, refs[i].Label, rec.Label)
	}

	assert.Equal(t, "Cites alpha", records[0].Citation)
	assert.Nil(t, records[0].Failure)

	assert.Empty(t, records[1].Citation)
	require.NotNil(t, records[1].Failure)
	assert.Equal(t, types.FailureFetchHTTP, records[1].Failure.Kind)

	assert.Empty(t, records[2].Citation)
	require.NotNil(t, records[2].Failure)
	assert.Equal(t, types.FailureCollaborator, records[2].Failure.Kind)
	assert.Contains(t, records[2].Failure.Detail, "model overloaded")

	assert.Equal(t, "Cites delta", records[3].Citation)

	assert.Len(t, prompted, 3, "failed fetch must not reach the generator")
	assert.Equal(t, Summary{Cited: 2, Skipped: 1, Failed: 1}, summary)
	assert.Equal(t, 4, summary.Total())
	assert.Contains(t, progress.String(), "Citation summary: 2 cited, 1 skipped, 1 failed (total: 4)")
}

func TestAssemble_WorkerBound(t *testing.T) {
	var inFlight, peak int32
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return "ok", nil
	})

	refs := make([]types.Reference, 12)
	for i := range refs {
		refs[i] = okRef("https://x.org/"+string(rune('a'+i)), "text")
	}

	records, summary := New(gen, loadPrompts(t), WithWorkers(3)).Assemble(context.Background(), refs)
	assert.Len(t, records, 12)
	assert.Equal(t, 12, summary.Cited)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestAssemble_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		called = true
		return "ok", nil
	})

	records, summary := New(gen, loadPrompts(t)).Assemble(ctx, []types.Reference{okRef("https://a.org", "t")})
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Failure)
	assert.Equal(t, types.FailureCanceled, records[0].Failure.Kind)
	assert.False(t, called)
	assert.Equal(t, 1, summary.Failed)
}

func TestAssemble_Empty(t *testing.T) {
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) { return "", nil })
	records, summary := New(gen, loadPrompts(t)).Assemble(context.Background(), nil)
	assert.Empty(t, records)
	assert.Zero(t, summary.Total())
}
