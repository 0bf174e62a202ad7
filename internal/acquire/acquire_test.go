// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/paper-writer/pkg/types"
)

// stubFetcher returns canned outcomes keyed by locator.
type stubFetcher struct {
	content map[string]string
	fail    map[string]*types.Failure
	delay   time.Duration

	calls   int32
	active  int32
	maxSeen int32

	mu   sync.Mutex
	seen []string
}

func (s *stubFetcher) Fetch(_ context.Context, loc string) types.FetchOutcome {
	atomic.AddInt32(&s.calls, 1)
	n := atomic.AddInt32(&s.active, 1)
	defer atomic.AddInt32(&s.active, -1)
	for {
		m := atomic.LoadInt32(&s.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxSeen, m, n) {
			break
		}
	}
	s.mu.Lock()
	s.seen = append(s.seen, loc)
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if f, ok := s.fail[loc]; ok {
		return types.Failed(loc, f)
	}
	return types.Succeeded(loc, s.content[loc], types.ContentHTML)
}

func TestCollect(t *testing.T) {
	searches := []types.SectionSearch{
		{Section: "Intro", Text: "see https://u1.org/a and https://u2.org/b"},
		{Section: "Methods", Text: "https://u2.org/b then https://u3.org/c"},
		{Section: "Empty", Text: "no links here"},
		{Section: "Broken", Text: "https://ignored.org", Failure: types.NewFailure(types.FailureCollaborator, "boom")},
	}

	merged, empty := Collect(searches)

	assert.Equal(t, []string{"https://u1.org/a", "https://u2.org/b", "https://u3.org/c"}, merged)
	assert.Equal(t, 1, empty)
	assert.Equal(t, []string{"https://u2.org/b", "https://u3.org/c"}, searches[1].Locators)
	assert.Nil(t, searches[2].Locators)
	assert.Nil(t, searches[3].Locators)
}

func TestAcquire_IsolatesFailures(t *testing.T) {
	f := &stubFetcher{
		content: map[string]string{
			"https://u1.org": "<p>First   source</p>",
			"https://u3.org": "你好！！！",
		},
		fail: map[string]*types.Failure{
			"https://u2.org": types.NewFailure(types.FailureFetchNetwork, "connection refused"),
		},
	}
	var progress bytes.Buffer
	e := New(f, types.FetchConfig{Workers: 2}, WithProgress(&progress), WithLogger(zaptest.NewLogger(t)))

	result := e.Acquire(context.Background(), []string{"https://u1.org", "https://u2.org", "https://u3.org"})

	require.Len(t, result.References, 3)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, result.HasFailures())
	assert.Equal(t, 3, result.Total())

	u1, u2, u3 := result.References[0], result.References[1], result.References[2]
	assert.True(t, u1.OK())
	assert.Equal(t, "First source", u1.Text)
	assert.False(t, u2.OK())
	assert.Equal(t, types.FailureFetchNetwork, u2.Outcome.Failure.Kind)
	assert.NotEmpty(t, u2.Outcome.Failure.Detail)
	assert.Empty(t, u2.Text)
	assert.True(t, u3.OK())
	assert.Equal(t, "你好！", u3.Text)

	out := progress.String()
	assert.Contains(t, out, "fetched: https://u1.org")
	assert.Contains(t, out, "failed:  https://u2.org (fetch_network: connection refused)")
	assert.Contains(t, out, "Batch summary: 2 fetched, 1 failed, 0 canceled (total: 3)")
}

func TestAcquire_PreservesOrderAndBoundsWorkers(t *testing.T) {
	var locs []string
	content := map[string]string{}
	for _, host := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		loc := "https://" + host + ".org/doc"
		locs = append(locs, loc)
		content[loc] = "text from " + host
	}
	f := &stubFetcher{content: content, delay: 5 * time.Millisecond}
	e := New(f, types.FetchConfig{Workers: 3})

	result := e.Acquire(context.Background(), locs)

	require.Len(t, result.References, len(locs))
	for i, ref := range result.References {
		assert.Equal(t, locs[i], ref.Locator)
		assert.Equal(t, content[locs[i]], ref.Text)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&f.maxSeen), int32(3))
	assert.Equal(t, int32(len(locs)), atomic.LoadInt32(&f.calls))
}

func TestAcquire_NormalizedTextIsCappedFixedPoint(t *testing.T) {
	f := &stubFetcher{content: map[string]string{"https://long.org": strings.Repeat("a", 60000)}}
	e := New(f, types.FetchConfig{})

	result := e.Acquire(context.Background(), []string{"https://long.org"})

	require.Len(t, result.References, 1)
	assert.Equal(t, types.DefaultMaxContentLength, utf8.RuneCountInString(result.References[0].Text))
}

func TestAcquire_CanceledBeforeStart(t *testing.T) {
	f := &stubFetcher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(f, types.FetchConfig{}).Acquire(ctx, []string{"https://a.org", "https://b.org"})

	assert.Equal(t, 2, result.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.calls))
	for _, ref := range result.References {
		require.NotNil(t, ref.Outcome.Failure)
		assert.Equal(t, types.FailureCanceled, ref.Outcome.Failure.Kind)
	}
}

// cancelingFetcher cancels the batch from inside the first fetch and
// records whether its own context survived.
type cancelingFetcher struct {
	cancel   context.CancelFunc
	ctxErr   error
	attempts int32
}

func (c *cancelingFetcher) Fetch(ctx context.Context, loc string) types.FetchOutcome {
	atomic.AddInt32(&c.attempts, 1)
	c.cancel()
	c.ctxErr = ctx.Err()
	return types.Succeeded(loc, "in flight finished", types.ContentHTML)
}

func TestAcquire_CancelMidBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &cancelingFetcher{cancel: cancel}
	var progress bytes.Buffer
	e := New(f, types.FetchConfig{Workers: 1}, WithProgress(&progress))

	result := e.Acquire(ctx, []string{"https://a.org", "https://b.org", "https://c.org"})

	require.Len(t, result.References, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.attempts))
	assert.NoError(t, f.ctxErr, "in-flight fetch must not see batch cancellation")
	assert.True(t, result.References[0].OK())
	assert.Equal(t, "in flight finished", result.References[0].Text)
	for _, ref := range result.References[1:] {
		require.NotNil(t, ref.Outcome.Failure)
		assert.Equal(t, types.FailureCanceled, ref.Outcome.Failure.Kind)
	}
	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 2, result.Canceled)
	assert.Contains(t, progress.String(), "skipped: https://b.org (canceled)")
}

func TestRun(t *testing.T) {
	f := &stubFetcher{content: map[string]string{
		"https://a.org/x": "alpha",
		"https://b.org/y": "beta",
	}}
	searches := []types.SectionSearch{
		{Section: "One", Text: "https://a.org/x"},
		{Section: "Two", Text: "https://a.org/x https://b.org/y"},
		{Section: "Three", Text: "nothing"},
	}

	result := New(f, types.FetchConfig{}).Run(context.Background(), searches)

	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.EmptySections)
	require.Len(t, result.References, 2)
	assert.Equal(t, "x", result.References[0].Label)
	assert.Equal(t, "beta", result.References[1].Text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.calls))
}

func TestAcquire_Empty(t *testing.T) {
	result := New(&stubFetcher{}, types.FetchConfig{}).Acquire(context.Background(), nil)
	assert.Empty(t, result.References)
	assert.False(t, result.HasFailures())
}
