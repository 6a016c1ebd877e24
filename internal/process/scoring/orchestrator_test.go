package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
	"github.com/lueurxax/url-risk-bench/internal/core/llm"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
)

var errWriteFailed = errors.New("write failed")

// memCheckpoint mimics the file checkpointer: flush every `every` new URLs.
type memCheckpoint struct {
	mu          sync.Mutex
	mapping     domain.ScoreMapping
	every       int
	flushes     int
	flushedCtxs []error
	failAfter   int
	puts        int
}

func newMemCheckpoint(every int) *memCheckpoint {
	return &memCheckpoint{mapping: domain.NewScoreMapping(), every: every}
}

func (m *memCheckpoint) Put(ctx context.Context, rec domain.ScoreRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.puts++
	if m.failAfter > 0 && m.puts > m.failAfter {
		return false, errWriteFailed
	}

	if !m.mapping.Put(rec) || len(m.mapping)%m.every != 0 {
		return false, nil
	}

	m.flushLocked(ctx)

	return true, nil
}

func (m *memCheckpoint) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flushLocked(ctx)

	return nil
}

func (m *memCheckpoint) flushLocked(ctx context.Context) {
	m.flushes++
	m.flushedCtxs = append(m.flushedCtxs, ctx.Err())
}

func (m *memCheckpoint) Mapping() domain.ScoreMapping {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mapping.Clone()
}

func testURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("http://host%d.test/path", i)
	}

	return urls
}

func fixedScorer(score float64) *Scorer {
	provider := llm.NewScriptedProvider(func(_ context.Context, _ string) (string, error) {
		return fmt.Sprintf("reason\n{\"score\": %.2f}", score), nil
	})

	return NewScorer(provider, config.RetrySettings{Attempts: 3}, nil)
}

// cancelingScorer cancels the run after `after` URLs have been scored.
type cancelingScorer struct {
	inner  URLScorer
	cancel context.CancelFunc
	after  int

	mu    sync.Mutex
	count int
}

func (c *cancelingScorer) Score(ctx context.Context, url string) Result {
	res := c.inner.Score(ctx, url)

	c.mu.Lock()
	c.count++
	if c.count == c.after {
		c.cancel()
	}
	c.mu.Unlock()

	return res
}

func TestOrchestrator_SequentialRun(t *testing.T) {
	cp := newMemCheckpoint(10)
	o := NewOrchestrator(fixedScorer(0.8), cp, 1, nil)

	summary, err := o.Run(context.Background(), testURLs(25))

	require.NoError(t, err)
	assert.Equal(t, 25, summary.Count)
	assert.InDelta(t, 0.8, summary.Mean, 1e-9)
	assert.InDelta(t, 0.8, summary.Min, 1e-9)
	assert.InDelta(t, 0.8, summary.Max, 1e-9)
	assert.False(t, summary.Interrupted)
	assert.Equal(t, 25, summary.Strategies[StrategyJSON])
	assert.Len(t, cp.Mapping(), 25)
	// Two cadence flushes (10, 20) plus the final one.
	assert.Equal(t, 3, cp.flushes)
}

func TestOrchestrator_EmptyInput(t *testing.T) {
	cp := newMemCheckpoint(10)
	o := NewOrchestrator(fixedScorer(0.8), cp, 1, nil)

	summary, err := o.Run(context.Background(), nil)

	require.NoError(t, err)
	assert.Zero(t, summary.Count)
	assert.Zero(t, summary.Mean)
	assert.Equal(t, 1, cp.flushes)
}

func TestOrchestrator_SkipsExistingOnResume(t *testing.T) {
	urls := testURLs(5)
	cp := newMemCheckpoint(10)
	cp.mapping.Put(domain.ScoreRecord{URL: urls[0], Score: 0.1})
	cp.mapping.Put(domain.ScoreRecord{URL: urls[3], Score: 0.2})

	o := NewOrchestrator(fixedScorer(0.6), cp, 1, nil)

	summary, err := o.Run(context.Background(), urls)

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 2, summary.Skipped)

	got := cp.Mapping()
	assert.InDelta(t, 0.1, got[urls[0]].Score, 1e-9, "existing scores are kept")
	assert.InDelta(t, 0.6, got[urls[1]].Score, 1e-9)
}

func TestOrchestrator_NeutralFallbacksCounted(t *testing.T) {
	provider := llm.NewScriptedProvider(func(_ context.Context, url string) (string, error) {
		if url == "http://host1.test/path" {
			return "", errTransport
		}

		return "{\"score\": 0.4}", nil
	})

	scorer := NewScorer(provider, config.RetrySettings{Attempts: 2, Backoff: time.Millisecond}, nil)
	scorer.SetSleep((&recordingSleep{}).sleep)

	cp := newMemCheckpoint(10)

	summary, err := NewOrchestrator(scorer, cp, 1, nil).Run(context.Background(), testURLs(3))

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 1, summary.Neutral)
	assert.InDelta(t, domain.NeutralScore, cp.Mapping()["http://host1.test/path"].Score, 1e-9)
}

func TestOrchestrator_PersistenceFailureStopsRun(t *testing.T) {
	cp := newMemCheckpoint(10)
	cp.failAfter = 2

	o := NewOrchestrator(fixedScorer(0.5), cp, 1, nil)

	summary, err := o.Run(context.Background(), testURLs(20))

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPersistence))
	assert.True(t, errors.Is(err, errWriteFailed))
	assert.True(t, summary.Interrupted)
	assert.Len(t, cp.Mapping(), 2)
}

func TestOrchestrator_CancellationStillFlushes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cp := newMemCheckpoint(100)
	scorer := &cancelingScorer{inner: fixedScorer(0.7), cancel: cancel, after: 4}

	summary, err := NewOrchestrator(scorer, cp, 1, nil).Run(ctx, testURLs(50))

	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 4, summary.Count)
	assert.Len(t, cp.Mapping(), 4)

	require.Equal(t, 1, cp.flushes)
	assert.NoError(t, cp.flushedCtxs[0], "final flush runs on an uncanceled context")
}

func TestOrchestrator_ParallelMatchesSequential(t *testing.T) {
	provider := llm.NewMockProvider()
	urls := append(testURLs(30), "https://example.org/", "http://192.0.2.1/login/verify")

	sequential := newMemCheckpoint(5)
	_, err := NewOrchestrator(NewScorer(provider, config.RetrySettings{}, nil), sequential, 1, nil).
		Run(context.Background(), urls)
	require.NoError(t, err)

	parallel := newMemCheckpoint(5)
	summary, err := NewOrchestrator(NewScorer(provider, config.RetrySettings{}, nil), parallel, 8, nil).
		Run(context.Background(), urls)
	require.NoError(t, err)

	assert.Equal(t, len(urls), summary.Count)
	assert.Equal(t, sequential.Mapping(), parallel.Mapping())
}
