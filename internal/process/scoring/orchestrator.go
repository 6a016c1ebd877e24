package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
	"github.com/lueurxax/url-risk-bench/internal/platform/observability"
)

const (
	logKeyCount    = "count"
	logKeyTotal    = "total"
	logKeyPending  = "pending"
	logKeySkipped  = "skipped"
	logKeyWorkers  = "workers"
	logKeyProgress = "progress"
	logKeyScore    = "score"
	logKeyOutcome  = "outcome"

	progressLogEvery = 50
)

// URLScorer scores a single URL. Implementations never fail; problems are
// reported through Result.Outcome.
type URLScorer interface {
	Score(ctx context.Context, url string) Result
}

// Checkpoint is the single-writer sink for scored records.
type Checkpoint interface {
	// Put upserts a record and flushes when the cadence is reached.
	Put(ctx context.Context, rec domain.ScoreRecord) (flushed bool, err error)
	// Flush persists the full mapping atomically.
	Flush(ctx context.Context) error
	// Mapping returns the current in-memory mapping.
	Mapping() domain.ScoreMapping
}

// Orchestrator drives a scoring run: it fans URLs out to the scorer and funnels
// every result through one writer goroutine that owns the checkpoint.
type Orchestrator struct {
	scorer     URLScorer
	checkpoint Checkpoint
	workers    int
	logger     *zerolog.Logger
}

// NewOrchestrator creates an orchestrator. workers < 1 means sequential.
func NewOrchestrator(scorer URLScorer, checkpoint Checkpoint, workers int, logger *zerolog.Logger) *Orchestrator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if workers < 1 {
		workers = 1
	}

	return &Orchestrator{
		scorer:     scorer,
		checkpoint: checkpoint,
		workers:    workers,
		logger:     logger,
	}
}

// Run scores every URL not already present in the checkpoint mapping and
// returns summary statistics over the URLs scored in this run. A final flush
// always happens, including after cancellation. A persistence failure stops
// the run and is returned wrapped in ErrPersistence.
func (o *Orchestrator) Run(ctx context.Context, urls []string) (Summary, error) {
	start := time.Now()

	pending, skipped := o.pending(urls)

	o.logger.Info().
		Int(logKeyTotal, len(urls)).
		Int(logKeyPending, len(pending)).
		Int(logKeySkipped, skipped).
		Int(logKeyWorkers, o.workers).
		Msg("Scoring run starting")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := o.fanOut(runCtx, pending)

	stats := newRunStats()
	stats.skipped = skipped

	var writeErr error

	for res := range results {
		if writeErr != nil {
			continue
		}

		if err := o.apply(runCtx, res, stats); err != nil {
			writeErr = err

			cancel()
		}
	}

	if writeErr != nil {
		return stats.summary(time.Since(start), true), fmt.Errorf("%w: %w", apperrors.ErrPersistence, writeErr)
	}

	// The caller's context may already be canceled; the final flush still runs.
	if err := o.checkpoint.Flush(context.WithoutCancel(ctx)); err != nil {
		return stats.summary(time.Since(start), true), fmt.Errorf("%w: final flush: %w", apperrors.ErrPersistence, err)
	}

	summary := stats.summary(time.Since(start), ctx.Err() != nil)

	o.logger.Info().
		Int(logKeyCount, summary.Count).
		Float64("mean", summary.Mean).
		Float64("min", summary.Min).
		Float64("max", summary.Max).
		Int("neutral", summary.Neutral).
		Bool("interrupted", summary.Interrupted).
		Dur("duration", summary.Duration).
		Msg("Scoring run finished")

	return summary, nil
}

func (o *Orchestrator) pending(urls []string) ([]string, int) {
	existing := o.checkpoint.Mapping()
	pending := make([]string, 0, len(urls))
	skipped := 0

	for _, u := range urls {
		if _, ok := existing[u]; ok {
			skipped++

			continue
		}

		pending = append(pending, u)
	}

	return pending, skipped
}

// fanOut scores urls with at most o.workers in flight. The returned channel
// is closed once every started worker has delivered its result.
func (o *Orchestrator) fanOut(ctx context.Context, urls []string) <-chan Result {
	results := make(chan Result, o.workers)

	go func() {
		defer close(results)

		var g errgroup.Group

		g.SetLimit(o.workers)

		for _, u := range urls {
			if ctx.Err() != nil {
				break
			}

			g.Go(func() error {
				results <- o.scorer.Score(ctx, u)

				return nil
			})
		}

		_ = g.Wait() //nolint:errcheck // workers never return errors
	}()

	return results
}

func (o *Orchestrator) apply(ctx context.Context, res Result, stats *runStats) error {
	observability.URLsScored.WithLabelValues(string(res.Outcome)).Inc()

	if res.Outcome == OutcomeCanceled {
		stats.canceled++

		return nil
	}

	stats.add(res)

	if stats.count%progressLogEvery == 0 {
		o.logger.Info().Int(logKeyProgress, stats.count).Msg("Scoring progress")
	}

	o.logger.Debug().
		Str(logKeyURL, res.URL).
		Float64(logKeyScore, res.Score).
		Str(logKeyOutcome, string(res.Outcome)).
		Int(logKeyAttempts, res.Attempts).
		Msg("URL scored")

	// Put must see the uncanceled parent so a SIGINT does not abort an in-progress flush.
	if _, err := o.checkpoint.Put(context.WithoutCancel(ctx), res.Record()); err != nil {
		return err
	}

	return nil
}
