package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
	"github.com/lueurxax/url-risk-bench/internal/core/llm"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
	"github.com/lueurxax/url-risk-bench/internal/platform/observability"
)

// Outcome classifies a scoring result.
type Outcome string

const (
	// OutcomeScored means the oracle answered and the reply was parsed.
	OutcomeScored Outcome = "scored"
	// OutcomeNeutral means every attempt failed and the neutral score was substituted.
	OutcomeNeutral Outcome = "neutral"
	// OutcomeCanceled means the run was canceled before the URL was scored.
	OutcomeCanceled Outcome = "canceled"
)

const (
	defaultAttempts      = 3
	defaultBackoff       = 600 * time.Millisecond
	errorRationalePrefix = "Error: "

	logKeyURL      = "url"
	logKeyAttempt  = "attempt"
	logKeyAttempts = "attempts"
	logKeyDelay    = "delay"
)

// Result is the typed outcome of scoring one URL. Failures are data, not errors.
type Result struct {
	URL       string
	Score     float64
	Rationale string
	Strategy  string
	Outcome   Outcome
	Attempts  int
	Err       error
}

// Record converts the result into a storable ScoreRecord.
func (r Result) Record() domain.ScoreRecord {
	return domain.ScoreRecord{URL: r.URL, Score: r.Score, Rationale: r.Rationale}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Scorer calls an oracle with bounded retries and linear backoff and always
// yields a bounded score.
type Scorer struct {
	provider       llm.Provider
	parser         *Parser
	attempts       int
	backoff        time.Duration
	attemptTimeout time.Duration
	sleep          SleepFunc
	logger         *zerolog.Logger
}

// NewScorer creates a scorer. Zero settings fall back to 3 attempts with a
// 600ms backoff base and no per-attempt timeout.
func NewScorer(provider llm.Provider, settings config.RetrySettings, logger *zerolog.Logger) *Scorer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	attempts := settings.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	backoff := settings.Backoff
	if backoff < 0 {
		backoff = defaultBackoff
	}

	return &Scorer{
		provider:       provider,
		parser:         NewParser(),
		attempts:       attempts,
		backoff:        backoff,
		attemptTimeout: settings.AttemptTimeout,
		sleep:          sleepContext,
		logger:         logger,
	}
}

// SetSleep replaces the backoff sleeper, for tests.
func (s *Scorer) SetSleep(fn SleepFunc) {
	s.sleep = fn
}

// Score asks the oracle about url. Attempt i (1-based) that fails is followed
// by a backoff of i*backoff before the next attempt. After the last failure
// the neutral score is returned with an "Error: ..." rationale.
func (s *Scorer) Score(ctx context.Context, url string) Result {
	provider := string(s.provider.Name())

	var lastErr error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		if ctx.Err() != nil {
			return canceled(url, attempt-1, ctx.Err())
		}

		reply, err := s.callOnce(ctx, url)
		if err == nil {
			parsed := s.parser.Parse(reply)
			observability.ScoringParseStrategy.WithLabelValues(parsed.Strategy).Inc()

			return Result{
				URL:       url,
				Score:     parsed.Score,
				Rationale: parsed.Rationale,
				Strategy:  parsed.Strategy,
				Outcome:   OutcomeScored,
				Attempts:  attempt,
			}
		}

		if ctx.Err() != nil {
			return canceled(url, attempt, ctx.Err())
		}

		lastErr = err

		observability.ScoringAttemptFailures.WithLabelValues(provider).Inc()
		s.logger.Debug().Err(err).Str(logKeyURL, url).Int(logKeyAttempt, attempt).Int(logKeyAttempts, s.attempts).Msg("Oracle attempt failed")

		if attempt == s.attempts {
			break
		}

		delay := s.backoff * time.Duration(attempt)
		if err := s.sleep(ctx, delay); err != nil {
			return canceled(url, attempt, err)
		}
	}

	observability.ScoringNeutralFallbacks.WithLabelValues(provider).Inc()
	s.logger.Warn().Err(lastErr).Str(logKeyURL, url).Int(logKeyAttempts, s.attempts).Msg("All oracle attempts failed, using neutral score")

	return Result{
		URL:       url,
		Score:     domain.NeutralScore,
		Rationale: errorRationalePrefix + lastErr.Error(),
		Strategy:  StrategyNeutral,
		Outcome:   OutcomeNeutral,
		Attempts:  s.attempts,
		Err:       lastErr,
	}
}

// callOnce runs a single bounded attempt. A panicking provider is reported as
// a failed attempt.
func (s *Scorer) callOnce(ctx context.Context, url string) (reply string, err error) {
	if s.attemptTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", apperrors.ErrProviderPanic, r)
		}
	}()

	return s.provider.Call(ctx, url)
}

func canceled(url string, attempts int, err error) Result {
	if err == nil || !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		err = context.Canceled
	}

	return Result{
		URL:      url,
		Score:    domain.NeutralScore,
		Strategy: StrategyNeutral,
		Outcome:  OutcomeCanceled,
		Attempts: attempts,
		Err:      err,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // context errors pass through unchanged
	case <-timer.C:
		return nil
	}
}
