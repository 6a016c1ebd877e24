// Package llm adapts hosted language models into URL risk oracles.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
	"github.com/lueurxax/url-risk-bench/internal/platform/observability"
)

const logMsgTruncated = "Oracle output truncated due to max_tokens limit"

var errPromptTemplate = errors.New("invalid prompt template")

// New builds the provider selected by settings.Provider.
func New(ctx context.Context, settings config.OracleSettings, prompt Prompt, usage UsageRecorder, logger *zerolog.Logger) (Provider, error) {
	switch ProviderName(settings.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(settings, prompt, usage, logger), nil
	case ProviderXAI:
		return NewXAIProvider(settings, prompt, usage, logger), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(settings, prompt, usage, logger), nil
	case ProviderGoogle:
		p, err := NewGoogleProvider(ctx, settings, prompt, usage, logger)
		if err != nil {
			return nil, err
		}

		return p, nil
	case ProviderCohere:
		return NewCohereProvider(settings, prompt, usage, logger), nil
	case ProviderOpenRouter:
		return NewOpenRouterProvider(settings, prompt, usage, logger), nil
	case ProviderMock:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownProvider, settings.Provider)
	}
}

func errEmptyResponse(provider ProviderName) error {
	return fmt.Errorf("%s: %w", provider, apperrors.ErrEmptyResponse)
}

func newRateLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		rps = defaultRateLimit
	}

	return rate.NewLimiter(rate.Limit(rps), rateLimiterBurst)
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}

	return n
}

func usageOrNoop(u UsageRecorder) UsageRecorder {
	if u == nil {
		return NoopUsageRecorder()
	}

	return u
}

func loggerOrNop(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()

		return &nop
	}

	return logger
}

func observeLatency(provider ProviderName, model string, start time.Time) {
	observability.OracleRequestLatency.WithLabelValues(string(provider), model).Observe(time.Since(start).Seconds())
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	runes := []rune(s)

	return string(runes[:n]) + "..."
}
