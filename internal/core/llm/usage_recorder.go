package llm

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/lueurxax/url-risk-bench/internal/platform/observability"
)

// Budget threshold percentages.
const (
	BudgetThresholdWarning  = 0.8
	BudgetThresholdCritical = 1.0
)

// Budget alert levels.
const (
	BudgetLevelWarning  = "warning"
	BudgetLevelCritical = "critical"
)

// UsageRecorder records token usage for oracle requests.
type UsageRecorder interface {
	RecordTokenUsage(provider ProviderName, model string, promptTokens, completionTokens int, success bool)
}

// Usage is a snapshot of the tokens and estimated cost of a run.
type Usage struct {
	Requests         int64
	Failures         int64
	PromptTokens     int64
	CompletionTokens int64
	CostUSD          float64
}

// TotalTokens returns prompt plus completion tokens.
func (u Usage) TotalTokens() int64 {
	return u.PromptTokens + u.CompletionTokens
}

// BudgetAlert is raised once per level when run token usage crosses a threshold.
type BudgetAlert struct {
	Level       string
	Tokens      int64
	BudgetLimit int64
	Percentage  float64
}

// UsageTracker accumulates run totals, exports Prometheus metrics, and raises
// budget alerts against an optional token limit.
type UsageTracker struct {
	mu            sync.Mutex
	usage         Usage
	limit         int64
	warningFired  bool
	criticalFired bool
	alertCallback func(alert BudgetAlert)
	logger        *zerolog.Logger
}

// NewUsageTracker creates a tracker. A limit of 0 disables budget alerts.
func NewUsageTracker(limit int64, logger *zerolog.Logger) *UsageTracker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &UsageTracker{limit: limit, logger: logger}
}

// SetAlertCallback sets the function invoked when a budget threshold is crossed.
func (t *UsageTracker) SetAlertCallback(callback func(alert BudgetAlert)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alertCallback = callback
}

// RecordTokenUsage implements UsageRecorder.
func (t *UsageTracker) RecordTokenUsage(provider ProviderName, model string, promptTokens, completionTokens int, success bool) {
	recordTokenMetrics(provider, model, promptTokens, completionTokens, success)

	cost := EstimateCost(provider, model, promptTokens, completionTokens)
	if cost > 0 && success {
		observability.OracleEstimatedCost.WithLabelValues(string(provider), model).Add(cost * usdToMillicents)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.usage.Requests++

	if !success {
		t.usage.Failures++

		return
	}

	t.usage.PromptTokens += int64(promptTokens)
	t.usage.CompletionTokens += int64(completionTokens)
	t.usage.CostUSD += cost

	t.checkBudgetLocked()
}

// Snapshot returns the accumulated usage.
func (t *UsageTracker) Snapshot() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.usage
}

func (t *UsageTracker) checkBudgetLocked() {
	if t.limit <= 0 {
		return
	}

	tokens := t.usage.TotalTokens()
	percentage := float64(tokens) / float64(t.limit)

	if !t.criticalFired && percentage >= BudgetThresholdCritical {
		t.criticalFired = true
		t.warningFired = true
		t.fireAlert(BudgetLevelCritical, tokens, percentage)

		return
	}

	if !t.warningFired && percentage >= BudgetThresholdWarning {
		t.warningFired = true
		t.fireAlert(BudgetLevelWarning, tokens, percentage)
	}
}

func (t *UsageTracker) fireAlert(level string, tokens int64, percentage float64) {
	t.logger.Warn().
		Str("level", level).
		Int64("tokens", tokens).
		Int64("budget_limit", t.limit).
		Float64("percentage", percentage).
		Msg("Oracle token budget threshold reached")

	if t.alertCallback == nil {
		return
	}

	alert := BudgetAlert{
		Level:       level,
		Tokens:      tokens,
		BudgetLimit: t.limit,
		Percentage:  percentage,
	}

	// Fire callback in goroutine to avoid blocking the scoring workers
	go t.alertCallback(alert)
}

func recordTokenMetrics(provider ProviderName, model string, promptTokens, completionTokens int, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}

	observability.OracleRequestsTotal.WithLabelValues(string(provider), model, status).Inc()

	if promptTokens > 0 {
		observability.OracleTokensPrompt.WithLabelValues(string(provider), model).Add(float64(promptTokens))
	}

	if completionTokens > 0 {
		observability.OracleTokensCompletion.WithLabelValues(string(provider), model).Add(float64(completionTokens))
	}
}

type noopUsageRecorder struct{}

// NoopUsageRecorder returns a recorder that discards usage.
func NoopUsageRecorder() UsageRecorder {
	return noopUsageRecorder{}
}

func (noopUsageRecorder) RecordTokenUsage(_ ProviderName, _ string, _, _ int, _ bool) {}
