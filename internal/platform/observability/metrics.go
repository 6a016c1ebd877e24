package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by the scoring and checkpoint metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OutcomeScored   = "scored"
	OutcomeNeutral  = "neutral"
	OutcomeCanceled = "canceled"
)

var (
	OracleRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urlrisk_oracle_requests_total",
		Help: "Total oracle requests by provider, model and status",
	}, []string{"provider", "model", "status"})

	OracleRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "urlrisk_oracle_request_latency_seconds",
		Help:    "Oracle request latency by provider",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider", "model"})

	OracleTokensPrompt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urlrisk_oracle_tokens_prompt_total",
		Help: "Total prompt tokens consumed by provider and model",
	}, []string{"provider", "model"})

	OracleTokensCompletion = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urlrisk_oracle_tokens_completion_total",
		Help: "Total completion tokens consumed by provider and model",
	}, []string{"provider", "model"})

	OracleEstimatedCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urlrisk_oracle_estimated_cost_millicents_total",
		Help: "Estimated oracle cost in millicents (1/1000 of a cent)",
	}, []string{"provider", "model"})

	ScoringAttemptFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urlrisk_scoring_attempt_failures_total",
		Help: "Failed oracle attempts inside the retry loop",
	}, []string{"provider"})

	ScoringNeutralFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urlrisk_scoring_neutral_fallbacks_total",
		Help: "URLs that received the neutral score after exhausting retries",
	}, []string{"provider"})

	ScoringParseStrategy = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urlrisk_scoring_parse_strategy_total",
		Help: "Parsed replies by the extraction strategy that produced the score",
	}, []string{"strategy"})

	URLsScored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urlrisk_urls_scored_total",
		Help: "URLs processed by outcome",
	}, []string{"outcome"})

	CheckpointFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "urlrisk_checkpoint_flushes_total",
		Help: "Checkpoint flushes by backend and status",
	}, []string{"backend", "status"})

	CheckpointSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "urlrisk_checkpoint_size",
		Help: "Number of URLs in the last flushed checkpoint",
	})

	EvalAUC = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "urlrisk_eval_auc",
		Help: "AUC of the most recent evaluation",
	})

	EvalCoverage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "urlrisk_eval_coverage_ratio",
		Help: "Fraction of dataset URLs present in the score mapping",
	})
)
