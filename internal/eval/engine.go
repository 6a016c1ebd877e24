package eval

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	"github.com/lueurxax/url-risk-bench/internal/platform/observability"
)

const (
	missingLogLimit = 5

	logKeyURL      = "url"
	logKeyMissing  = "missing"
	logKeyExcluded = "excluded"
	logKeySamples  = "samples"
)

// Metrics are the threshold-dependent and curve metrics for one evaluation.
type Metrics struct {
	ROC       []ROCPoint `json:"roc"`
	AUC       float64    `json:"auc"`
	Threshold float64    `json:"threshold"`
	Confusion Confusion  `json:"confusion"`
	Precision float64    `json:"precision"`
	Recall    float64    `json:"recall"`
	F1        float64    `json:"f1"`
	Accuracy  float64    `json:"accuracy"`
}

// Report is a full evaluation of a score mapping against a dataset.
type Report struct {
	Metrics

	Coverage     float64        `json:"coverage"`
	Missing      []string       `json:"missing,omitempty"`
	Excluded     int            `json:"excluded"`
	Distribution map[string]int `json:"distribution"`
	Suggestion   Suggestion     `json:"suggestion"`
	Samples      []Sample       `json:"samples"`
}

// Compute derives metrics from aligned scores and binary labels. Inputs are
// not modified and identical inputs give identical output.
func Compute(scores []float64, labels []int, threshold float64) (Metrics, error) {
	points, err := ROC(scores, labels)
	if err != nil {
		return Metrics{}, err
	}

	confusion := ConfusionAt(scores, labels, threshold)

	return Metrics{
		ROC:       points,
		AUC:       AUC(points),
		Threshold: threshold,
		Confusion: confusion,
		Precision: confusion.Precision(),
		Recall:    confusion.Recall(),
		F1:        confusion.F1(),
		Accuracy:  confusion.Accuracy(),
	}, nil
}

// Engine evaluates score mappings and logs coverage gaps.
type Engine struct {
	logger *zerolog.Logger
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(logger *zerolog.Logger) *Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Engine{logger: logger}
}

// Evaluate aligns mapping with dataset and computes the report at threshold.
// A single-class label set fails with ErrDegenerateLabelSet.
func (e *Engine) Evaluate(mapping domain.ScoreMapping, dataset domain.Dataset, threshold float64) (Report, error) {
	aligned := Align(mapping, dataset)

	e.logGaps(aligned)

	scores, labels := aligned.Scores(), aligned.Labels()

	metrics, err := Compute(scores, labels, threshold)
	if err != nil {
		return Report{}, fmt.Errorf("evaluate %d samples: %w", len(scores), err)
	}

	suggestion, err := Suggest(metrics.ROC, scores, labels)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Metrics:      metrics,
		Coverage:     aligned.Coverage(),
		Missing:      aligned.Missing,
		Excluded:     len(aligned.Excluded),
		Distribution: dataset.Distribution(),
		Suggestion:   suggestion,
		Samples:      aligned.Samples,
	}

	observability.EvalAUC.Set(report.AUC)
	observability.EvalCoverage.Set(report.Coverage)

	return report, nil
}

func (e *Engine) logGaps(aligned Alignment) {
	if len(aligned.Excluded) > 0 {
		e.logger.Warn().
			Int(logKeyExcluded, len(aligned.Excluded)).
			Msg("Rows without ground truth excluded")
	}

	if len(aligned.Missing) == 0 {
		return
	}

	e.logger.Warn().
		Int(logKeyMissing, len(aligned.Missing)).
		Int(logKeySamples, len(aligned.Samples)).
		Msg("Missing predictions, neutral score substituted")

	for i, url := range aligned.Missing {
		if i == missingLogLimit {
			break
		}

		e.logger.Warn().Str(logKeyURL, url).Msg("Missing prediction")
	}
}
