package eval

import (
	"encoding/json"
	"fmt"
	"math"

	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
)

// Suggestion holds the advisory thresholds. They never replace the decision
// threshold used for the reported metrics.
type Suggestion struct {
	Youden float64
	J      float64
	MaxF1  float64
	BestF1 float64
}

// MarshalJSON writes infinite thresholds as "inf".
func (s Suggestion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Youden any     `json:"youden_threshold"`
		J      float64 `json:"youden_j"`
		MaxF1  any     `json:"max_f1_threshold"`
		BestF1 float64 `json:"max_f1"`
	}{thresholdValue(s.Youden), s.J, thresholdValue(s.MaxF1), s.BestF1})
}

// Suggest scans the ROC thresholds in curve order and picks the one that
// maximizes tpr-fpr and the one that maximizes F1 on scores/labels. Ties keep
// the first candidate.
func Suggest(points []ROCPoint, scores []float64, labels []int) (Suggestion, error) {
	if len(points) == 0 {
		return Suggestion{}, fmt.Errorf("%w: empty ROC curve", apperrors.ErrInvalidInput)
	}

	if len(scores) != len(labels) {
		return Suggestion{}, fmt.Errorf("%w: %d scores, %d labels", apperrors.ErrLengthMismatch, len(scores), len(labels))
	}

	s := Suggestion{J: math.Inf(-1), BestF1: math.Inf(-1)}

	for _, p := range points {
		if j := p.TPR - p.FPR; j > s.J {
			s.J = j
			s.Youden = p.Threshold
		}

		if f1 := ConfusionAt(scores, labels, p.Threshold).F1(); f1 > s.BestF1 {
			s.BestF1 = f1
			s.MaxF1 = p.Threshold
		}
	}

	return s, nil
}
