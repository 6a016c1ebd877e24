package eval

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
)

const infThreshold = "inf"

// ROCPoint is one operating point of the ROC curve. Threshold is the lowest
// score still predicted positive; the first point uses +Inf.
type ROCPoint struct {
	FPR       float64
	TPR       float64
	Threshold float64
}

// MarshalJSON writes an infinite threshold as the string "inf".
func (p ROCPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FPR       float64 `json:"fpr"`
		TPR       float64 `json:"tpr"`
		Threshold any     `json:"threshold"`
	}{p.FPR, p.TPR, thresholdValue(p.Threshold)})
}

func thresholdValue(t float64) any {
	if math.IsInf(t, 1) {
		return infThreshold
	}

	return t
}

// ROC computes the curve over every distinct score, highest first. It fails
// with ErrDegenerateLabelSet unless both classes are present.
func ROC(scores []float64, labels []int) ([]ROCPoint, error) {
	positives, negatives, err := classCounts(scores, labels)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	points := make([]ROCPoint, 0, len(scores)+1)
	points = append(points, ROCPoint{FPR: 0, TPR: 0, Threshold: math.Inf(1)})

	tp, fp := 0, 0

	for i, idx := range order {
		if labels[idx] == 1 {
			tp++
		} else {
			fp++
		}

		// Emit a point only after the last sample sharing this score.
		if i+1 < len(order) && scores[order[i+1]] == scores[idx] {
			continue
		}

		points = append(points, ROCPoint{
			FPR:       float64(fp) / float64(negatives),
			TPR:       float64(tp) / float64(positives),
			Threshold: scores[idx],
		})
	}

	return points, nil
}

// AUC integrates the curve with the trapezoidal rule.
func AUC(points []ROCPoint) float64 {
	area := 0.0

	for i := 1; i < len(points); i++ {
		width := points[i].FPR - points[i-1].FPR
		area += width * (points[i].TPR + points[i-1].TPR) / 2
	}

	return area
}

func classCounts(scores []float64, labels []int) (int, int, error) {
	if len(scores) != len(labels) {
		return 0, 0, fmt.Errorf("%w: %d scores, %d labels", apperrors.ErrLengthMismatch, len(scores), len(labels))
	}

	positives, negatives := 0, 0

	for _, l := range labels {
		if l == 1 {
			positives++
		} else {
			negatives++
		}
	}

	if positives == 0 || negatives == 0 {
		return 0, 0, fmt.Errorf("%w: %d positive, %d negative", apperrors.ErrDegenerateLabelSet, positives, negatives)
	}

	return positives, negatives, nil
}
