// Package eval scores a finished run against ground truth.
//
// Scores are aligned to the dataset by URL, missing scores become the neutral
// score and are reported as coverage gaps, and rows whose label carries no
// ground truth are excluded. From the aligned samples the package computes the
// ROC curve, its AUC, a confusion matrix at a fixed threshold, and advisory
// thresholds (Youden's J and max F1).
package eval

import "github.com/lueurxax/url-risk-bench/internal/core/domain"

// Sample is one dataset row joined with its score.
type Sample struct {
	URL     string  `json:"url"`
	Label   string  `json:"label"`
	Truth   int     `json:"truth"`
	Score   float64 `json:"score"`
	Covered bool    `json:"covered"`
}

// Alignment is the dataset joined with a score mapping.
type Alignment struct {
	Samples  []Sample
	Missing  []string
	Excluded []domain.LabeledURL
}

// Align joins dataset rows to mapping by URL in dataset order. The mapping is
// only read.
func Align(mapping domain.ScoreMapping, dataset domain.Dataset) Alignment {
	var out Alignment

	for _, row := range dataset {
		truth, ok := domain.BinaryTruth(row.Label)
		if !ok {
			out.Excluded = append(out.Excluded, row)

			continue
		}

		score, covered := mapping.Lookup(row.URL)
		if !covered {
			score = domain.NeutralScore
			out.Missing = append(out.Missing, row.URL)
		}

		out.Samples = append(out.Samples, Sample{
			URL:     row.URL,
			Label:   row.Label,
			Truth:   truth,
			Score:   domain.ClampScore(score),
			Covered: covered,
		})
	}

	return out
}

// Coverage is the share of labeled rows that had a score, in [0,1].
// An empty alignment has zero coverage.
func (a Alignment) Coverage() float64 {
	if len(a.Samples) == 0 {
		return 0
	}

	return float64(len(a.Samples)-len(a.Missing)) / float64(len(a.Samples))
}

// Scores returns sample scores in dataset order.
func (a Alignment) Scores() []float64 {
	out := make([]float64, len(a.Samples))
	for i, s := range a.Samples {
		out[i] = s.Score
	}

	return out
}

// Labels returns binary ground truth in dataset order.
func (a Alignment) Labels() []int {
	out := make([]int, len(a.Samples))
	for i, s := range a.Samples {
		out[i] = s.Truth
	}

	return out
}
