package eval

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
)

var (
	separableScores = []float64{0.1, 0.3, 0.7, 0.9}
	separableLabels = []int{0, 0, 1, 1}
)

func TestCompute_PerfectlySeparable(t *testing.T) {
	m, err := Compute(separableScores, separableLabels, 0.5)
	require.NoError(t, err)

	assert.Equal(t, Confusion{TP: 2, FP: 0, TN: 2, FN: 0}, m.Confusion)
	assert.InDelta(t, 1.0, m.Precision, 1e-12)
	assert.InDelta(t, 1.0, m.Recall, 1e-12)
	assert.InDelta(t, 1.0, m.F1, 1e-12)
	assert.InDelta(t, 1.0, m.AUC, 1e-12)
}

func TestCompute_DegenerateLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []int
	}{
		{name: "only negatives", labels: []int{0, 0, 0, 0}},
		{name: "only positives", labels: []int{1, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(separableScores, tt.labels, 0.5)

			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrDegenerateLabelSet))
		})
	}

	_, err := Compute(nil, nil, 0.5)
	assert.True(t, errors.Is(err, apperrors.ErrDegenerateLabelSet), "empty input")
}

func TestCompute_LengthMismatch(t *testing.T) {
	_, err := Compute([]float64{0.1}, []int{0, 1}, 0.5)

	assert.True(t, errors.Is(err, apperrors.ErrLengthMismatch))
}

func TestCompute_IsPure(t *testing.T) {
	scores := []float64{0.9, 0.2, 0.4, 0.4, 0.8, 0.1}
	labels := []int{1, 0, 1, 0, 0, 1}
	scoresCopy := append([]float64(nil), scores...)

	first, err := Compute(scores, labels, 0.4)
	require.NoError(t, err)

	second, err := Compute(scores, labels, 0.4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, scoresCopy, scores)
}

func TestROC_TiesShareOnePoint(t *testing.T) {
	points, err := ROC([]float64{0.5, 0.5, 0.5, 0.5}, []int{0, 1, 0, 1})
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.True(t, math.IsInf(points[0].Threshold, 1))
	assert.Equal(t, ROCPoint{FPR: 1, TPR: 1, Threshold: 0.5}, points[1])
	assert.InDelta(t, 0.5, AUC(points), 1e-12)
}

func TestROC_CurveShape(t *testing.T) {
	points, err := ROC(separableScores, separableLabels)
	require.NoError(t, err)

	want := []ROCPoint{
		{FPR: 0, TPR: 0, Threshold: math.Inf(1)},
		{FPR: 0, TPR: 0.5, Threshold: 0.9},
		{FPR: 0, TPR: 1, Threshold: 0.7},
		{FPR: 0.5, TPR: 1, Threshold: 0.3},
		{FPR: 1, TPR: 1, Threshold: 0.1},
	}
	assert.Equal(t, want, points)
}

func TestAUC_Inverted(t *testing.T) {
	points, err := ROC([]float64{0.9, 0.7, 0.3, 0.1}, []int{0, 0, 1, 1})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, AUC(points), 1e-12)
}

func TestConfusion_BoundaryIsPositive(t *testing.T) {
	c := ConfusionAt([]float64{0.2, 0.2}, []int{1, 0}, 0.2)

	assert.Equal(t, Confusion{TP: 1, FP: 1}, c)
}

func TestConfusion_ZeroDenominators(t *testing.T) {
	c := ConfusionAt([]float64{0.1, 0.1}, []int{0, 1}, 0.5)

	assert.Equal(t, Confusion{TN: 1, FN: 1}, c)
	assert.Zero(t, c.Precision())
	assert.Zero(t, c.Recall())
	assert.Zero(t, c.F1())
	assert.Zero(t, Confusion{}.Accuracy())
}

func TestSuggest_PerfectlySeparable(t *testing.T) {
	points, err := ROC(separableScores, separableLabels)
	require.NoError(t, err)

	s, err := Suggest(points, separableScores, separableLabels)
	require.NoError(t, err)

	assert.Greater(t, s.Youden, 0.3)
	assert.LessOrEqual(t, s.Youden, 0.7)
	assert.Greater(t, s.MaxF1, 0.3)
	assert.LessOrEqual(t, s.MaxF1, 0.7)
	assert.InDelta(t, 1.0, s.J, 1e-12)
	assert.InDelta(t, 1.0, s.BestF1, 1e-12)
}

func TestSuggest_TiesKeepFirst(t *testing.T) {
	points := []ROCPoint{
		{FPR: 0, TPR: 0, Threshold: math.Inf(1)},
		{FPR: 0, TPR: 0.5, Threshold: 0.8},
		{FPR: 0.5, TPR: 1, Threshold: 0.6},
		{FPR: 1, TPR: 1, Threshold: 0.2},
	}
	scores := []float64{0.8, 0.6, 0.6, 0.2}
	labels := []int{1, 1, 0, 0}

	s, err := Suggest(points, scores, labels)
	require.NoError(t, err)

	assert.InDelta(t, 0.8, s.Youden, 1e-12, "J=0.5 at 0.8 and 0.6, first wins")
}

func TestSuggest_EmptyCurve(t *testing.T) {
	_, err := Suggest(nil, nil, nil)

	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestAlign_CoverageAndExclusion(t *testing.T) {
	dataset := domain.Dataset{
		{URL: "a.test", Label: "benign"},
		{URL: "b.test", Label: "phishing"},
		{URL: "c.test", Label: "benign"},
		{URL: "d.test", Label: "malware"},
		{URL: "e.test", Label: "unknown"},
	}

	mapping := domain.NewScoreMapping()
	mapping.Put(domain.ScoreRecord{URL: "a.test", Score: 0.1})
	mapping.Put(domain.ScoreRecord{URL: "b.test", Score: 0.9})
	mapping.Put(domain.ScoreRecord{URL: "d.test", Score: 0.8})
	mapping.Put(domain.ScoreRecord{URL: "e.test", Score: 0.8})

	aligned := Align(mapping, dataset)

	assert.InDelta(t, 0.75, aligned.Coverage(), 1e-12)
	assert.Equal(t, []string{"c.test"}, aligned.Missing)
	require.Len(t, aligned.Excluded, 1)
	assert.Equal(t, []float64{0.1, 0.9, 0.5, 0.8}, aligned.Scores())
	assert.Equal(t, []int{0, 1, 0, 1}, aligned.Labels())
	assert.Zero(t, Align(mapping, nil).Coverage())
}

func TestEngine_EndToEnd(t *testing.T) {
	dataset := domain.Dataset{
		{URL: "a.test", Label: "benign"},
		{URL: "b.test", Label: "phishing"},
		{URL: "c.test", Label: "benign"},
		{URL: "d.test", Label: "malware"},
	}

	mapping := domain.NewScoreMapping()
	mapping.Put(domain.ScoreRecord{URL: "a.test", Score: 0.1})
	mapping.Put(domain.ScoreRecord{URL: "b.test", Score: 0.9})
	mapping.Put(domain.ScoreRecord{URL: "d.test", Score: 0.7})
	before := mapping.Clone()

	report, err := NewEngine(nil).Evaluate(mapping, dataset, 0.2)
	require.NoError(t, err)

	assert.InDelta(t, 0.75, report.Coverage, 1e-12)
	assert.Equal(t, []string{"c.test"}, report.Missing)
	assert.InDelta(t, domain.NeutralScore, report.Samples[2].Score, 1e-12)
	assert.False(t, report.Samples[2].Covered)
	// c.test scores 0.5 >= 0.2 and is benign: one false positive.
	assert.Equal(t, Confusion{TP: 2, FP: 1, TN: 1, FN: 0}, report.Confusion)
	assert.InDelta(t, 1.0, report.AUC, 1e-12)
	assert.Equal(t, map[string]int{"benign": 2, "phishing": 1, "malware": 1}, report.Distribution)
	assert.Equal(t, before, mapping, "mapping is read-only")
}

func TestEngine_DegenerateDataset(t *testing.T) {
	dataset := domain.Dataset{{URL: "a.test", Label: "benign"}, {URL: "b.test", Label: "benign"}}

	_, err := NewEngine(nil).Evaluate(domain.NewScoreMapping(), dataset, 0.5)

	assert.True(t, errors.Is(err, apperrors.ErrDegenerateLabelSet))
}

func TestRender_TextReport(t *testing.T) {
	dataset := domain.Dataset{
		{URL: "http://benign.example/" + strings.Repeat("x", 80), Label: "benign"},
		{URL: "http://phish.example/login", Label: "phishing"},
	}

	mapping := domain.NewScoreMapping()
	mapping.Put(domain.ScoreRecord{URL: dataset[0].URL, Score: 0.05})
	mapping.Put(domain.ScoreRecord{URL: dataset[1].URL, Score: 0.15})

	report, err := NewEngine(nil).Evaluate(mapping, dataset, 0.2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, report, RenderOptions{Title: "Mock", Details: true}))

	out := buf.String()
	assert.Contains(t, out, "=== Mock (2 URLs) ===")
	assert.Contains(t, out, "Coverage: 100.0%")
	assert.Contains(t, out, "False Negatives (FN): 1")
	assert.Contains(t, out, "AUROC: 1.0000")
	assert.Contains(t, out, "(   Benign)")
	assert.Contains(t, out, "✗")
	assert.NotContains(t, out, strings.Repeat("x", 80), "long URLs are truncated")
}

func TestWriteJSON_EncodesInfinity(t *testing.T) {
	m, err := Compute(separableScores, separableLabels, 0.5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Report{Metrics: m}))

	var decoded struct {
		AUC float64 `json:"auc"`
		ROC []struct {
			Threshold any `json:"threshold"`
		} `json:"roc"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.InDelta(t, 1.0, decoded.AUC, 1e-12)
	require.NotEmpty(t, decoded.ROC)
	assert.Equal(t, "inf", decoded.ROC[0].Threshold)
	assert.InDelta(t, 0.9, decoded.ROC[1].Threshold, 1e-12)
}
