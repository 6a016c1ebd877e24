package eval

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	detailURLWidth = 50
	labelWidth     = 10
	predWidth      = 9
	markCorrect    = "✓"
	markWrong      = "✗"
	predMalicious  = "malicious"
	predBenign     = "benign"
	separatorWidth = 50
)

// RenderOptions controls the text report.
type RenderOptions struct {
	Title   string
	Details bool
}

// Render writes a human-readable report to w.
func Render(w io.Writer, r Report, opts RenderOptions) error {
	p := message.NewPrinter(language.English)
	title := cases.Title(language.English)

	var b strings.Builder

	if opts.Title != "" {
		p.Fprintf(&b, "=== %s (%d URLs) ===\n", opts.Title, len(r.Samples))
	}

	p.Fprintf(&b, "Label distribution: %s\n", formatDistribution(r.Distribution))
	p.Fprintf(&b, "Coverage: %.1f%% (%d missing, %d excluded)\n", r.Coverage*100, len(r.Missing), r.Excluded)
	p.Fprintf(&b, "Decision threshold: %.3f\n", r.Threshold)
	p.Fprintf(&b, "True Positives (TP): %d\n", r.Confusion.TP)
	p.Fprintf(&b, "False Positives (FP): %d\n", r.Confusion.FP)
	p.Fprintf(&b, "True Negatives (TN): %d\n", r.Confusion.TN)
	p.Fprintf(&b, "False Negatives (FN): %d\n", r.Confusion.FN)
	p.Fprintf(&b, "Precision: %.4f\n", r.Precision)
	p.Fprintf(&b, "Recall: %.4f\n", r.Recall)
	p.Fprintf(&b, "F1 Score: %.4f\n", r.F1)
	p.Fprintf(&b, "Accuracy: %.4f\n", r.Accuracy)
	p.Fprintf(&b, "AUROC: %.4f\n", r.AUC)
	fmt.Fprintf(&b, "Suggested threshold (Youden's J): %s\n", formatThreshold(r.Suggestion.Youden))
	fmt.Fprintf(&b, "Suggested threshold (Max F1):     %s\n", formatThreshold(r.Suggestion.MaxF1))

	if opts.Details {
		b.WriteString("\n" + strings.Repeat("=", separatorWidth) + "\n")
		b.WriteString("Details:\n")

		for i, s := range r.Samples {
			pred := predBenign
			predicted := Predict(s.Score, r.Threshold)

			if predicted {
				pred = predMalicious
			}

			mark := markWrong
			if predicted == (s.Truth == 1) {
				mark = markCorrect
			}

			fmt.Fprintf(&b, "%3d. %-*s | True: %*s | Pred: %.3f (%*s) | %s\n",
				i+1,
				detailURLWidth, truncateURL(s.URL),
				labelWidth, s.Label,
				s.Score,
				predWidth, title.String(pred),
				mark,
			)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

// WriteJSON encodes the report for chart renderers and other tools.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return nil
}

func formatThreshold(t float64) string {
	if math.IsInf(t, 1) {
		return infThreshold
	}

	return fmt.Sprintf("%.3f", t)
}

func formatDistribution(dist map[string]int) string {
	labels := make([]string, 0, len(dist))
	for label := range dist {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	parts := make([]string, len(labels))
	for i, label := range labels {
		parts[i] = fmt.Sprintf("%s=%d", label, dist[label])
	}

	return strings.Join(parts, ", ")
}

func truncateURL(u string) string {
	runes := []rune(u)
	if len(runes) <= detailURLWidth {
		return u
	}

	return string(runes[:detailURLWidth])
}
