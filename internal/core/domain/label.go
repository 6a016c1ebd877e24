package domain

import "strings"

// Dataset label categories.
const (
	LabelBenign     = "benign"
	LabelPhishing   = "phishing"
	LabelMalware    = "malware"
	LabelDefacement = "defacement"
	LabelMal        = "mal"
	LabelMalicious  = "malicious"
	LabelUnknown    = "unknown"
)

// Binary ground truth values.
const (
	TruthBenign    = 0
	TruthMalicious = 1
)

// LabeledURL is one dataset row.
type LabeledURL struct {
	URL   string
	Label string
}

// Dataset is an ordered sequence of labeled URLs, owned by the caller.
type Dataset []LabeledURL

// URLs returns the dataset URLs in input order.
func (d Dataset) URLs() []string {
	urls := make([]string, len(d))
	for i, row := range d {
		urls[i] = row.URL
	}

	return urls
}

// Distribution counts rows per normalized label.
func (d Dataset) Distribution() map[string]int {
	counts := make(map[string]int)
	for _, row := range d {
		counts[NormalizeLabel(row.Label)]++
	}

	return counts
}

// NormalizeLabel lowercases and trims a raw label.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// BinaryTruth reduces a categorical label to 0 (benign) or 1 (malicious).
// The second result is false for labels outside the recognized set, including
// "unknown" and empty labels; such rows carry no ground truth.
func BinaryTruth(label string) (int, bool) {
	switch NormalizeLabel(label) {
	case LabelBenign:
		return TruthBenign, true
	case LabelPhishing, LabelMalware, LabelDefacement, LabelMal, LabelMalicious:
		return TruthMalicious, true
	default:
		return 0, false
	}
}
