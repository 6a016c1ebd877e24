package domain

import "math"

// NeutralScore is the "no reliable signal" sentinel shared by parse failures,
// transport failures, and coverage gaps.
const NeutralScore = 0.5

// ScoreRecord is the scored outcome for a single URL.
type ScoreRecord struct {
	URL       string  `json:"url"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale,omitempty"`
}

// ScoreMapping maps a URL to its latest ScoreRecord.
// Entries are only added or overwritten, never removed, during a run.
type ScoreMapping map[string]ScoreRecord

// NewScoreMapping creates an empty mapping.
func NewScoreMapping() ScoreMapping {
	return make(ScoreMapping)
}

// Put upserts a record and reports whether the URL was new to the mapping.
// The score is clamped to [0,1] so the invariant holds for every stored record.
func (m ScoreMapping) Put(rec ScoreRecord) bool {
	rec.Score = ClampScore(rec.Score)

	_, exists := m[rec.URL]
	m[rec.URL] = rec

	return !exists
}

// Lookup returns the score stored for url.
func (m ScoreMapping) Lookup(url string) (float64, bool) {
	rec, ok := m[url]
	if !ok {
		return 0, false
	}

	return rec.Score, true
}

// Scores returns the plain url -> score view.
func (m ScoreMapping) Scores() map[string]float64 {
	out := make(map[string]float64, len(m))
	for url, rec := range m {
		out[url] = rec.Score
	}

	return out
}

// Rationales returns url -> rationale for records that carry one.
func (m ScoreMapping) Rationales() map[string]string {
	out := make(map[string]string)

	for url, rec := range m {
		if rec.Rationale != "" {
			out[url] = rec.Rationale
		}
	}

	return out
}

// Clone returns an independent copy of the mapping.
func (m ScoreMapping) Clone() ScoreMapping {
	out := make(ScoreMapping, len(m))
	for url, rec := range m {
		out[url] = rec
	}

	return out
}

// Merge folds src into dst with last-write-wins per URL and returns dst.
// A nil dst is allocated.
func Merge(dst, src ScoreMapping) ScoreMapping {
	if dst == nil {
		dst = NewScoreMapping()
	}

	for _, rec := range src {
		dst.Put(rec)
	}

	return dst
}

// ClampScore bounds v to [0,1]. NaN maps to the neutral score.
func ClampScore(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return NeutralScore
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
