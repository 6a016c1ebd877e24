package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantScore     float64
		wantRationale string
		wantStrategy  string
	}{
		{
			name:         "empty",
			raw:          "",
			wantScore:    0.5,
			wantStrategy: StrategyNeutral,
		},
		{
			name:         "whitespace only",
			raw:          " \n\t\n",
			wantScore:    0.5,
			wantStrategy: StrategyNeutral,
		},
		{
			name:         "bare json",
			raw:          `{"score": 0.73}`,
			wantScore:    0.73,
			wantStrategy: StrategyJSON,
		},
		{
			name:          "reasoning then clamped json",
			raw:           "some reasoning\n{\"score\": 1.5}",
			wantScore:     1.0,
			wantRationale: "some reasoning",
			wantStrategy:  StrategyJSON,
		},
		{
			name:          "multi-line rationale with blank lines and CRLF",
			raw:           "step one\r\n\r\n  step two  \r\n{\"score\": 0.2}\r\n",
			wantScore:     0.2,
			wantRationale: "step one\n  step two",
			wantStrategy:  StrategyJSON,
		},
		{
			name:         "negative json score clamps to zero",
			raw:          `{"score": -3}`,
			wantScore:    0,
			wantStrategy: StrategyJSON,
		},
		{
			name:         "numeric string score",
			raw:          `{"score": "0.4"}`,
			wantScore:    0.4,
			wantStrategy: StrategyJSON,
		},
		{
			name:         "free text number",
			raw:          "I think this is risky, about 0.8 likely",
			wantScore:    0.8,
			wantStrategy: StrategyNumber,
		},
		{
			name:          "first number wins, not last",
			raw:           "Seen 2 redirects\nscore 0.9",
			wantScore:     1.0,
			wantRationale: "Seen 2 redirects",
			wantStrategy:  StrategyNumber,
		},
		{
			name:         "json without score field falls back to scan",
			raw:          `{"risk": 0.35}`,
			wantScore:    0.35,
			wantStrategy: StrategyNumber,
		},
		{
			name:         "non-numeric score string falls back to scan",
			raw:          `{"score": "high"}`,
			wantScore:    0.5,
			wantStrategy: StrategyNeutral,
		},
		{
			name:         "no number at all",
			raw:          "cannot determine",
			wantScore:    0.5,
			wantStrategy: StrategyNeutral,
		},
		{
			name:         "numeric style reply",
			raw:          "0.05",
			wantScore:    0.05,
			wantStrategy: StrategyNumber,
		},
	}

	p := NewParser()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.raw)

			assert.InDelta(t, tt.wantScore, got.Score, 1e-12)
			assert.Equal(t, tt.wantRationale, got.Rationale)
			assert.Equal(t, tt.wantStrategy, got.Strategy)
		})
	}
}

func TestParser_AlwaysBounded(t *testing.T) {
	inputs := []string{
		"-0.0001", "999999", "1e9", "{\"score\": 1e308}", "{\"score\": -1e308}",
		"{\"score\": \"NaN\"}", "{\"score\": null}", "score: -7.5 or 12", "\x00\xff", "}{",
	}

	p := NewParser()

	for _, in := range inputs {
		got := p.Parse(in)
		assert.GreaterOrEqual(t, got.Score, 0.0, in)
		assert.LessOrEqual(t, got.Score, 1.0, in)
	}
}
