package scoring

import (
	"math"
	"time"
)

// Summary describes a finished (or interrupted) scoring run. Score statistics
// cover URLs stored during this run only.
type Summary struct {
	Count       int
	Mean        float64
	Min         float64
	Max         float64
	Neutral     int
	Canceled    int
	Skipped     int
	Strategies  map[string]int
	Duration    time.Duration
	Interrupted bool
}

type runStats struct {
	count      int
	sum        float64
	min        float64
	max        float64
	neutral    int
	canceled   int
	skipped    int
	strategies map[string]int
}

func newRunStats() *runStats {
	return &runStats{
		min:        math.Inf(1),
		max:        math.Inf(-1),
		strategies: make(map[string]int),
	}
}

func (s *runStats) add(res Result) {
	s.count++
	s.sum += res.Score
	s.min = math.Min(s.min, res.Score)
	s.max = math.Max(s.max, res.Score)
	s.strategies[res.Strategy]++

	if res.Outcome == OutcomeNeutral {
		s.neutral++
	}
}

func (s *runStats) summary(elapsed time.Duration, interrupted bool) Summary {
	out := Summary{
		Count:       s.count,
		Neutral:     s.neutral,
		Canceled:    s.canceled,
		Skipped:     s.skipped,
		Strategies:  s.strategies,
		Duration:    elapsed,
		Interrupted: interrupted,
	}

	if s.count > 0 {
		out.Mean = s.sum / float64(s.count)
		out.Min = s.min
		out.Max = s.max
	}

	return out
}
