// Package scoring turns oracle replies into bounded risk scores and drives a
// resumable, checkpointed scoring run over a dataset.
package scoring

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
)

// Parse strategy names, reported in Parsed.Strategy and metrics.
const (
	StrategyJSON    = "json"
	StrategyNumber  = "number"
	StrategyNeutral = "neutral"
)

const scoreField = "score"

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Parsed is the outcome of parsing one oracle reply.
type Parsed struct {
	Score     float64
	Rationale string
	Strategy  string
}

// reply is the pre-split form of a raw oracle answer handed to each strategy.
type reply struct {
	raw      string
	lastLine string
}

// Strategy extracts a raw (unclamped) score from a reply, or reports no match.
type Strategy struct {
	Name    string
	Extract func(r reply) (float64, bool)
}

// Parser applies its strategies in order; the first match wins. When none
// match the neutral score is returned.
type Parser struct {
	strategies []Strategy
}

// NewParser returns the standard chain: a structured score object on the last
// non-empty line, then the first signed decimal anywhere in the reply.
func NewParser() *Parser {
	return &Parser{strategies: []Strategy{
		{Name: StrategyJSON, Extract: lastLineJSON},
		{Name: StrategyNumber, Extract: firstNumber},
	}}
}

// Parse never fails. The returned score is always within [0,1].
func (p *Parser) Parse(raw string) Parsed {
	lines := nonEmptyLines(raw)
	if len(lines) == 0 {
		return Parsed{Score: domain.NeutralScore, Strategy: StrategyNeutral}
	}

	r := reply{
		raw:      raw,
		lastLine: strings.TrimSpace(lines[len(lines)-1]),
	}
	rationale := strings.TrimSpace(strings.Join(lines[:len(lines)-1], "\n"))

	for _, s := range p.strategies {
		if v, ok := s.Extract(r); ok {
			return Parsed{Score: domain.ClampScore(v), Rationale: rationale, Strategy: s.Name}
		}
	}

	return Parsed{Score: domain.NeutralScore, Rationale: rationale, Strategy: StrategyNeutral}
}

func nonEmptyLines(raw string) []string {
	var lines []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	return lines
}

func lastLineJSON(r reply) (float64, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(r.lastLine), &obj); err != nil {
		return 0, false
	}

	field, ok := obj[scoreField]
	if !ok || string(field) == "null" {
		return 0, false
	}

	var num float64
	if err := json.Unmarshal(field, &num); err == nil {
		return num, true
	}

	var str string
	if err := json.Unmarshal(field, &str); err != nil {
		return 0, false
	}

	num, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, false
	}

	return num, true
}

func firstNumber(r reply) (float64, bool) {
	match := numberPattern.FindString(r.raw)
	if match == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}
