package llm

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

const (
	mockModel = "mock-lexical"

	mockBaseScore     = 0.1
	mockSignalWeight  = 0.2
	mockScoreCeiling  = 0.95
	mockLongURLLength = 100
)

var mockSuspiciousKeywords = []string{
	"login", "signin", "verify", "account", "update", "secure", "bank", "paypal", "webscr", ".exe", ".zip",
}

// mockProvider is an offline oracle for dry runs and tests. It scores URLs
// with a few lexical signals and answers in the reasoning format.
type mockProvider struct {
	respond func(ctx context.Context, url string) (string, error)
}

// NewMockProvider creates the lexical mock oracle.
func NewMockProvider() Provider {
	return &mockProvider{respond: lexicalReply}
}

// NewScriptedProvider creates a mock oracle that delegates to fn.
func NewScriptedProvider(fn func(ctx context.Context, url string) (string, error)) Provider {
	return &mockProvider{respond: fn}
}

func (p *mockProvider) Name() ProviderName {
	return ProviderMock
}

func (p *mockProvider) Model() string {
	return mockModel
}

func (p *mockProvider) Call(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err //nolint:wrapcheck // context errors pass through unchanged
	}

	return p.respond(ctx, url)
}

func lexicalReply(_ context.Context, raw string) (string, error) {
	signals := lexicalSignals(raw)

	score := mockBaseScore + mockSignalWeight*float64(len(signals))
	if score > mockScoreCeiling {
		score = mockScoreCeiling
	}

	reason := "No suspicious lexical signals."
	if len(signals) > 0 {
		reason = "Signals: " + strings.Join(signals, "; ") + "."
	}

	return fmt.Sprintf("%s\n{\"score\": %.2f}", reason, score), nil
}

func lexicalSignals(raw string) []string {
	var signals []string

	lower := strings.ToLower(raw)

	if strings.HasPrefix(lower, "http://") {
		signals = append(signals, "no TLS")
	}

	for _, kw := range mockSuspiciousKeywords {
		if strings.Contains(lower, kw) {
			signals = append(signals, "keyword "+kw)

			break
		}
	}

	if len(raw) > mockLongURLLength {
		signals = append(signals, "very long URL")
	}

	if host := hostOf(lower); host != "" && net.ParseIP(host) != nil {
		signals = append(signals, "raw IP host")
	}

	return signals
}

func hostOf(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return u.Hostname()
}

var _ Provider = (*mockProvider)(nil)
