package llm

import (
	"context"
)

// ProviderName identifies an LLM provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenAI     ProviderName = "openai"
	ProviderXAI        ProviderName = "xai"
	ProviderAnthropic  ProviderName = "anthropic"
	ProviderGoogle     ProviderName = "google"
	ProviderCohere     ProviderName = "cohere"
	ProviderOpenRouter ProviderName = "openrouter"
	ProviderMock       ProviderName = "mock"
)

// Provider is a scoring oracle. Call sends the rendered prompt for a URL and
// returns the raw free-text reply. Implementations must be safe for concurrent
// use and must honor ctx cancellation.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// Model returns the resolved model name.
	Model() string

	// Call asks the oracle about a single URL.
	Call(ctx context.Context, url string) (string, error)
}
