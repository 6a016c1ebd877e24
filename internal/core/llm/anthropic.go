package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/url-risk-bench/internal/platform/config"
)

// anthropicProvider implements Provider for Anthropic Claude.
type anthropicProvider struct {
	model       string
	settings    config.OracleSettings
	prompt      Prompt
	client      anthropic.Client
	usage       UsageRecorder
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(settings config.OracleSettings, prompt Prompt, usage UsageRecorder, logger *zerolog.Logger) Provider {
	opts := []option.RequestOption{option.WithAPIKey(settings.APIKey)}
	if settings.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(settings.Endpoint))
	}

	return &anthropicProvider{
		model:       resolveAnthropicModel(settings.Model),
		settings:    settings,
		prompt:      prompt,
		client:      anthropic.NewClient(opts...),
		usage:       usageOrNoop(usage),
		logger:      loggerOrNop(logger),
		rateLimiter: newRateLimiter(settings.RateLimit),
	}
}

func resolveAnthropicModel(model string) string {
	if strings.HasPrefix(model, modelPrefixClaude) {
		return model
	}

	return ModelClaudeHaiku
}

func (p *anthropicProvider) Name() ProviderName {
	return ProviderAnthropic
}

func (p *anthropicProvider) Model() string {
	return p.model
}

func (p *anthropicProvider) Call(ctx context.Context, url string) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokensOrDefault(p.settings.MaxTokens)),
		Temperature: anthropic.Float(float64(p.settings.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.prompt.Render(url))),
		},
	}

	if p.prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.prompt.System}}
	}

	start := time.Now()
	resp, err := p.client.Messages.New(ctx, params)

	observeLatency(ProviderAnthropic, p.model, start)

	if err != nil {
		p.usage.RecordTokenUsage(ProviderAnthropic, p.model, 0, 0, false)

		return "", fmt.Errorf(errAnthropicMessages, err)
	}

	p.usage.RecordTokenUsage(ProviderAnthropic, p.model, int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens), true)

	text := strings.TrimSpace(extractTextFromResponse(resp))
	if text == "" {
		return "", errEmptyResponse(ProviderAnthropic)
	}

	p.logger.Debug().Str(logKeyURL, url).Str(logKeyResponse, truncate(text, truncateLengthLong)).Msg("Oracle response")

	return text, nil
}

// extractTextFromResponse concatenates the text blocks of a message.
func extractTextFromResponse(resp *anthropic.Message) string {
	var result strings.Builder

	for _, block := range resp.Content {
		if block.Type == contentTypeText {
			result.WriteString(block.Text)
		}
	}

	return result.String()
}

var _ Provider = (*anthropicProvider)(nil)
