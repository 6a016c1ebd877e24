package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/lueurxax/url-risk-bench/internal/platform/config"
)

// openaiProvider talks to any OpenAI-compatible chat completions API.
// It backs both the openai and xai providers.
type openaiProvider struct {
	name        ProviderName
	model       string
	settings    config.OracleSettings
	prompt      Prompt
	client      *openai.Client
	usage       UsageRecorder
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewOpenAIProvider creates an OpenAI provider. A non-empty Endpoint
// overrides the API base URL.
func NewOpenAIProvider(settings config.OracleSettings, prompt Prompt, usage UsageRecorder, logger *zerolog.Logger) Provider {
	return newOpenAICompatible(ProviderOpenAI, ModelGPT4oMini, "", settings, prompt, usage, logger)
}

// NewXAIProvider creates a Grok provider over xAI's OpenAI-compatible API.
func NewXAIProvider(settings config.OracleSettings, prompt Prompt, usage UsageRecorder, logger *zerolog.Logger) Provider {
	return newOpenAICompatible(ProviderXAI, ModelGrok4Latest, XAIBaseURL, settings, prompt, usage, logger)
}

func newOpenAICompatible(
	name ProviderName,
	defaultModel, defaultBaseURL string,
	settings config.OracleSettings,
	prompt Prompt,
	usage UsageRecorder,
	logger *zerolog.Logger,
) *openaiProvider {
	clientCfg := openai.DefaultConfig(settings.APIKey)

	switch {
	case settings.Endpoint != "":
		clientCfg.BaseURL = settings.Endpoint
	case defaultBaseURL != "":
		clientCfg.BaseURL = defaultBaseURL
	}

	model := settings.Model
	if model == "" {
		model = defaultModel
	}

	return &openaiProvider{
		name:        name,
		model:       model,
		settings:    settings,
		prompt:      prompt,
		client:      openai.NewClientWithConfig(clientCfg),
		usage:       usageOrNoop(usage),
		logger:      loggerOrNop(logger),
		rateLimiter: newRateLimiter(settings.RateLimit),
	}
}

func (p *openaiProvider) Name() ProviderName {
	return p.name
}

func (p *openaiProvider) Model() string {
	return p.model
}

func (p *openaiProvider) Call(ctx context.Context, url string) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   maxTokensOrDefault(p.settings.MaxTokens),
		Temperature: p.settings.Temperature,
		Messages:    p.buildMessages(url),
	}

	if p.settings.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)

	observeLatency(p.name, p.model, start)

	if err != nil {
		p.usage.RecordTokenUsage(p.name, p.model, 0, 0, false)

		return "", fmt.Errorf(errOpenAIChatCompletion, err)
	}

	p.usage.RecordTokenUsage(p.name, p.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, true)

	if len(resp.Choices) == 0 {
		return "", errEmptyResponse(p.name)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errEmptyResponse(p.name)
	}

	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		p.logger.Debug().
			Str(logKeyURL, url).
			Int(logKeyOutputTokens, resp.Usage.CompletionTokens).
			Msg(logMsgTruncated)
	}

	p.logger.Debug().Str(logKeyURL, url).Str(logKeyResponse, truncate(content, truncateLengthLong)).Msg("Oracle response")

	return content, nil
}

func (p *openaiProvider) buildMessages(url string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)

	if p.prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.prompt.System,
		})
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: p.prompt.Render(url),
	})
}

var _ Provider = (*openaiProvider)(nil)
