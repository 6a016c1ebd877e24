package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/url-risk-bench/internal/platform/config"
)

const openRouterDefaultTimeout = 60 * time.Second

// OpenRouter errors.
var (
	ErrOpenRouterEmptyResponse = errors.New("empty response from OpenRouter")
	ErrOpenRouterAPIFailure    = errors.New("openrouter API error")
)

// openRouterProvider implements Provider over OpenRouter's OpenAI-compatible HTTP API.
type openRouterProvider struct {
	model       string
	endpoint    string
	apiKey      string
	settings    config.OracleSettings
	prompt      Prompt
	httpClient  *http.Client
	usage       UsageRecorder
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

type openRouterChatRequest struct {
	Model       string                  `json:"model"`
	Messages    []openRouterChatMessage `json:"messages"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	Temperature float32                 `json:"temperature"`
	Stream      bool                    `json:"stream"`
}

type openRouterChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openRouterErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// NewOpenRouterProvider creates a new OpenRouter provider.
func NewOpenRouterProvider(settings config.OracleSettings, prompt Prompt, usage UsageRecorder, logger *zerolog.Logger) Provider {
	return newOpenRouterProvider(settings, prompt, usage, logger, &http.Client{Timeout: openRouterDefaultTimeout})
}

func newOpenRouterProvider(settings config.OracleSettings, prompt Prompt, usage UsageRecorder, logger *zerolog.Logger, httpClient *http.Client) *openRouterProvider {
	endpoint := settings.Endpoint
	if endpoint == "" {
		endpoint = OpenRouterAPIEndpoint
	}

	model := settings.Model
	if model == "" {
		model = ModelLlama4Maverick
	}

	return &openRouterProvider{
		model:       model,
		endpoint:    endpoint,
		apiKey:      settings.APIKey,
		settings:    settings,
		prompt:      prompt,
		httpClient:  httpClient,
		usage:       usageOrNoop(usage),
		logger:      loggerOrNop(logger),
		rateLimiter: newRateLimiter(settings.RateLimit),
	}
}

func (p *openRouterProvider) Name() ProviderName {
	return ProviderOpenRouter
}

func (p *openRouterProvider) Model() string {
	return p.model
}

func (p *openRouterProvider) Call(ctx context.Context, url string) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	start := time.Now()
	resp, err := p.callOpenRouterAPI(ctx, url)

	observeLatency(ProviderOpenRouter, p.model, start)

	if err != nil {
		p.usage.RecordTokenUsage(ProviderOpenRouter, p.model, 0, 0, false)

		return "", err
	}

	p.usage.RecordTokenUsage(ProviderOpenRouter, p.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, true)

	if len(resp.Choices) == 0 {
		return "", ErrOpenRouterEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrOpenRouterEmptyResponse
	}

	p.logger.Debug().Str(logKeyURL, url).Str(logKeyResponse, truncate(text, truncateLengthLong)).Msg("Oracle response")

	return text, nil
}

func (p *openRouterProvider) callOpenRouterAPI(ctx context.Context, url string) (*openRouterChatResponse, error) {
	messages := make([]openRouterChatMessage, 0, 2)
	if p.prompt.System != "" {
		messages = append(messages, openRouterChatMessage{Role: roleSystem, Content: p.prompt.System})
	}

	messages = append(messages, openRouterChatMessage{Role: roleUser, Content: p.prompt.Render(url)})

	reqBody := openRouterChatRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokensOrDefault(p.settings.MaxTokens),
		Temperature: p.settings.Temperature,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return nil, fmt.Errorf(errFmtMarshalRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf(errFmtCreateRequest, err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+p.apiKey)
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set("X-Title", "url-risk-bench")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf(errFmtReadResponse, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseOpenRouterError(body, resp.StatusCode)
	}

	var out openRouterChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf(errFmtDecodeResponse, err)
	}

	return &out, nil
}

// parseOpenRouterError extracts error details from the API response.
func parseOpenRouterError(body []byte, statusCode int) error {
	var errResp openRouterErrorResponse
	if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error.Message != "" {
		return fmt.Errorf(errFmtAPIWithMessage, ErrOpenRouterAPIFailure, statusCode, errResp.Error.Message)
	}

	return fmt.Errorf(errFmtAPIStatusOnly, ErrOpenRouterAPIFailure, statusCode)
}

var _ Provider = (*openRouterProvider)(nil)
