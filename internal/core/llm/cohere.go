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

const (
	cohereDefaultTimeout        = 60 * time.Second
	cohereFinishReasonMaxTokens = "MAX_TOKENS"
	cohereModelPrefix           = "command"
)

// Cohere errors.
var (
	ErrCohereEmptyResponse = errors.New("empty response from Cohere")
	ErrCohereAPIFailure    = errors.New("cohere API error")
)

// cohereProvider implements Provider over the Cohere v2 chat API.
type cohereProvider struct {
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

type cohereChatRequest struct {
	Model       string              `json:"model"`
	Messages    []cohereChatMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float32             `json:"temperature"`
}

type cohereChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cohereChatResponse struct {
	ID      string `json:"id"`
	Message struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
	Usage        struct {
		Tokens struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"tokens"`
	} `json:"usage"`
}

type cohereErrorResponse struct {
	Message string `json:"message"`
}

// cohereResult holds the reply text with usage info.
type cohereResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	FinishReason     string
}

// NewCohereProvider creates a new Cohere provider.
func NewCohereProvider(settings config.OracleSettings, prompt Prompt, usage UsageRecorder, logger *zerolog.Logger) Provider {
	return newCohereProvider(settings, prompt, usage, logger, &http.Client{Timeout: cohereDefaultTimeout})
}

func newCohereProvider(settings config.OracleSettings, prompt Prompt, usage UsageRecorder, logger *zerolog.Logger, httpClient *http.Client) *cohereProvider {
	endpoint := settings.Endpoint
	if endpoint == "" {
		endpoint = CohereAPIEndpoint
	}

	model := settings.Model
	if !strings.HasPrefix(model, cohereModelPrefix) {
		model = ModelCommandR
	}

	return &cohereProvider{
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

func (p *cohereProvider) Name() ProviderName {
	return ProviderCohere
}

func (p *cohereProvider) Model() string {
	return p.model
}

func (p *cohereProvider) Call(ctx context.Context, url string) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	start := time.Now()
	result, err := p.callCohereAPI(ctx, url)

	observeLatency(ProviderCohere, p.model, start)

	if err != nil {
		p.usage.RecordTokenUsage(ProviderCohere, p.model, 0, 0, false)

		return "", err
	}

	p.usage.RecordTokenUsage(ProviderCohere, p.model, result.PromptTokens, result.CompletionTokens, true)

	if result.FinishReason == cohereFinishReasonMaxTokens {
		p.logger.Debug().Str(logKeyURL, url).Int(logKeyOutputTokens, result.CompletionTokens).Msg(logMsgTruncated)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", ErrCohereEmptyResponse
	}

	return text, nil
}

func (p *cohereProvider) callCohereAPI(ctx context.Context, url string) (cohereResult, error) {
	messages := make([]cohereChatMessage, 0, 2)
	if p.prompt.System != "" {
		messages = append(messages, cohereChatMessage{Role: roleSystem, Content: p.prompt.System})
	}

	messages = append(messages, cohereChatMessage{Role: roleUser, Content: p.prompt.Render(url)})

	reqBody := cohereChatRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokensOrDefault(p.settings.MaxTokens),
		Temperature: p.settings.Temperature,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return cohereResult{}, fmt.Errorf(errFmtMarshalRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &buf)
	if err != nil {
		return cohereResult{}, fmt.Errorf(errFmtCreateRequest, err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+p.apiKey)
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return cohereResult{}, fmt.Errorf("cohere request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cohereResult{}, fmt.Errorf(errFmtReadResponse, err)
	}

	if resp.StatusCode != http.StatusOK {
		return cohereResult{}, parseCohereError(body, resp.StatusCode)
	}

	return extractCohereResult(body)
}

func parseCohereError(body []byte, statusCode int) error {
	var errResp cohereErrorResponse
	if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Message != "" {
		return fmt.Errorf(errFmtAPIWithMessage, ErrCohereAPIFailure, statusCode, errResp.Message)
	}

	return fmt.Errorf(errFmtAPIStatusOnly, ErrCohereAPIFailure, statusCode)
}

func extractCohereResult(body []byte) (cohereResult, error) {
	var resp cohereChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return cohereResult{}, fmt.Errorf(errFmtDecodeResponse, err)
	}

	var text strings.Builder

	for _, content := range resp.Message.Content {
		if content.Type == contentTypeText {
			text.WriteString(content.Text)
		}
	}

	return cohereResult{
		Text:             text.String(),
		PromptTokens:     resp.Usage.Tokens.InputTokens,
		CompletionTokens: resp.Usage.Tokens.OutputTokens,
		FinishReason:     resp.FinishReason,
	}, nil
}

var _ Provider = (*cohereProvider)(nil)
