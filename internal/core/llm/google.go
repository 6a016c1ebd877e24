package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/lueurxax/url-risk-bench/internal/platform/config"
)

// googleProvider implements Provider for Google Gemini.
type googleProvider struct {
	model       string
	client      *genai.Client
	genModel    *genai.GenerativeModel
	prompt      Prompt
	usage       UsageRecorder
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewGoogleProvider creates a new Gemini provider. Close releases the client.
func NewGoogleProvider(ctx context.Context, settings config.OracleSettings, prompt Prompt, usage UsageRecorder, logger *zerolog.Logger) (*googleProvider, error) {
	opts := []option.ClientOption{option.WithAPIKey(settings.APIKey)}
	if settings.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(settings.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating google genai client: %w", err)
	}

	model := settings.Model
	if !strings.HasPrefix(model, modelPrefixGemini) {
		model = ModelGeminiFlashLite
	}

	genModel := client.GenerativeModel(model)
	genModel.SetTemperature(settings.Temperature)
	genModel.SetMaxOutputTokens(int32(maxTokensOrDefault(settings.MaxTokens))) //nolint:gosec // bounded by config

	if prompt.System != "" {
		genModel.SystemInstruction = genai.NewUserContent(genai.Text(prompt.System))
	}

	return &googleProvider{
		model:       model,
		client:      client,
		genModel:    genModel,
		prompt:      prompt,
		usage:       usageOrNoop(usage),
		logger:      loggerOrNop(logger),
		rateLimiter: newRateLimiter(settings.RateLimit),
	}, nil
}

// Close closes the Google client.
func (p *googleProvider) Close() error {
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			return fmt.Errorf("closing google genai client: %w", err)
		}
	}

	return nil
}

func (p *googleProvider) Name() ProviderName {
	return ProviderGoogle
}

func (p *googleProvider) Model() string {
	return p.model
}

func (p *googleProvider) Call(ctx context.Context, url string) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	start := time.Now()
	resp, err := p.genModel.GenerateContent(ctx, genai.Text(sanitizeUTF8(p.prompt.Render(url))))

	observeLatency(ProviderGoogle, p.model, start)

	if err != nil {
		p.usage.RecordTokenUsage(ProviderGoogle, p.model, 0, 0, false)

		return "", fmt.Errorf(errGoogleGenAI, err)
	}

	var promptTokens, completionTokens int
	if resp.UsageMetadata != nil {
		promptTokens = int(resp.UsageMetadata.PromptTokenCount)
		completionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	p.usage.RecordTokenUsage(ProviderGoogle, p.model, promptTokens, completionTokens, true)

	text := strings.TrimSpace(extractGoogleResponseText(resp))
	if text == "" {
		return "", errEmptyResponse(ProviderGoogle)
	}

	p.logger.Debug().Str(logKeyURL, url).Str(logKeyResponse, truncate(text, truncateLengthLong)).Msg("Oracle response")

	return text, nil
}

// extractGoogleResponseText extracts text content from a Gemini response.
func extractGoogleResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var result strings.Builder

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				result.WriteString(string(text))
			}
		}
	}

	return result.String()
}

// sanitizeUTF8 replaces invalid UTF-8 sequences. The protobuf API rejects
// invalid UTF-8 and dataset URLs may contain raw bytes.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	return strings.ToValidUTF8(s, string(utf8.RuneError))
}

var _ Provider = (*googleProvider)(nil)
