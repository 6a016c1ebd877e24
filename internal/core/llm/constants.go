package llm

// Error message templates
const (
	errRateLimiter          = "rate limiter: %w"
	errOpenAIChatCompletion = "openai chat completion error: %w"
	errAnthropicMessages    = "anthropic messages: %w"
	errGoogleGenAI          = "google genai completion: %w"
)

// Model prefixes used for cost lookup
const (
	modelPrefixGPT4   = "gpt-4"
	modelPrefixGPT5   = "gpt-5"
	modelPrefixNano   = "nano"
	modelPrefixMini   = "mini"
	modelPrefixGrok   = "grok"
	modelPrefixClaude = "claude"
	modelPrefixGemini = "gemini"
)

// Default models per provider.
const (
	ModelGPT4oMini       = "gpt-4o-mini"
	ModelGrok4Latest     = "grok-4-latest"
	ModelClaudeHaiku     = "claude-haiku-4-5"
	ModelGeminiFlashLite = "gemini-2.5-flash-lite"
	ModelCommandR        = "command-r-08-2024"
	ModelLlama4Maverick  = "meta-llama/llama-4-maverick"
)

// Endpoints.
const (
	XAIBaseURL            = "https://api.x.ai/v1"
	OpenRouterAPIEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	CohereAPIEndpoint     = "https://api.cohere.ai/v2/chat"
)

// HTTP header values
const (
	contentTypeJSON     = "application/json"
	contentTypeText     = "text"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	bearerPrefix        = "Bearer "
)

// Error format strings for API clients
const (
	errFmtMarshalRequest = "marshal request: %w"
	errFmtCreateRequest  = "create request: %w"
	errFmtReadResponse   = "read response: %w"
	errFmtDecodeResponse = "decode response: %w"
	errFmtAPIWithMessage = "%w (%d): %s"
	errFmtAPIStatusOnly  = "%w: status %d"
)

// Chat roles shared by the raw HTTP providers.
const (
	roleSystem = "system"
	roleUser   = "user"
)

// Numeric constants
const (
	rateLimiterBurst   = 5
	defaultMaxTokens   = 200
	defaultRateLimit   = 1.0
	usdToMillicents    = 100000.0 // 1 USD = 100,000 millicents
	truncateLengthLong = 1000
)

// Log field keys
const (
	logKeyProvider     = "provider"
	logKeyModel        = "model"
	logKeyURL          = "url"
	logKeyResponse     = "response"
	logKeyOutputTokens = "output_tokens"
)

// Request status for metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
