package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
)

// Oracle provider names.
const (
	ProviderOpenAI     = "openai"
	ProviderXAI        = "xai"
	ProviderAnthropic  = "anthropic"
	ProviderGoogle     = "google"
	ProviderCohere     = "cohere"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Checkpoint backend names.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Prompt styles.
const (
	PromptStyleReasoning = "reasoning"
	PromptStyleNumeric   = "numeric"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Oracle
	OracleProvider    string        `env:"ORACLE_PROVIDER" envDefault:"openai"`
	OracleModel       string        `env:"ORACLE_MODEL"`
	OracleEndpoint    string        `env:"ORACLE_ENDPOINT"`
	OraclePromptStyle string        `env:"ORACLE_PROMPT_STYLE" envDefault:"reasoning"`
	OraclePromptFile  string        `env:"ORACLE_PROMPT_FILE"`
	OracleMaxTokens   int           `env:"ORACLE_MAX_TOKENS" envDefault:"200"`
	OracleTemperature float32       `env:"ORACLE_TEMPERATURE" envDefault:"0"`
	OracleJSONMode    bool          `env:"ORACLE_JSON_MODE" envDefault:"false"`
	OracleTimeout     time.Duration `env:"ORACLE_TIMEOUT" envDefault:"60s"`
	OracleTokenBudget int64         `env:"ORACLE_TOKEN_BUDGET" envDefault:"0"`
	RateLimitRPS      float64       `env:"RATE_LIMIT_RPS" envDefault:"2"`

	// API keys
	LLMAPIKey        string `env:"LLM_API_KEY"`
	XAIAPIKey        string `env:"XAI_API_KEY"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	GoogleAPIKey     string `env:"GOOGLE_API_KEY"`
	CohereAPIKey     string `env:"COHERE_API_KEY"`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`

	// Retry
	RetryCount   int           `env:"RETRY_COUNT" envDefault:"3"`
	RetryBackoff time.Duration `env:"RETRY_BACKOFF" envDefault:"600ms"`

	// Checkpoint
	CheckpointBackend    string `env:"CHECKPOINT_BACKEND" envDefault:"file"`
	CheckpointPath       string `env:"CHECKPOINT_PATH" envDefault:"scores.json"`
	CheckpointRun        string `env:"CHECKPOINT_RUN" envDefault:"default"`
	CheckpointFlushEvery int    `env:"CHECKPOINT_FLUSH_EVERY" envDefault:"10"`
	CheckpointResume     bool   `env:"CHECKPOINT_RESUME" envDefault:"false"`
	PostgresDSN          string `env:"POSTGRES_DSN"`

	// Scoring run
	ScoringWorkers int    `env:"SCORING_WORKERS" envDefault:"1"`
	DatasetPath    string `env:"DATASET_PATH" envDefault:"urls.csv"`
	DatasetLimit   int    `env:"DATASET_LIMIT" envDefault:"0"`

	// Evaluation
	DecisionThreshold float64 `env:"DECISION_THRESHOLD" envDefault:"0.2"`

	// Observability and notifications
	MetricsPort      int    `env:"METRICS_PORT" envDefault:"0"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`
}

// Load reads the environment (and an optional .env file) for a scoring run.
func Load() (*Config, error) {
	return load(true)
}

// LoadWithoutOracle is Load for tools that never call the oracle, such as
// the evaluator. Provider credentials are not required.
func LoadWithoutOracle() (*Config, error) {
	return load(false)
}

func load(oracle bool) (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	normalize(cfg)

	validate := cfg.Validate
	if !oracle {
		validate = cfg.validateStorage
	}

	if err := validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func normalize(cfg *Config) {
	cfg.OracleProvider = strings.ToLower(strings.TrimSpace(cfg.OracleProvider))
	cfg.OraclePromptStyle = strings.ToLower(strings.TrimSpace(cfg.OraclePromptStyle))
	cfg.CheckpointBackend = strings.ToLower(strings.TrimSpace(cfg.CheckpointBackend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
}

// Validate checks ranges and provider/backend requirements.
func (c *Config) Validate() error {
	if _, err := c.APIKey(); err != nil {
		return err
	}

	switch c.OraclePromptStyle {
	case PromptStyleReasoning, PromptStyleNumeric:
	default:
		return fmt.Errorf("%w: ORACLE_PROMPT_STYLE %q", apperrors.ErrInvalidConfig, c.OraclePromptStyle)
	}

	return c.validateStorage()
}

func (c *Config) validateStorage() error {
	switch c.CheckpointBackend {
	case BackendFile, BackendSQLite:
		if c.CheckpointPath == "" {
			return fmt.Errorf("%w: CHECKPOINT_PATH is empty", apperrors.ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: POSTGRES_DSN is required for the postgres backend", apperrors.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownBackend, c.CheckpointBackend)
	}

	return c.validateRanges()
}

func (c *Config) validateRanges() error {
	switch {
	case c.RetryCount < 1:
		return fmt.Errorf("%w: RETRY_COUNT must be >= 1", apperrors.ErrInvalidConfig)
	case c.RetryBackoff < 0:
		return fmt.Errorf("%w: RETRY_BACKOFF must be >= 0", apperrors.ErrInvalidConfig)
	case c.CheckpointFlushEvery < 1:
		return fmt.Errorf("%w: CHECKPOINT_FLUSH_EVERY must be >= 1", apperrors.ErrInvalidConfig)
	case c.ScoringWorkers < 1:
		return fmt.Errorf("%w: SCORING_WORKERS must be >= 1", apperrors.ErrInvalidConfig)
	case c.DatasetLimit < 0:
		return fmt.Errorf("%w: DATASET_LIMIT must be >= 0", apperrors.ErrInvalidConfig)
	case c.DecisionThreshold < 0 || c.DecisionThreshold > 1:
		return fmt.Errorf("%w: DECISION_THRESHOLD must be within [0,1]", apperrors.ErrInvalidConfig)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: RATE_LIMIT_RPS must be >= 0", apperrors.ErrInvalidConfig)
	case c.OracleTokenBudget < 0:
		return fmt.Errorf("%w: ORACLE_TOKEN_BUDGET must be >= 0", apperrors.ErrInvalidConfig)
	}

	return nil
}

// APIKey returns the key of the selected provider.
func (c *Config) APIKey() (string, error) {
	var key string

	switch c.OracleProvider {
	case ProviderOpenAI:
		key = c.LLMAPIKey
	case ProviderXAI:
		key = c.XAIAPIKey
	case ProviderAnthropic:
		key = c.AnthropicAPIKey
	case ProviderGoogle:
		key = c.GoogleAPIKey
	case ProviderCohere:
		key = c.CohereAPIKey
	case ProviderOpenRouter:
		key = c.OpenRouterAPIKey
	case ProviderMock:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownProvider, c.OracleProvider)
	}

	if key == "" {
		return "", fmt.Errorf("%w for provider %s", apperrors.ErrMissingAPIKey, c.OracleProvider)
	}

	return key, nil
}
