package config

import "time"

// OracleSettings holds what a provider needs to build its client.
type OracleSettings struct {
	Provider    string
	Model       string
	Endpoint    string
	APIKey      string
	PromptStyle string
	PromptFile  string
	MaxTokens   int
	Temperature float32
	JSONMode    bool
	RateLimit   float64
}

// RetrySettings controls the retrying scorer.
type RetrySettings struct {
	Attempts       int
	Backoff        time.Duration
	AttemptTimeout time.Duration
}

// CheckpointSettings selects and configures the checkpoint store.
type CheckpointSettings struct {
	Backend     string
	Path        string
	Run         string
	PostgresDSN string
	FlushEvery  int
	Resume      bool
}

// Oracle returns the oracle settings group.
func (c *Config) Oracle() OracleSettings {
	//nolint:errcheck // validated in Load; mock provider has no key
	key, _ := c.APIKey()

	return OracleSettings{
		Provider:    c.OracleProvider,
		Model:       c.OracleModel,
		Endpoint:    c.OracleEndpoint,
		APIKey:      key,
		PromptStyle: c.OraclePromptStyle,
		PromptFile:  c.OraclePromptFile,
		MaxTokens:   c.OracleMaxTokens,
		Temperature: c.OracleTemperature,
		JSONMode:    c.OracleJSONMode,
		RateLimit:   c.RateLimitRPS,
	}
}

// Retry returns the retry settings group.
func (c *Config) Retry() RetrySettings {
	return RetrySettings{
		Attempts:       c.RetryCount,
		Backoff:        c.RetryBackoff,
		AttemptTimeout: c.OracleTimeout,
	}
}

// Checkpoint returns the checkpoint settings group.
func (c *Config) Checkpoint() CheckpointSettings {
	return CheckpointSettings{
		Backend:     c.CheckpointBackend,
		Path:        c.CheckpointPath,
		Run:         c.CheckpointRun,
		PostgresDSN: c.PostgresDSN,
		FlushEvery:  c.CheckpointFlushEvery,
		Resume:      c.CheckpointResume,
	}
}
