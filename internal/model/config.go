package model

import "time"

// Config is the process-wide configuration, loaded once at startup and
// treated as read-only thereafter.
type Config struct {
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Analysis    AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Engine      EngineConfig      `yaml:"engine" mapstructure:"engine"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Verdict     VerdictConfig     `yaml:"verdict" mapstructure:"verdict"`
	Credibility CredibilityConfig `yaml:"credibility" mapstructure:"credibility"`
}

// SearchConfig configures the search provider adapter.
type SearchConfig struct {
	Provider   string        `yaml:"provider" mapstructure:"provider"` // "tavily"
	APIKey     string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	MaxResults int           `yaml:"max_results" mapstructure:"max_results"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// AnalysisConfig configures the stance analysis provider adapter.
type AnalysisConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // "openai"
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// RateLimitConfig bounds outbound call frequency per provider.
type RateLimitConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"` // Minimum gap between calls to one provider
	MaxWait  time.Duration `yaml:"max_wait" mapstructure:"max_wait"` // Bounded wait before RateLimitExceeded
}

// CacheConfig controls memoization of enriched search results.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// EngineConfig tunes the workflow engine.
type EngineConfig struct {
	HITL              bool          `yaml:"hitl" mapstructure:"hitl"` // Pause for human review before finalizing
	MaxSources        int           `yaml:"max_sources" mapstructure:"max_sources"`
	MaxSearchAttempts int           `yaml:"max_search_attempts" mapstructure:"max_search_attempts"`
	BackoffInitial    time.Duration `yaml:"backoff_initial" mapstructure:"backoff_initial"`
	Workers           int           `yaml:"workers" mapstructure:"workers"` // Batch verification concurrency
	CheckpointEvery   bool          `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
}

// StoreConfig locates the durable checkpoint/feedback database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// VerdictConfig holds the weight thresholds of the rule cascade.
type VerdictConfig struct {
	InstitutionalThreshold float64 `yaml:"institutional_threshold" mapstructure:"institutional_threshold"`
	OfficialThreshold      float64 `yaml:"official_threshold" mapstructure:"official_threshold"`
}

// DomainRule maps a domain pattern to a tier and weight. A pattern matches
// exactly or as a dot-boundary suffix ("gouv.fr" matches "insee.gouv.fr").
type DomainRule struct {
	Pattern string  `yaml:"pattern" mapstructure:"pattern"`
	Tier    Tier    `yaml:"tier" mapstructure:"tier"`
	Weight  float64 `yaml:"weight" mapstructure:"weight"`
}

// CredibilityConfig extends or overrides the built-in domain table.
type CredibilityConfig struct {
	Overrides []DomainRule `yaml:"overrides,omitempty" mapstructure:"overrides"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Provider:   "tavily",
			MaxResults: 8,
			Timeout:    30 * time.Second,
		},
		Analysis: AnalysisConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   30 * time.Second,
			MaxTokens: 1000,
		},
		RateLimit: RateLimitConfig{
			Interval: time.Second,
			MaxWait:  30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:       true,
			TTL:           time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Engine: EngineConfig{
			HITL:              false,
			MaxSources:        8,
			MaxSearchAttempts: 3,
			BackoffInitial:    time.Second,
			Workers:           3,
			CheckpointEvery:   false,
		},
		Store: StoreConfig{
			Path: "verifai.db",
		},
		Verdict: VerdictConfig{
			InstitutionalThreshold: 0.8,
			OfficialThreshold:      0.5,
		},
	}
}
