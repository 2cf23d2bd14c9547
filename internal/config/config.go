// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. It is loaded once at
// startup via viper (file + environment + flags) and treated as read-only by
// every component afterwards.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Behavior BehaviorConfig `mapstructure:"behavior" yaml:"behavior"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Accounts []AccountConfig `mapstructure:"accounts" yaml:"accounts"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// WindowLimit bounds the number of actions of one type inside a trailing
// rolling window.
type WindowLimit struct {
	Max    int           `mapstructure:"max" yaml:"max"`
	Window time.Duration `mapstructure:"window" yaml:"window"`
}

// BehaviorConfig configures the behavior policy: the per-candidate action
// probabilities and the pacing limits that keep the simulated account under
// platform-implicit rate limits.
type BehaviorConfig struct {
	ProbLike   float64 `mapstructure:"prob_like" yaml:"prob_like"`
	ProbRepost float64 `mapstructure:"prob_repost" yaml:"prob_repost"`
	ProbReply  float64 `mapstructure:"prob_reply" yaml:"prob_reply"`
	ProbQuote  float64 `mapstructure:"prob_quote" yaml:"prob_quote"`
	ProbPost   float64 `mapstructure:"prob_post" yaml:"prob_post"`

	// MinActionGap is the minimum delay between any two actions.
	MinActionGap time.Duration `mapstructure:"min_action_gap" yaml:"min_action_gap"`

	Limits struct {
		Like   WindowLimit `mapstructure:"like" yaml:"like"`
		Repost WindowLimit `mapstructure:"repost" yaml:"repost"`
		Reply  WindowLimit `mapstructure:"reply" yaml:"reply"`
		Quote  WindowLimit `mapstructure:"quote" yaml:"quote"`
		Post   WindowLimit `mapstructure:"post" yaml:"post"`
	} `mapstructure:"limits" yaml:"limits"`

	// MaxContentReuse caps how many successful actions may reference the
	// same normalized content fingerprint within one session.
	MaxContentReuse int `mapstructure:"max_content_reuse" yaml:"max_content_reuse"`

	// MaxActions stops the account loop after this many successful actions.
	MaxActions int `mapstructure:"max_actions" yaml:"max_actions"`

	// MinCandidateLength skips candidates whose body text is shorter.
	MinCandidateLength int `mapstructure:"min_candidate_length" yaml:"min_candidate_length"`

	// TickBatchSize is how many candidates the loop pulls from the feed per tick.
	TickBatchSize int `mapstructure:"tick_batch_size" yaml:"tick_batch_size"`

	// CooldownMin/CooldownMax bound the randomized idle pause after a
	// successful action.
	CooldownMin time.Duration `mapstructure:"cooldown_min" yaml:"cooldown_min"`
	CooldownMax time.Duration `mapstructure:"cooldown_max" yaml:"cooldown_max"`
}

// BrowserConfig holds settings for the headless browser sessions.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	Args              []string      `mapstructure:"args" yaml:"args"`

	// Fingerprint randomization inputs. A session picks one resolution and
	// jitters it, and picks one language, so two sessions rarely look alike.
	Resolutions []Resolution `mapstructure:"resolutions" yaml:"resolutions"`
	Languages   []string     `mapstructure:"languages" yaml:"languages"`
	UserAgent   string       `mapstructure:"user_agent" yaml:"user_agent"`
}

// Resolution is a base viewport size before per-session jitter.
type Resolution struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// LLMProvider identifies a supported content-generation backend.
type LLMProvider string

const (
	ProviderMistral LLMProvider = "mistral"
	ProviderGemini  LLMProvider = "gemini"
)

// LLMConfig configures the content generator.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	PromptFile  string        `mapstructure:"prompt_file" yaml:"prompt_file"`

	// RequestsPerMinute throttles outbound API calls across the process.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	// Dir is where session snapshots live; "~" is expanded.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// AccountConfig identifies one simulated account and its credential source.
type AccountConfig struct {
	ID        string `mapstructure:"id" yaml:"id"`
	TokenFile string `mapstructure:"token_file" yaml:"token_file"`
	// TokenLine selects which line of the token file belongs to this account.
	TokenLine int `mapstructure:"token_line" yaml:"token_line"`
}

// SetDefaults initializes default values for all configuration parameters.
// The probability defaults mirror a casual account: mostly likes, occasional
// reposts, a few replies, rare quotes.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "x-automate")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Behavior --
	v.SetDefault("behavior.prob_like", 0.40)
	v.SetDefault("behavior.prob_repost", 0.10)
	v.SetDefault("behavior.prob_reply", 0.15)
	v.SetDefault("behavior.prob_quote", 0.05)
	v.SetDefault("behavior.prob_post", 0.0)
	v.SetDefault("behavior.min_action_gap", "12s")
	v.SetDefault("behavior.limits.like.max", 30)
	v.SetDefault("behavior.limits.like.window", "1h")
	v.SetDefault("behavior.limits.repost.max", 10)
	v.SetDefault("behavior.limits.repost.window", "1h")
	v.SetDefault("behavior.limits.reply.max", 12)
	v.SetDefault("behavior.limits.reply.window", "1h")
	v.SetDefault("behavior.limits.quote.max", 6)
	v.SetDefault("behavior.limits.quote.window", "1h")
	v.SetDefault("behavior.limits.post.max", 4)
	v.SetDefault("behavior.limits.post.window", "1h")
	v.SetDefault("behavior.max_content_reuse", 1)
	v.SetDefault("behavior.max_actions", 20)
	v.SetDefault("behavior.min_candidate_length", 20)
	v.SetDefault("behavior.tick_batch_size", 8)
	v.SetDefault("behavior.cooldown_min", "15s")
	v.SetDefault("behavior.cooldown_max", "30s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.base_url", "https://x.com")
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.action_timeout", "30s")
	v.SetDefault("browser.resolutions", []map[string]int{
		{"width": 1920, "height": 1080},
		{"width": 1536, "height": 864},
		{"width": 1440, "height": 900},
	})
	v.SetDefault("browser.languages", []string{"en-US", "en-GB", "fr-FR", "de-DE"})

	// -- LLM --
	v.SetDefault("llm.provider", "mistral")
	v.SetDefault("llm.model", "mistral-small-latest")
	v.SetDefault("llm.api_timeout", "45s")
	v.SetDefault("llm.temperature", 0.8)
	v.SetDefault("llm.max_tokens", 280)
	v.SetDefault("llm.prompt_file", "prompts/default_prompt.txt")
	v.SetDefault("llm.requests_per_minute", 20)

	// -- Store --
	v.SetDefault("store.dir", "~/.x-automate/sessions")
}

// NewConfigFromViper creates a configuration instance from a viper object and
// validates it. An invalid configuration is fatal at startup, before any
// account loop begins.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Sensitive values come from the environment, never the config file.
	v.BindEnv("llm.api_key", "XAUTOMATE_LLM_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig returns a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Behavior.Validate(); err != nil {
		return fmt.Errorf("behavior configuration invalid: %w", err)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be a positive duration")
	}
	if c.LLM.APITimeout <= 0 {
		return fmt.Errorf("llm.api_timeout must be a positive duration")
	}
	if c.LLM.RequestsPerMinute <= 0 {
		return fmt.Errorf("llm.requests_per_minute must be positive")
	}
	for i, acct := range c.Accounts {
		if acct.ID == "" {
			return fmt.Errorf("accounts[%d].id must not be empty", i)
		}
	}
	return nil
}

// Validate checks the behavior settings. Probabilities must sit inside [0,1]
// and every limit must be positive.
func (b *BehaviorConfig) Validate() error {
	probs := map[string]float64{
		"prob_like":   b.ProbLike,
		"prob_repost": b.ProbRepost,
		"prob_reply":  b.ProbReply,
		"prob_quote":  b.ProbQuote,
		"prob_post":   b.ProbPost,
	}
	for name, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("behavior.%s must be within [0,1], got %v", name, p)
		}
	}
	if b.MinActionGap <= 0 {
		return fmt.Errorf("behavior.min_action_gap must be a positive duration")
	}
	limits := map[string]WindowLimit{
		"like":   b.Limits.Like,
		"repost": b.Limits.Repost,
		"reply":  b.Limits.Reply,
		"quote":  b.Limits.Quote,
		"post":   b.Limits.Post,
	}
	for name, l := range limits {
		if l.Max <= 0 {
			return fmt.Errorf("behavior.limits.%s.max must be positive", name)
		}
		if l.Window <= 0 {
			return fmt.Errorf("behavior.limits.%s.window must be a positive duration", name)
		}
	}
	if b.MaxContentReuse <= 0 {
		return fmt.Errorf("behavior.max_content_reuse must be positive")
	}
	if b.MaxActions <= 0 {
		return fmt.Errorf("behavior.max_actions must be positive")
	}
	if b.TickBatchSize <= 0 {
		return fmt.Errorf("behavior.tick_batch_size must be positive")
	}
	if b.CooldownMin < 0 || b.CooldownMax < b.CooldownMin {
		return fmt.Errorf("behavior.cooldown_min/cooldown_max must satisfy 0 <= min <= max")
	}
	return nil
}
