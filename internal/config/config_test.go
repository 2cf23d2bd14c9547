// File: internal/config/config_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 0.40, cfg.Behavior.ProbLike)
	assert.Equal(t, 0.05, cfg.Behavior.ProbQuote)
	assert.Equal(t, 12*time.Second, cfg.Behavior.MinActionGap)
	assert.Equal(t, 30, cfg.Behavior.Limits.Like.Max)
	assert.Equal(t, time.Hour, cfg.Behavior.Limits.Like.Window)
	assert.Equal(t, 20, cfg.Behavior.MaxActions)
	assert.Equal(t, 20, cfg.Behavior.MinCandidateLength)
	assert.Equal(t, 15*time.Second, cfg.Behavior.CooldownMin)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "https://x.com", cfg.Browser.BaseURL)
	assert.NotEmpty(t, cfg.Browser.Resolutions)
	assert.Equal(t, ProviderMistral, cfg.LLM.Provider)
	assert.Equal(t, "~/.x-automate/sessions", cfg.Store.Dir)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	valid := func() *Config { return NewDefaultConfig() }

	t.Run("default config is valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("probability out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Behavior.ProbLike = 1.2
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "prob_like must be within [0,1]")
	})

	t.Run("non-positive window limit", func(t *testing.T) {
		cfg := valid()
		cfg.Behavior.Limits.Reply.Max = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "limits.reply.max must be positive")
	})

	t.Run("non-positive min action gap", func(t *testing.T) {
		cfg := valid()
		cfg.Behavior.MinActionGap = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "min_action_gap")
	})

	t.Run("account without id", func(t *testing.T) {
		cfg := valid()
		cfg.Accounts = []AccountConfig{{TokenFile: "tokens.txt"}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "accounts[0].id")
	})

	t.Run("non-positive llm timeout", func(t *testing.T) {
		cfg := valid()
		cfg.LLM.APITimeout = 0
		require.Error(t, cfg.Validate())
	})
}

// -- Viper Loading Tests --

func TestNewConfigFromViper_ReadsYAML(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")

	yaml := []byte(`
behavior:
  prob_like: 0.25
  min_action_gap: 20s
  limits:
    like:
      max: 5
      window: 30m
accounts:
  - id: "acct-1"
    token_file: "~/.x-automate/tokens.txt"
    token_line: 2
`)
	require.NoError(t, v.ReadConfig(bytes.NewReader(yaml)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.Behavior.ProbLike)
	assert.Equal(t, 20*time.Second, cfg.Behavior.MinActionGap)
	assert.Equal(t, 5, cfg.Behavior.Limits.Like.Max)
	assert.Equal(t, 30*time.Minute, cfg.Behavior.Limits.Like.Window)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.10, cfg.Behavior.ProbRepost)

	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, "acct-1", cfg.Accounts[0].ID)
	assert.Equal(t, 2, cfg.Accounts[0].TokenLine)
}

func TestNewConfigFromViper_APIKeyComesFromEnv(t *testing.T) {
	t.Setenv("XAUTOMATE_LLM_API_KEY", "secret-from-env")

	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env", cfg.LLM.APIKey)
}

func TestNewConfigFromViper_RejectsInvalidValues(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("behavior.prob_reply", 3.0)

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

// -- Token Loading Tests --

func TestLoadAuthToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.txt")
	require.NoError(t, os.WriteFile(path, []byte("  token-zero  \n\ntoken-one\n"), 0o600))

	t.Run("selects the configured line", func(t *testing.T) {
		tok, err := LoadAuthToken(AccountConfig{ID: "a", TokenFile: path, TokenLine: 0})
		require.NoError(t, err)
		assert.Equal(t, "token-zero", tok, "tokens are trimmed")

		tok, err = LoadAuthToken(AccountConfig{ID: "a", TokenFile: path, TokenLine: 1})
		require.NoError(t, err)
		assert.Equal(t, "token-one", tok, "blank lines are not counted")
	})

	t.Run("line out of range", func(t *testing.T) {
		_, err := LoadAuthToken(AccountConfig{ID: "a", TokenFile: path, TokenLine: 2})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wants line 2")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAuthToken(AccountConfig{ID: "a", TokenFile: filepath.Join(dir, "nope.txt")})
		require.Error(t, err)
	})
}
