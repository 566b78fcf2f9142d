// Package config resolves runtime settings from the environment.
//
// An optional .env file is loaded first; variables already present in the
// process environment are never overridden by it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultPrompt is sent when the CLI runs without a prompt.
const DefaultPrompt = "What is 121 * 2? Once you have the answer, use that number to write a story about a group of mice."

// DefaultSystemPrompt frames the agent as a writing assistant that uses tools for arithmetic.
const DefaultSystemPrompt = "You are a creative writing assistant with a flair for old English prose. " +
	"When a request involves arithmetic, call the provided tools instead of computing in your head."

// Config holds all settings for one agent process.
type Config struct {
	Provider         string
	Model            string
	Temperature      float64
	MaxTokens        int64
	TokenBudget      int
	MaxSteps         int
	SystemPrompt     string
	ConversationPath string
	Verbose          bool
	LogLevel         string
}

var ErrMissingAPIKey = errors.New("missing API key")

// LoadDotEnv reads the given .env files (default ".env"). Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv builds a Config from AGT_* variables, applying defaults.
func FromEnv() (Config, error) {
	c := Config{
		Provider:         strings.ToLower(envString("AGT_PROVIDER", ProviderOpenAI)),
		Model:            os.Getenv("AGT_MODEL"),
		SystemPrompt:     envString("AGT_SYSTEM_PROMPT", DefaultSystemPrompt),
		ConversationPath: envString("AGT_CONVERSATION_PATH", ".agent/conversation.json"),
		Verbose:          os.Getenv("AGT_VERBOSE") == "1",
		LogLevel:         envString("AGT_LOG_LEVEL", "info"),
	}
	var err error
	if c.Temperature, err = envFloat("AGT_TEMPERATURE", 0); err != nil {
		return Config{}, err
	}
	if c.MaxTokens, err = envInt64("AGT_MAX_TOKENS", 1024); err != nil {
		return Config{}, err
	}
	budget, err := envInt64("AGT_TOKEN_BUDGET", 16000)
	if err != nil {
		return Config{}, err
	}
	c.TokenBudget = int(budget)
	steps, err := envInt64("AGT_MAX_STEPS", 8)
	if err != nil {
		return Config{}, err
	}
	c.MaxSteps = int(steps)
	return c, c.Validate()
}

// Validate checks provider and numeric ranges.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderOpenAI, ProviderAnthropic)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max steps must be positive, got %d", c.MaxSteps)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature)
	}
	return nil
}

// APIKeyEnv names the credential variable the provider SDK reads.
func (c Config) APIKeyEnv() string {
	if c.Provider == ProviderAnthropic {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// CheckAPIKey fails fast when the provider credential is absent.
func (c Config) CheckAPIKey() error {
	name := c.APIKeyEnv()
	if os.Getenv(name) == "" {
		return fmt.Errorf("%w: export %s before running", ErrMissingAPIKey, name)
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}
