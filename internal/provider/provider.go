// Package provider builds runner.Model implementations backed by hosted APIs.
package provider

import (
	"fmt"

	"github.com/petasbytes/toolchat/internal/config"
	"github.com/petasbytes/toolchat/internal/runner"
)

// New selects the adapter named by cfg.Provider. The SDKs read their API keys from the env.
func New(cfg config.Config) (runner.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
