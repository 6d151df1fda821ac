package config

import (
	"errors"
	"fmt"

	"github.com/dshills/contractpilot/internal/llm"
	"github.com/dshills/contractpilot/internal/profile"
)

// Validation errors returned by Config.Validate. Callers match them with
// errors.Is; the wrapped message carries the offending value.
var (
	ErrEmptyAddr          = errors.New("config: server address cannot be empty")
	ErrInvalidUploadLimit = errors.New("config: max upload bytes must be positive")
	ErrInvalidProvider    = errors.New("config: unknown llm provider")
	ErrInvalidMaxTokens   = errors.New("config: max tokens must be positive")
	ErrUnknownProfile     = errors.New("config: unknown review profile")
	ErrInvalidConcurrency = errors.New("config: concurrency must be positive")
	ErrInvalidMaxClauses  = errors.New("config: max clauses must be non-negative")
	ErrInvalidThreshold   = errors.New("config: score thresholds must be between 1 and 10")
	ErrInvalidLogLevel    = errors.New("config: unknown log level")
	ErrInvalidLogFormat   = errors.New("config: unknown log format")
)

var providers = map[string]bool{
	llm.ProviderAnthropic: true,
	llm.ProviderOpenAI:    true,
	llm.ProviderGoogle:    true,
	llm.ProviderUpstage:   true,
	llm.ProviderLocal:     true,
}

// Validate returns the first configuration error found.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrEmptyAddr
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidUploadLimit, c.Server.MaxUploadBytes)
	}

	if !providers[c.LLM.Provider] {
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.LLM.MaxTokens)
	}
	if _, err := profile.Load(c.LLM.Profile); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownProfile, err)
	}

	if c.Analysis.Concurrency <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.Analysis.Concurrency)
	}
	if c.Analysis.MaxClauses < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxClauses, c.Analysis.MaxClauses)
	}
	for _, th := range []int{c.Analysis.SimilarCaseThreshold, c.Analysis.AlternativeThreshold} {
		if th < 1 || th > 10 {
			return fmt.Errorf("%w: %d", ErrInvalidThreshold, th)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	return nil
}
