// Package config loads contractpilot settings from defaults, an optional
// YAML file, a .env file and CONTRACTPILOT_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppName is used for the config file name and the XDG directory.
const AppName = "contractpilot"

// EnvPrefix prefixes every environment override, e.g.
// CONTRACTPILOT_LLM_PROVIDER.
const EnvPrefix = "CONTRACTPILOT"

// Config is the complete application configuration.
type Config struct {
	Server        ServerConfig        `json:"server" mapstructure:"server"`
	LLM           LLMConfig           `json:"llm" mapstructure:"llm"`
	Anonymization AnonymizationConfig `json:"anonymization" mapstructure:"anonymization"`
	Analysis      AnalysisConfig      `json:"analysis" mapstructure:"analysis"`
	Log           LogConfig           `json:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `json:"addr" mapstructure:"addr"`
	AllowedOrigins []string      `json:"allowed_origins" mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	MaxUploadBytes int64         `json:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// LLMConfig selects the analysis model. APIKey is optional; each provider
// falls back to its own environment variable (ANTHROPIC_API_KEY, ...).
type LLMConfig struct {
	Provider     string `json:"provider" mapstructure:"provider"`
	Model        string `json:"model" mapstructure:"model"`
	BaseURL      string `json:"base_url" mapstructure:"base_url"`
	APIKey       string `json:"-" mapstructure:"api_key"`
	MaxTokens    int    `json:"max_tokens" mapstructure:"max_tokens"`
	Profile      string `json:"profile" mapstructure:"profile"`
	StrictOutput bool   `json:"strict_output" mapstructure:"strict_output"`
	Debug        bool   `json:"debug" mapstructure:"debug"`
}

// AnonymizationConfig controls masking of prompts sent to the model.
type AnonymizationConfig struct {
	Enabled         bool          `json:"enabled" mapstructure:"enabled"`
	PreserveAmounts bool          `json:"preserve_amounts" mapstructure:"preserve_amounts"`
	MatchTimeout    time.Duration `json:"match_timeout" mapstructure:"match_timeout"`
}

// AnalysisConfig tunes the pipeline.
type AnalysisConfig struct {
	Concurrency          int  `json:"concurrency" mapstructure:"concurrency"`
	MaxClauses           int  `json:"max_clauses" mapstructure:"max_clauses"`
	SimilarCaseThreshold int  `json:"similar_case_threshold" mapstructure:"similar_case_threshold"`
	AlternativeThreshold int  `json:"alternative_threshold" mapstructure:"alternative_threshold"`
	SimilarCaseLimit     int  `json:"similar_case_limit" mapstructure:"similar_case_limit"`
	WithPrecedents       bool `json:"with_precedents" mapstructure:"with_precedents"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
	Redact bool   `json:"redact" mapstructure:"redact"`
}

// ConfigDir returns the XDG config directory searched for contractpilot.yaml.
// On Linux: ~/.config/contractpilot
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.max_upload_bytes", 10<<20)

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.profile", "general")
	v.SetDefault("llm.strict_output", false)
	v.SetDefault("llm.debug", false)

	v.SetDefault("anonymization.enabled", true)
	v.SetDefault("anonymization.preserve_amounts", true)
	v.SetDefault("anonymization.match_timeout", "2s")

	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("analysis.max_clauses", 200)
	v.SetDefault("analysis.similar_case_threshold", 6)
	v.SetDefault("analysis.alternative_threshold", 7)
	v.SetDefault("analysis.similar_case_limit", 2)
	v.SetDefault("analysis.with_precedents", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.redact", true)
}

// Load reads the configuration. When path is empty, contractpilot.yaml is
// searched in the working directory and then in ConfigDir; a missing file is
// not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	// .env is optional and never overrides variables already set.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(".")
		v.AddConfigPath(ConfigDir())
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	return &cfg, nil
}
