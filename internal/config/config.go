// Copyright 2024 Candidate Screener Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads application configuration from an optional YAML file,
// SCREENER_* environment variables and provider credential variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/your-org/candidate-screener/internal/llm"
	"github.com/your-org/candidate-screener/internal/resilience"
	"github.com/your-org/candidate-screener/internal/screening"
	"github.com/your-org/candidate-screener/internal/session"
	"go.uber.org/zap"
)

// EnvPrefix is the prefix of environment variables bound to config keys
const EnvPrefix = "SCREENER"

var (
	// ErrMissingRequiredField is returned when a required configuration field is missing
	ErrMissingRequiredField = errors.New("missing required configuration field")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
	// ErrNoConfigFile is returned by WatchConfig when there is no file to watch
	ErrNoConfigFile = errors.New("no config file found")
)

// Config represents the complete application configuration
type Config struct {
	Environment    string               `mapstructure:"-" yaml:"environment"`
	Server         ServerConfig         `mapstructure:"server" yaml:"server"`
	LLM            LLMConfig            `mapstructure:"llm" yaml:"llm"`
	Session        SessionConfig        `mapstructure:"session" yaml:"session"`
	Screening      ScreeningConfig      `mapstructure:"screening" yaml:"screening"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`
	Logging        LoggingConfig        `mapstructure:"logging" yaml:"logging"`
	Metrics        MetricsConfig        `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	Mode            string        `mapstructure:"mode" yaml:"mode"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LLMConfig selects the question generation backend
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	APIKey      string        `mapstructure:"apikey" yaml:"apikey"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	Model       string        `mapstructure:"model" yaml:"model"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// SessionConfig contains session store settings
type SessionConfig struct {
	DefaultTTL      time.Duration `mapstructure:"default_ttl" yaml:"default_ttl"`
	MaxSessions     int           `mapstructure:"max_sessions" yaml:"max_sessions"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

// ScreeningConfig tunes conversation behaviour
type ScreeningConfig struct {
	ExitMatch     string `mapstructure:"exit_match" yaml:"exit_match"`
	KnownTechOnly bool   `mapstructure:"known_tech_only" yaml:"known_tech_only"`
}

// CircuitBreakerConfig guards the question generation backend
type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxFailures  int           `mapstructure:"max_failures" yaml:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout" yaml:"reset_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// providerKeyEnv maps each provider to its conventional credential variable
var providerKeyEnv = map[llm.Provider]string{
	llm.ProviderPerplexity: "PERPLEXITY_API_KEY",
	llm.ProviderOpenAI:     "OPENAI_API_KEY",
	llm.ProviderAnthropic:  "ANTHROPIC_API_KEY",
	llm.ProviderGemini:     "GEMINI_API_KEY",
}

// ProviderKeyEnv returns the credential variable read for provider
func ProviderKeyEnv(provider string) string {
	return providerKeyEnv[llm.Provider(strings.ToLower(provider))]
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// Unwrap returns the sentinel classifying the failure
func (e ValidationError) Unwrap() error {
	return e.Err
}

// ValidationErrors aggregates every failed check
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	messages := make([]string, len(e))
	for i, err := range e {
		messages[i] = err.Error()
	}
	return "configuration validation failed:\n" + strings.Join(messages, "\n")
}

// Unwrap exposes the individual errors to errors.Is and errors.As
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	Environment      string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over config file values.
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		Environment:      getEnvironment(),
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	if opts.Environment == "" {
		opts.Environment = getEnvironment()
	}

	v := viper.New()

	setDefaults(v, opts.Environment)

	if _, err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Environment = opts.Environment
	config.LLM.Provider = strings.ToLower(strings.TrimSpace(config.LLM.Provider))

	if config.LLM.APIKey == "" {
		if envVar := ProviderKeyEnv(config.LLM.Provider); envVar != "" {
			config.LLM.APIKey = os.Getenv(envVar)
		}
	}

	if err := validateConfig(&config, opts.ValidateRequired); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper, environment string) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	if environment == "production" {
		v.SetDefault("server.mode", "release")
	} else {
		v.SetDefault("server.mode", "debug")
	}
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// LLM defaults
	v.SetDefault("llm.provider", string(llm.ProviderPerplexity))
	v.SetDefault("llm.apikey", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_tokens", 800)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_retries", llm.DefaultMaxRetries)

	// Session defaults
	v.SetDefault("session.default_ttl", 30*time.Minute)
	v.SetDefault("session.max_sessions", 1000)
	v.SetDefault("session.cleanup_interval", 5*time.Minute)

	// Screening defaults
	v.SetDefault("screening.exit_match", string(screening.ExitMatchSubstring))
	v.SetDefault("screening.known_tech_only", false)

	// Circuit breaker defaults
	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_failures", 5)
	v.SetDefault("circuit_breaker.reset_timeout", 30*time.Second)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// setConfigFile points v at the config file and returns its path.
// Only an explicitly requested file has to exist.
func setConfigFile(v *viper.Viper, configPath string) (string, error) {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return envPath, nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return "", fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return configPath, nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	for _, path := range []string{"./configs/config.yaml", "./config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	envMappings := map[string]string{
		"LLM_PROVIDER": "llm.provider",
		"LLM_MODEL":    "llm.model",
		"LLM_BASE_URL": "llm.base_url",
		"PORT":         "server.port",
		"GIN_MODE":     "server.mode",
		"LOG_LEVEL":    "logging.level",
		"LOG_FORMAT":   "logging.format",
		"LOG_OUTPUT":   "logging.output",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig collects every problem rather than stopping at the first
func validateConfig(config *Config, requireCredentials bool) error {
	var errs ValidationErrors
	invalid := func(field, message string) {
		errs = append(errs, ValidationError{Field: field, Message: message, Err: ErrInvalidConfigValue})
	}

	if _, err := llm.ParseProvider(config.LLM.Provider); err != nil {
		invalid("llm.provider", fmt.Sprintf("provider must be one of: %s", strings.Join(llm.Providers(), ", ")))
	} else if requireCredentials && config.LLM.APIKey == "" {
		errs = append(errs, ValidationError{
			Field: "llm.apikey",
			Message: fmt.Sprintf("API key is required. Set via config file, %s_LLM_APIKEY or %s environment variable",
				EnvPrefix, ProviderKeyEnv(config.LLM.Provider)),
			Err: ErrMissingRequiredField,
		})
	}

	if config.LLM.MaxTokens <= 0 {
		invalid("llm.max_tokens", "max_tokens must be greater than 0")
	}
	if config.LLM.Temperature < 0 || config.LLM.Temperature > 2 {
		invalid("llm.temperature", "temperature must be between 0 and 2")
	}
	if config.LLM.Timeout <= 0 {
		invalid("llm.timeout", "timeout must be greater than 0")
	}
	if config.LLM.MaxRetries < 0 {
		invalid("llm.max_retries", "max_retries must be greater than or equal to 0")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		invalid("server.port", "port must be between 1 and 65535")
	}
	validModes := []string{"debug", "release", "test"}
	if !contains(validModes, config.Server.Mode) {
		invalid("server.mode", fmt.Sprintf("mode must be one of: %s", strings.Join(validModes, ", ")))
	}

	if config.Session.DefaultTTL <= 0 {
		invalid("session.default_ttl", "default_ttl must be greater than 0")
	}
	if config.Session.MaxSessions < 0 {
		invalid("session.max_sessions", "max_sessions must be greater than or equal to 0")
	}

	validExitMatch := []string{string(screening.ExitMatchSubstring), string(screening.ExitMatchWord)}
	if !contains(validExitMatch, config.Screening.ExitMatch) {
		invalid("screening.exit_match", fmt.Sprintf("exit_match must be one of: %s", strings.Join(validExitMatch, ", ")))
	}

	if config.CircuitBreaker.Enabled {
		if config.CircuitBreaker.MaxFailures <= 0 {
			invalid("circuit_breaker.max_failures", "max_failures must be greater than 0")
		}
		if config.CircuitBreaker.ResetTimeout <= 0 {
			invalid("circuit_breaker.reset_timeout", "reset_timeout must be greater than 0")
		}
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		invalid("logging.level", fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")))
	}
	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		invalid("logging.format", fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if config.Metrics.Enabled && !strings.HasPrefix(config.Metrics.Path, "/") {
		invalid("metrics.path", "metrics path must start with /")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// LLMClientConfig converts the llm section for llm.New
func (c *Config) LLMClientConfig() llm.Config {
	return llm.Config{
		Provider:   llm.Provider(c.LLM.Provider),
		APIKey:     c.LLM.APIKey,
		BaseURL:    c.LLM.BaseURL,
		Model:      c.LLM.Model,
		MaxRetries: c.LLM.MaxRetries,
	}
}

// SessionManagerConfig converts the session section for session.NewManager
func (c *Config) SessionManagerConfig() session.Config {
	return session.Config{
		StorageType:     session.MemoryStorageType,
		DefaultTTL:      c.Session.DefaultTTL,
		MaxSessions:     c.Session.MaxSessions,
		CleanupInterval: c.Session.CleanupInterval,
	}
}

// BreakerConfig converts the circuit_breaker section; ok is false when the
// breaker is disabled
func (c *Config) BreakerConfig() (resilience.CircuitBreakerConfig, bool) {
	if !c.CircuitBreaker.Enabled {
		return resilience.CircuitBreakerConfig{}, false
	}
	cfg := resilience.DefaultCircuitBreakerConfig("question-generator")
	cfg.MaxFailures = c.CircuitBreaker.MaxFailures
	cfg.ResetTimeout = c.CircuitBreaker.ResetTimeout
	return cfg, true
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c
	if masked.LLM.APIKey != "" {
		masked.LLM.APIKey = maskValue(masked.LLM.APIKey)
	}
	return &masked
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// getEnvironment returns the current environment (development, production, etc.)
func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "development"
}

// WatchConfig reloads the configuration whenever the config file changes and
// hands each successfully validated result to callback. Invalid edits are
// logged and ignored.
func WatchConfig(opts LoadOptions, logger *zap.Logger, callback func(*Config)) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := viper.New()
	path, err := setConfigFile(v, opts.ConfigPath)
	if err != nil {
		return err
	}
	if path == "" {
		return ErrNoConfigFile
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))

		config, err := LoadWithOptions(opts)
		if err != nil {
			logger.Warn("Failed to reload config", zap.Error(err))
			return
		}
		callback(config)
	})
	v.WatchConfig()

	logger.Info("Watching config file", zap.String("file", path))
	return nil
}
