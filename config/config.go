// Package config loads agent configuration from YAML with environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
	"github.com/Jon-Arve-Ovesen/agent-zero/logging"
	"gopkg.in/yaml.v3"
)

const opConfig = "config"

// Environment variables consulted by ApplyEnv.
const (
	EnvName     = "AGENTZERO_NAME"
	EnvModel    = "AGENTZERO_MODEL"
	EnvProvider = "AGENTZERO_PROVIDER"
	EnvLogLevel = "AGENTZERO_LOG_LEVEL"
)

// Providers accepted in Config.Provider. Empty means infer from the model.
var Providers = []string{"openai", "anthropic", "echo"}

// Retry mirrors the agent retry policy.
type Retry struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// Log selects logger level and format.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Config describes one agent.
type Config struct {
	Name          string         `yaml:"name"`
	Model         string         `yaml:"model"`
	Provider      string         `yaml:"provider,omitempty"`
	Instruction   string         `yaml:"instruction,omitempty"`
	Timeout       time.Duration  `yaml:"timeout,omitempty"`
	MaxModelCalls int            `yaml:"max_model_calls,omitempty"`
	RateLimitRPM  float64        `yaml:"rate_limit_rpm,omitempty"`
	Retry         Retry          `yaml:"retry"`
	Log           Log            `yaml:"log"`
	Context       map[string]any `yaml:"context,omitempty"`
}

// Default returns a configuration with logging defaults filled in.
func Default() *Config {
	return &Config{
		Log: Log{Level: "info", Format: "json"},
	}
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, core.NewError(opConfig, core.ErrInvalidArgument, fmt.Errorf("parse yaml: %w", err))
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. A nil lookup uses
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvName, &c.Name)
	set(EnvModel, &c.Model)
	set(EnvProvider, &c.Provider)
	set(EnvLogLevel, &c.Log.Level)
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.Provider != "" && !slices.Contains(Providers, c.Provider) {
		errs = append(errs, fmt.Errorf("unknown provider %q (want one of %s)", c.Provider, strings.Join(Providers, ", ")))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	if c.MaxModelCalls < 0 {
		errs = append(errs, errors.New("max_model_calls must not be negative"))
	}
	if c.RateLimitRPM < 0 {
		errs = append(errs, errors.New("rate_limit_rpm must not be negative"))
	}
	if c.Retry.MaxRetries < 0 || c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		errs = append(errs, errors.New("retry values must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "" && f != "json" && f != "text" {
		errs = append(errs, fmt.Errorf("unknown log format %q", f))
	}
	if err := errors.Join(errs...); err != nil {
		return core.NewError(opConfig, core.ErrInvalidArgument, err)
	}
	return nil
}

// LoggerConfig converts the log section for logging.NewLogger.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	lvl, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		lvl = logging.LogLevelInfo
	}
	return &logging.LoggerConfig{
		Level:     lvl,
		Format:    c.Log.Format,
		Component: "agentzero",
	}
}
