package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the codecoach configuration.
type Config struct {
	Provider     string        `mapstructure:"provider" yaml:"provider" json:"provider"`
	Model        string        `mapstructure:"model" yaml:"model" json:"model"`
	Format       string        `mapstructure:"format" yaml:"format" json:"format"`
	FailOn       int           `mapstructure:"fail_on" yaml:"fail_on" json:"failOn"`
	Concurrency  int           `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
	MaxTokens    int           `mapstructure:"max_tokens" yaml:"max_tokens" json:"maxTokens"`
	Temperature  float64       `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
	ProfilesFile string        `mapstructure:"profiles_file" yaml:"profiles_file,omitempty" json:"profilesFile,omitempty"`
	Cache        CacheConfig   `mapstructure:"cache" yaml:"cache" json:"cache"`
	Privacy      PrivacyConfig `mapstructure:"privacy" yaml:"privacy" json:"privacy"`
	Server       ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Threads      ThreadsConfig `mapstructure:"threads" yaml:"threads" json:"threads"`
	Log          LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Dir        string `mapstructure:"dir" yaml:"dir,omitempty" json:"dir,omitempty"`
	TTLSeconds int    `mapstructure:"ttl_seconds" yaml:"ttl_seconds" json:"ttlSeconds"`
}

// PrivacyConfig controls redaction of submitted sources.
type PrivacyConfig struct {
	RedactSecrets bool `mapstructure:"redact_secrets" yaml:"redact_secrets" json:"redactSecrets"`
}

// ServerConfig configures `codecoach serve`.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr" json:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins" json:"allowedOrigins"`
}

// ThreadsConfig locates the follow-up conversation store. An empty path
// keeps threads in memory.
type ThreadsConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty" json:"path,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:    "anthropic",
		Model:       "claude-sonnet-4-20250514",
		Format:      "text",
		FailOn:      0,
		Concurrency: 4,
		MaxTokens:   4096,
		Temperature: 0,
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

var validFormats = map[string]bool{"text": true, "json": true, "markdown": true, "sarif": true}

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("unknown format %q (want text, json, markdown or sarif)", c.Format)
	}
	if c.FailOn < 0 || c.FailOn > 5 {
		return fmt.Errorf("fail_on must be between 0 and 5, got %d", c.FailOn)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory for codecoach.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codecoach"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "codecoach"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "codecoach"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "codecoach"), nil
	default:
		return filepath.Join(home, ".config", "codecoach"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Save writes the config file atomically.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes cfg as YAML to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Keys lists every settable dotted key.
var Keys = []string{
	"provider", "model", "format", "fail_on", "concurrency", "max_tokens",
	"temperature", "profiles_file", "cache.enabled", "cache.dir",
	"cache.ttl_seconds", "privacy.redact_secrets", "server.addr",
	"server.allowed_origins", "threads.path", "log.level", "log.format",
}

// SetField sets a single config field by dotted key. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "format":
		cfg.Format = value
	case "fail_on":
		return setInt(&cfg.FailOn, key, value)
	case "concurrency":
		return setInt(&cfg.Concurrency, key, value)
	case "max_tokens":
		return setInt(&cfg.MaxTokens, key, value)
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("temperature must be a number: %w", err)
		}
		cfg.Temperature = f
	case "profiles_file":
		cfg.ProfilesFile = value
	case "cache.enabled":
		return setBool(&cfg.Cache.Enabled, key, value)
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttl_seconds":
		return setInt(&cfg.Cache.TTLSeconds, key, value)
	case "privacy.redact_secrets":
		return setBool(&cfg.Privacy.RedactSecrets, key, value)
	case "server.addr":
		cfg.Server.Addr = value
	case "server.allowed_origins":
		cfg.Server.AllowedOrigins = splitList(value)
	case "threads.path":
		cfg.Threads.Path = value
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be true or false: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
