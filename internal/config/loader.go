package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "CODECOACH"

// Loader layers defaults, the config file, environment and flag overrides.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a loader reading the default config path.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// Override keys are dotted config keys; empty values are ignored.
func (l *Loader) Load(overrides map[string]string) (Config, error) {
	setDefaults(l.v, Default())

	l.v.SetEnvPrefix(envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	path := l.configFile
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading config: %w", err)
	} else if l.configFile != "" {
		return Config{}, fmt.Errorf("config file not found: %s", l.configFile)
	}

	for k, v := range overrides {
		if v == "" {
			continue
		}
		if k == "server.allowed_origins" {
			l.v.Set(k, splitList(v))
			continue
		}
		l.v.Set(k, v)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Load is shorthand for NewLoader().Load(overrides).
func Load(overrides map[string]string) (Config, error) {
	return NewLoader().Load(overrides)
}

// LoadFile reads only the config file on top of defaults, ignoring the
// environment. `config set` uses it so env values are not persisted.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("format", d.Format)
	v.SetDefault("fail_on", d.FailOn)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("max_tokens", d.MaxTokens)
	v.SetDefault("temperature", d.Temperature)
	v.SetDefault("profiles_file", d.ProfilesFile)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)

	v.SetDefault("privacy.redact_secrets", d.Privacy.RedactSecrets)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("threads.path", d.Threads.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
