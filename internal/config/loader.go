package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for every setting.
const envPrefix = "KEGGMINER"

// newViper builds a Viper with YAML config type, KEGGMINER_ env prefix and a
// "." → "_" key replacer, so "mining.threshold" resolves to
// KEGGMINER_MINING_THRESHOLD.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

// Load reads the YAML file at configPath, merges KEGGMINER_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from defaults and KEGGMINER_* variables only.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// Discover looks for keggminer.yaml in the given directories, loading the
// first one found. Without a file it falls back to LoadFromEnv. The returned
// path is empty when no file was used.
func Discover(dirs ...string) (*Config, string, error) {
	v := newViper()
	v.SetConfigName("keggminer")
	for _, d := range dirs {
		v.AddConfigPath(d)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			cfg, err := unmarshalAndFinalize(v)
			return cfg, "", err
		}
		return nil, "", fmt.Errorf("config: failed to read config file: %w", err)
	}

	cfg, err := unmarshalAndFinalize(v)
	return cfg, v.ConfigFileUsed(), err
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}
