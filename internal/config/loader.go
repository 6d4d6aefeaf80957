package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/courier/pkg/logging"
)

const (
	userConfigDir  = ".config/courier"
	configFileName = "config.yaml"
	tokenDirName   = "tokens"
)

// DefaultConfigPath returns ~/.config/courier.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadEnv reads the COURIER_* environment overrides.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// LoadConfig loads config.yaml from configPath. A missing file yields the
// default configuration.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return GetDefaultConfig(), nil
		}
		return Config{}, NewConfigurationError(configFilePath, "io", "cannot read configuration file", err.Error())
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, NewConfigurationError(configFilePath, "parse", "malformed configuration file", err.Error(),
			"check the YAML syntax and field names")
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}
	if len(config.Profiles) == 0 {
		config.Profiles = GetDefaultConfig().Profiles
	}
	for name, p := range config.Profiles {
		if p.Type == "" {
			p.Type = ProfileTypeNone
		}
		if p.Timeout == 0 {
			p.Timeout = DefaultTimeout
		}
		config.Profiles[name] = p
	}

	if errs := config.Validate(); errs.HasErrors() {
		return Config{}, NewConfigurationError(configFilePath, "validation", "invalid configuration", errs.Error())
	}

	logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// Load resolves the configuration directory from the flag value or the
// environment, loads config.yaml and applies the environment overrides.
func Load(configPathFlag string) (Config, Env, error) {
	e, err := LoadEnv()
	if err != nil {
		return Config{}, Env{}, err
	}

	configPath := configPathFlag
	if configPath == "" {
		configPath = e.ConfigDir
	}
	if configPath == "" {
		if configPath, err = DefaultConfigPath(); err != nil {
			return Config{}, Env{}, err
		}
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		return Config{}, Env{}, err
	}
	config.ApplyEnv(e)
	if config.TokenDir == "" {
		config.TokenDir = filepath.Join(configPath, tokenDirName)
	}
	return config, e, nil
}

// ApplyEnv overrides file settings with non-empty environment values.
func (c *Config) ApplyEnv(e Env) {
	if e.Profile != "" {
		c.DefaultProfile = e.Profile
	}
	if e.LogLevel != "" {
		c.LogLevel = e.LogLevel
	}
	if e.TokenDir != "" {
		c.TokenDir = e.TokenDir
	}
	if e.ClientSecret != "" {
		name := c.DefaultProfile
		if name == "" {
			name = DefaultProfileName
		}
		if p, ok := c.Profiles[name]; ok {
			p.ClientSecret = e.ClientSecret
			c.Profiles[name] = p
		}
	}
}

// Profile returns the named profile, falling back to DefaultProfile and
// then to "default" when name is empty.
func (c Config) Profile(name string) (string, Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		name = DefaultProfileName
	}
	p, ok := c.Profiles[name]
	if !ok {
		return "", Profile{}, fmt.Errorf("profile %q not found (available: %v)", name, c.ProfileNames())
	}
	return name, p, nil
}

// ProfileNames returns the configured profile names in sorted order.
func (c Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
