package config

import "time"

const (
	// DefaultProfileName is used when neither the flag, the environment nor
	// the config file select a profile.
	DefaultProfileName = "default"

	DefaultLogLevel = "info"

	DefaultTimeout = 30 * time.Second
)

// GetDefaultConfig returns the configuration used when no config.yaml
// exists: a single unauthenticated profile.
func GetDefaultConfig() Config {
	return Config{
		DefaultProfile: DefaultProfileName,
		LogLevel:       DefaultLogLevel,
		Profiles: map[string]Profile{
			DefaultProfileName: {Type: ProfileTypeNone, Timeout: DefaultTimeout},
		},
	}
}
