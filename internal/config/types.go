package config

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Config is the top-level CLI configuration stored in config.yaml.
type Config struct {
	// DefaultProfile is used when no profile is selected.
	DefaultProfile string `yaml:"defaultProfile,omitempty"`

	LogLevel  string `yaml:"logLevel,omitempty"`
	LogFormat string `yaml:"logFormat,omitempty"`

	// Telemetry enables OpenTelemetry metrics and tracing using the global
	// providers.
	Telemetry bool `yaml:"telemetry,omitempty"`

	// TokenDir overrides where credentials are persisted.
	TokenDir string `yaml:"tokenDir,omitempty"`

	Profiles map[string]Profile `yaml:"profiles,omitempty"`
}

// ProfileType selects the authorization protocol of a profile.
type ProfileType string

const (
	ProfileTypeNone   ProfileType = "none"
	ProfileTypeOAuth1 ProfileType = "oauth1"
	ProfileTypeOAuth2 ProfileType = "oauth2"
)

// Profile describes one service connection.
type Profile struct {
	Type ProfileType `yaml:"type"`

	// BaseURL is prefixed to relative request paths.
	BaseURL string `yaml:"baseURL,omitempty"`

	ClientID         string `yaml:"clientID,omitempty"`
	ClientSecret     string `yaml:"clientSecret,omitempty"`
	TokenURL         string `yaml:"tokenURL,omitempty"`
	AuthorizationURI string `yaml:"authorizationURI,omitempty"`
	RedirectURL      string `yaml:"redirectURL,omitempty"`
	AuthorizeMode    string `yaml:"authorizeMode,omitempty"`

	// CallbackTimeout bounds the interactive login step.
	CallbackTimeout time.Duration `yaml:"callbackTimeout,omitempty"`

	// OAuth1 only.
	AccessTokenURL  string `yaml:"accessTokenURL,omitempty"`
	SignatureMethod string `yaml:"signatureMethod,omitempty"`
	CheckVerifier   bool   `yaml:"checkVerifier,omitempty"`

	// OAuth2 only.
	Issuer        string        `yaml:"issuer,omitempty"`
	RevocationURL string        `yaml:"revocationURL,omitempty"`
	Scopes        []string      `yaml:"scopes,omitempty"`
	ExpiryOffset  time.Duration `yaml:"expiryOffset,omitempty"`
	UsePKCE       bool          `yaml:"usePKCE,omitempty"`

	// AdditionalAttributes are appended to the authorization URL in file
	// order.
	AdditionalAttributes *orderedmap.OrderedMap[string, string] `yaml:"additionalAttributes,omitempty"`

	// Transport knobs.
	Timeout   time.Duration     `yaml:"timeout,omitempty"`
	Retries   int               `yaml:"retries,omitempty"`
	RateLimit float64           `yaml:"rateLimit,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
}

// Env holds the environment overrides.
type Env struct {
	ConfigDir    string `env:"COURIER_CONFIG_DIR"`
	Profile      string `env:"COURIER_PROFILE"`
	LogLevel     string `env:"COURIER_LOG_LEVEL"`
	TokenDir     string `env:"COURIER_TOKEN_DIR"`
	ClientSecret string `env:"COURIER_CLIENT_SECRET"`
}
