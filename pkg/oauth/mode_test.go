package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseAuthorizeMode(t *testing.T) {
	tests := map[string]AuthorizeMode{
		"EmbeddedBrowser":  AuthorizeModeEmbeddedBrowser,
		"localhost-server": AuthorizeModeLocalhostServer,
		"OutOfBound":       AuthorizeModeOutOfBand,
		"oob":              AuthorizeModeOutOfBand,
		"out_of_band_auto": AuthorizeModeOutOfBandAuto,
		"TestPassThrough":  AuthorizeModeTestPassThrough,
	}
	for in, want := range tests {
		got, err := ParseAuthorizeMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAuthorizeMode("carrier-pigeon")
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestAuthorizeMode_YAML(t *testing.T) {
	var cfg struct {
		Mode AuthorizeMode `yaml:"mode"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("mode: LocalhostServer\n"), &cfg))
	assert.Equal(t, AuthorizeModeLocalhostServer, cfg.Mode)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mode: LocalhostServer\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("mode: nope\n"), &cfg))
}
