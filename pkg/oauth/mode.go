package oauth

import (
	"fmt"
	"strings"
)

// AuthorizeMode selects how the user-facing authorization step is performed.
type AuthorizeMode int

const (
	AuthorizeModeUnknown AuthorizeMode = iota

	// AuthorizeModeEmbeddedBrowser opens the system browser and receives the
	// redirect on a loopback listener.
	AuthorizeModeEmbeddedBrowser

	// AuthorizeModeLocalhostServer opens the system browser and receives the
	// redirect on a loopback listener bound to the redirect URL's port.
	AuthorizeModeLocalhostServer

	// AuthorizeModeOutOfBand prints the authorization URL and reads the code
	// pasted by the user.
	AuthorizeModeOutOfBand

	// AuthorizeModeOutOfBandAuto opens the browser, then reads the pasted code.
	AuthorizeModeOutOfBandAuto

	// AuthorizeModeTestPassThrough requests the authorization URL directly
	// and reads the code from the provider's redirect.
	AuthorizeModeTestPassThrough
)

var modeNames = map[AuthorizeMode]string{
	AuthorizeModeUnknown:         "Unknown",
	AuthorizeModeEmbeddedBrowser: "EmbeddedBrowser",
	AuthorizeModeLocalhostServer: "LocalhostServer",
	AuthorizeModeOutOfBand:       "OutOfBand",
	AuthorizeModeOutOfBandAuto:   "OutOfBandAuto",
	AuthorizeModeTestPassThrough: "TestPassThrough",
}

// String returns the string representation of the mode.
func (m AuthorizeMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("AuthorizeMode(%d)", int(m))
}

// ParseAuthorizeMode parses a mode name case-insensitively. Both the
// "OutOfBand" and "OutOfBound" spellings are accepted.
func ParseAuthorizeMode(s string) (AuthorizeMode, error) {
	normalized := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	switch normalized {
	case "embeddedbrowser", "browser":
		return AuthorizeModeEmbeddedBrowser, nil
	case "localhostserver", "localhost":
		return AuthorizeModeLocalhostServer, nil
	case "outofband", "outofbound", "oob":
		return AuthorizeModeOutOfBand, nil
	case "outofbandauto", "outofboundauto", "oobauto":
		return AuthorizeModeOutOfBandAuto, nil
	case "testpassthrough", "passthrough":
		return AuthorizeModeTestPassThrough, nil
	default:
		return AuthorizeModeUnknown, fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m AuthorizeMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *AuthorizeMode) UnmarshalText(text []byte) error {
	parsed, err := ParseAuthorizeMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
