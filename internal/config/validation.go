package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/giantswarm/courier/pkg/oauth"
	"github.com/giantswarm/courier/pkg/oauth/oauth1"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

func (ve *ValidationErrors) required(field, value, profileType string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, fmt.Sprintf("is required for %s profiles", profileType), value)
	}
}

func (ve *ValidationErrors) url(field, value string) {
	if value == "" {
		return
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" {
		ve.Add(field, "must be an absolute URL", value)
	}
}

// Validate checks every profile and the default profile reference.
func (c Config) Validate() ValidationErrors {
	var errs ValidationErrors
	if c.DefaultProfile != "" {
		if _, ok := c.Profiles[c.DefaultProfile]; !ok {
			errs.Add("defaultProfile", "references an unknown profile", c.DefaultProfile)
		}
	}
	for _, name := range c.ProfileNames() {
		errs = append(errs, c.Profiles[name].Validate(name)...)
	}
	return errs
}

// Validate checks a single profile. Field names are prefixed with
// profiles.<name>.
func (p Profile) Validate(name string) ValidationErrors {
	var errs ValidationErrors
	field := func(f string) string { return "profiles." + name + "." + f }

	errs.url(field("baseURL"), p.BaseURL)
	if p.Retries < 0 {
		errs.Add(field("retries"), "must not be negative", p.Retries)
	}
	if p.RateLimit < 0 {
		errs.Add(field("rateLimit"), "must not be negative", p.RateLimit)
	}
	if p.Timeout < 0 {
		errs.Add(field("timeout"), "must not be negative", p.Timeout)
	}

	switch p.Type {
	case ProfileTypeNone:
		return errs
	case ProfileTypeOAuth1:
		errs.required(field("clientID"), p.ClientID, "oauth1")
		errs.required(field("tokenURL"), p.TokenURL, "oauth1")
		errs.required(field("accessTokenURL"), p.AccessTokenURL, "oauth1")
		errs.required(field("authorizationURI"), p.AuthorizationURI, "oauth1")
		errs.url(field("tokenURL"), p.TokenURL)
		errs.url(field("accessTokenURL"), p.AccessTokenURL)
		if _, err := oauth1.ParseSignatureMethod(p.SignatureMethod); err != nil {
			errs.Add(field("signatureMethod"), err.Error(), p.SignatureMethod)
		}
	case ProfileTypeOAuth2:
		errs.required(field("clientID"), p.ClientID, "oauth2")
		if p.Issuer == "" {
			errs.required(field("tokenURL"), p.TokenURL, "oauth2")
			errs.required(field("authorizationURI"), p.AuthorizationURI, "oauth2")
		}
		errs.url(field("issuer"), p.Issuer)
		errs.url(field("tokenURL"), p.TokenURL)
		errs.url(field("revocationURL"), p.RevocationURL)
	default:
		errs.Add(field("type"), "must be one of none, oauth1, oauth2", p.Type)
		return errs
	}

	if err := oauth.CheckAuthorizationURI(p.AuthorizationURI); err != nil {
		errs.Add(field("authorizationURI"), err.Error(), p.AuthorizationURI)
	}
	if p.AuthorizeMode != "" {
		if _, err := oauth.ParseAuthorizeMode(p.AuthorizeMode); err != nil {
			errs.Add(field("authorizeMode"), err.Error(), p.AuthorizeMode)
		}
	}
	return errs
}
