package oauth2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/courier/pkg/instrumentation"
	"github.com/giantswarm/courier/pkg/oauth"
)

// maxResponseSize caps token endpoint responses.
const maxResponseSize = 1 << 20

// seconds accepts expires_in as a JSON number or a numeric string.
type seconds int64

func (s *seconds) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid expires_in %q", raw)
	}
	*s = seconds(f)
	return nil
}

// tokenResponse is an RFC 6749 section 5.1/5.2 token endpoint response.
type tokenResponse struct {
	AccessToken      string  `json:"access_token"`
	TokenType        string  `json:"token_type"`
	RefreshToken     string  `json:"refresh_token"`
	ExpiresIn        seconds `json:"expires_in"`
	Scope            string  `json:"scope"`
	Error            string  `json:"error"`
	ErrorDescription string  `json:"error_description"`
	ErrorURI         string  `json:"error_uri"`

	// raw holds every top-level field as a string.
	raw map[string]string
}

func (r *tokenResponse) providerError() *oauth.ProviderError {
	if r.Error == "" {
		return nil
	}
	return &oauth.ProviderError{Code: r.Error, Description: r.ErrorDescription, URI: r.ErrorURI}
}

// parseTokenResponse decodes JSON bodies and, for providers answering with
// a form, url-encoded bodies.
func parseTokenResponse(contentType string, body []byte) (*tokenResponse, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "text/plain" {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}
		resp := &tokenResponse{
			AccessToken:      values.Get("access_token"),
			TokenType:        values.Get("token_type"),
			RefreshToken:     values.Get("refresh_token"),
			Scope:            values.Get("scope"),
			Error:            values.Get("error"),
			ErrorDescription: values.Get("error_description"),
			ErrorURI:         values.Get("error_uri"),
			raw:              map[string]string{},
		}
		if err := resp.ExpiresIn.UnmarshalJSON([]byte(values.Get("expires_in"))); err != nil {
			return nil, err
		}
		for k := range values {
			resp.raw[k] = values.Get(k)
		}
		return resp, nil
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	resp.raw = make(map[string]string, len(fields))
	for k, v := range fields {
		switch v := v.(type) {
		case string:
			resp.raw[k] = v
		case float64:
			resp.raw[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
		default:
			encoded, _ := json.Marshal(v)
			resp.raw[k] = string(encoded)
		}
	}
	return &resp, nil
}

// exchange posts a grant to the token endpoint and applies the response to
// the credential. Must be called with the settings lock held.
func (m *Manager) exchange(ctx context.Context, leg oauth.Leg, form url.Values) (err error) {
	s := m.settings
	grantType := form.Get("grant_type")

	ctx, span := m.tracer.Start(ctx, "oauth2.exchange",
		trace.WithAttributes(
			attribute.String(instrumentation.AttrProtocol, "oauth2"),
			attribute.String(instrumentation.AttrLeg, string(leg)),
			attribute.String(instrumentation.AttrGrantType, grantType),
			attribute.String(instrumentation.AttrClientID, s.ClientID),
		))
	defer func() {
		m.metrics.RecordTokenExchange(ctx, "oauth2", string(leg), err)
		if err != nil {
			instrumentation.RecordError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
	}()

	form.Set("client_id", s.ClientID)
	if s.ClientSecret != "" {
		form.Set("client_secret", s.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &oauth.ExchangeError{Leg: leg, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	m.logger.Debug("OAuth2 token request", "grant_type", grantType, "endpoint", s.TokenURL)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &oauth.ExchangeError{Leg: leg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	receivedAt := s.now()
	if err != nil {
		return &oauth.ExchangeError{Leg: leg, StatusCode: resp.StatusCode, Err: err}
	}

	tr, parseErr := parseTokenResponse(resp.Header.Get("Content-Type"), body)
	if parseErr == nil {
		if providerErr := tr.providerError(); providerErr != nil {
			return &oauth.ExchangeError{Leg: leg, StatusCode: resp.StatusCode, Body: string(body), Err: providerErr}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &oauth.ExchangeError{Leg: leg, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if parseErr != nil {
		return &oauth.ExchangeError{Leg: leg, StatusCode: resp.StatusCode, Body: string(body),
			Err: fmt.Errorf("parsing response: %w", parseErr)}
	}
	if tr.AccessToken == "" {
		return &oauth.ExchangeError{Leg: leg, StatusCode: resp.StatusCode, Err: errors.New("response carries no access_token")}
	}

	cred := &s.Credential
	cred.AccessToken = tr.AccessToken
	cred.TokenType = tr.TokenType
	cred.AccessTokenExpiresAt = time.Time{}
	if tr.ExpiresIn > 0 {
		cred.AccessTokenExpiresAt = receivedAt.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	// Providers may omit the refresh token on refresh; the old one stays valid.
	if tr.RefreshToken != "" {
		cred.RefreshToken = tr.RefreshToken
	}

	if s.OnAccessTokenObtained != nil {
		s.OnAccessTokenObtained(tr.raw)
	}

	m.persistLocked()
	return nil
}
