package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const maxPassThroughRedirects = 10

// DefaultPassThroughRedirectURL is used when the settings carry no redirect
// URL. Nothing needs to listen on it.
const DefaultPassThroughRedirectURL = "http://localhost/callback"

// PassThroughReceiver requests the authorization URL itself and reads the
// callback parameters from the redirect that points back at the redirect
// URL. It suits providers that authorize without user interaction, such as
// test doubles.
type PassThroughReceiver struct {
	Client *http.Client
}

func (r *PassThroughReceiver) ReceiveCode(ctx context.Context, _ AuthorizeMode, req *AuthorizationRequest) (map[string]string, error) {
	redirect := req.Settings.RedirectURL
	if redirect == "" {
		redirect = DefaultPassThroughRedirectURL
	}
	next, err := req.URL(redirect)
	if err != nil {
		return nil, err
	}

	client := http.DefaultClient
	if r.Client != nil {
		client = r.Client
	}
	noFollow := *client
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	for i := 0; i < maxPassThroughRedirects; i++ {
		if strings.HasPrefix(next, redirect) {
			return callbackValues(next)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		resp, err := noFollow.Do(httpReq)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &ExchangeError{Leg: LegAuthorize, Err: err}
		}
		_ = resp.Body.Close()

		location, err := resp.Location()
		if err != nil {
			return nil, &ExchangeError{Leg: LegAuthorize, StatusCode: resp.StatusCode,
				Err: errors.New("provider did not redirect")}
		}
		next = location.String()
	}
	return nil, &ExchangeError{Leg: LegAuthorize, Err: fmt.Errorf("stopped after %d redirects", maxPassThroughRedirects)}
}

// callbackValues merges query and fragment parameters of a redirect.
func callbackValues(redirect string) (map[string]string, error) {
	u, err := url.Parse(redirect)
	if err != nil {
		return nil, err
	}
	values := u.Query()
	if u.Fragment != "" {
		if fragment, err := url.ParseQuery(u.Fragment); err == nil {
			for k, v := range fragment {
				values[k] = v
			}
		}
	}
	return flatten(values), nil
}
