package oauth1

import (
	"net/http"
)

// Transport signs each request with the engine's access token, running the
// authorization flow first when needed.
type Transport struct {
	Engine *Engine

	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// Wrap returns a Transport around base.
func (e *Engine) Wrap(base http.RoundTripper) http.RoundTripper {
	return &Transport{Engine: e, Base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, secret, err := t.Engine.EnsureAccessToken(req.Context())
	if err != nil {
		closeBody(req)
		return nil, err
	}

	signed := req.Clone(req.Context())
	if err := t.Engine.signer.Sign(signed, token, secret); err != nil {
		closeBody(req)
		return nil, err
	}
	t.Engine.metrics.RecordSignature(req.Context(), string(t.Engine.settings.signatureMethod()))

	return t.base().RoundTrip(signed)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
