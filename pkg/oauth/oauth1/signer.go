package oauth1

import (
	"bytes"
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Signer computes RFC 5849 signatures and writes the Authorization header.
type Signer struct {
	settings *Settings

	// Now and Nonce are replaceable for deterministic signatures.
	Now   func() time.Time
	Nonce func() string
}

// NewSigner returns a Signer for s using the wall clock and random nonces.
func NewSigner(s *Settings) *Signer {
	return &Signer{
		settings: s,
		Now:      time.Now,
		Nonce:    func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// Sign signs req with the given token and secret, adding extra protocol
// parameters (oauth_callback, oauth_verifier) to the signature and header.
// Query parameters and form-encoded bodies are included in the base string;
// the body is restored for sending.
func (s *Signer) Sign(req *http.Request, token, tokenSecret string, extra ...Param) error {
	protocol := []Param{
		{Key: "oauth_consumer_key", Value: s.settings.ClientID},
		{Key: "oauth_nonce", Value: s.Nonce()},
		{Key: "oauth_signature_method", Value: string(s.settings.signatureMethod())},
		{Key: "oauth_timestamp", Value: strconv.FormatInt(s.Now().Unix(), 10)},
		{Key: "oauth_version", Value: "1.0"},
	}
	if token != "" {
		protocol = append(protocol, Param{Key: "oauth_token", Value: token})
	}
	protocol = append(protocol, extra...)

	all := append([]Param(nil), protocol...)
	for k, vs := range req.URL.Query() {
		for _, v := range vs {
			all = append(all, Param{Key: k, Value: v})
		}
	}
	form, err := formParams(req)
	if err != nil {
		return err
	}
	all = append(all, form...)

	base := BaseString(req.Method, req.URL, all)
	signature, err := s.signature(base, tokenSecret)
	if err != nil {
		return err
	}
	protocol = append(protocol, Param{Key: "oauth_signature", Value: signature})

	req.Header.Set("Authorization", s.header(protocol))
	return nil
}

func (s *Signer) signature(base, tokenSecret string) (string, error) {
	key := SigningKey(s.settings.ClientSecret, tokenSecret)
	switch s.settings.signatureMethod() {
	case HMACSHA1:
		return ComputeHash(hmac.New(sha1.New, []byte(key)), base), nil
	case PlainText:
		return key, nil
	case RSASHA1:
		if s.settings.RSAKey == nil {
			return "", fmt.Errorf("oauth1: RSA-SHA1 requires an RSA private key")
		}
		digest := sha1.Sum([]byte(base))
		sig, err := rsa.SignPKCS1v15(rand.Reader, s.settings.RSAKey, crypto.SHA1, digest[:])
		if err != nil {
			return "", fmt.Errorf("oauth1: RSA-SHA1 signing: %w", err)
		}
		return base64.StdEncoding.EncodeToString(sig), nil
	default:
		return "", fmt.Errorf("oauth1: unsupported signature method %q", s.settings.SignatureMethod)
	}
}

func (s *Signer) header(params []Param) string {
	var b strings.Builder
	b.WriteString("OAuth ")
	first := true
	if s.settings.Realm != "" {
		fmt.Fprintf(&b, `realm="%s"`, PercentEncode(s.settings.Realm))
		first = false
	}
	for _, p := range params {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, `%s="%s"`, PercentEncode(p.Key), PercentEncode(p.Value))
	}
	return b.String()
}

// formParams returns the parameters of a form-encoded body and restores the
// body so it can still be sent.
func formParams(req *http.Request) ([]Param, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType != "application/x-www-form-urlencoded" {
		return nil, nil
	}

	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("oauth1: reading form body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.ContentLength = int64(len(body))

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("oauth1: parsing form body: %w", err)
	}
	var params []Param
	for k, vs := range values {
		for _, v := range vs {
			params = append(params, Param{Key: k, Value: v})
		}
	}
	return params, nil
}
