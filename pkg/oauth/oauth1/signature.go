package oauth1

import (
	"encoding/base64"
	"hash"
	"net"
	"net/url"
	"sort"
	"strings"
)

// Param is a single OAuth1 parameter. Duplicate keys are allowed.
type Param struct {
	Key   string
	Value string
}

// PercentEncode encodes s per RFC 3986 section 2.1 as required by RFC 5849
// section 3.6: only ALPHA, DIGIT, '-', '.', '_' and '~' are left unencoded
// and hex digits are upper case.
func PercentEncode(s string) string {
	const hex = "0123456789ABCDEF"

	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	out := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			out = append(out, c)
			continue
		}
		out = append(out, '%', hex[c>>4], hex[c&0x0f])
	}
	return string(out)
}

func unreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' ||
		'a' <= c && c <= 'z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// NormalizeParameters encodes every key and value, sorts by encoded key then
// encoded value, and joins them as k=v pairs separated by '&'.
func NormalizeParameters(params []Param) string {
	encoded := make([]Param, len(params))
	for i, p := range params {
		encoded[i] = Param{Key: PercentEncode(p.Key), Value: PercentEncode(p.Value)}
	}
	sort.SliceStable(encoded, func(i, j int) bool {
		if encoded[i].Key != encoded[j].Key {
			return encoded[i].Key < encoded[j].Key
		}
		return encoded[i].Value < encoded[j].Value
	})

	var b strings.Builder
	for i, p := range encoded {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	return b.String()
}

// BaseURI returns the base string URI of u (RFC 5849 section 3.4.1.2):
// lower-case scheme and host, default ports dropped, no query or fragment.
func BaseURI(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

// BaseString builds the signature base string
// METHOD&encode(base URI)&encode(normalized parameters).
func BaseString(method string, u *url.URL, params []Param) string {
	return strings.ToUpper(method) + "&" +
		PercentEncode(BaseURI(u)) + "&" +
		PercentEncode(NormalizeParameters(params))
}

// SigningKey returns encode(consumerSecret)&encode(tokenSecret). An empty
// token secret still yields the trailing '&'.
func SigningKey(consumerSecret, tokenSecret string) string {
	return PercentEncode(consumerSecret) + "&" + PercentEncode(tokenSecret)
}

// ComputeHash writes data into h and returns the base64 digest.
func ComputeHash(h hash.Hash, data string) string {
	h.Reset()
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
