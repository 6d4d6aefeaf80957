package content

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Content is a wire payload: headers plus a body.
type Content struct {
	Header http.Header
	Body   io.Reader

	buf      []byte
	buffered bool
}

// New returns a buffered Content with the given content type.
func New(contentType string, body []byte) *Content {
	c := &Content{
		Header:   http.Header{},
		Body:     bytes.NewReader(body),
		buf:      body,
		buffered: true,
	}
	if contentType != "" {
		c.Header.Set("Content-Type", contentType)
	}
	return c
}

// NewStream returns a Content wrapping r without buffering it.
func NewStream(contentType string, r io.Reader) *Content {
	c := &Content{Header: http.Header{}, Body: r}
	if contentType != "" {
		c.Header.Set("Content-Type", contentType)
	}
	return c
}

// FromResponse wraps the body and headers of resp. The caller still owns
// resp.Body.
func FromResponse(resp *http.Response) *Content {
	h := resp.Header
	if h == nil {
		h = http.Header{}
	}
	return &Content{Header: h, Body: resp.Body}
}

// ContentType returns the Content-Type header value, including parameters.
func (c *Content) ContentType() string {
	if c == nil || c.Header == nil {
		return ""
	}
	return c.Header.Get("Content-Type")
}

// MediaType returns the lower-cased media type without parameters.
func (c *Content) MediaType() string {
	return MediaType(c.ContentType())
}

// Charset returns the charset parameter of the content type, if any.
func (c *Content) Charset() string {
	_, params, err := mime.ParseMediaType(c.ContentType())
	if err != nil {
		return ""
	}
	return params["charset"]
}

// Bytes reads the whole body once and caches it.
func (c *Content) Bytes() ([]byte, error) {
	if c.buffered {
		return c.buf, nil
	}
	if c.Body == nil {
		c.buffered = true
		return nil, nil
	}
	b, err := io.ReadAll(c.Body)
	if err != nil {
		return nil, err
	}
	c.buf = b
	c.buffered = true
	c.Body = bytes.NewReader(b)
	return b, nil
}

// Reader returns a reader over the body. Once buffered, each call returns a
// fresh reader positioned at the start.
func (c *Content) Reader() io.Reader {
	if c.buffered {
		return bytes.NewReader(c.buf)
	}
	if c.Body == nil {
		return http.NoBody
	}
	return c.Body
}

// Len returns the body length when known, or -1.
func (c *Content) Len() int64 {
	if c.buffered {
		return int64(len(c.buf))
	}
	return -1
}

// MediaType parses a Content-Type value and returns the lower-cased media
// type without parameters.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// matchesAny reports whether mediaType equals one of types, or carries one of
// the structured syntax suffixes (e.g. "+json").
func matchesAny(mediaType string, types []string, suffixes ...string) bool {
	for _, t := range types {
		if mediaType == t {
			return true
		}
	}
	for _, s := range suffixes {
		if strings.HasSuffix(mediaType, s) {
			return true
		}
	}
	return false
}
