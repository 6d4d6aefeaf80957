package content

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

var textualTypes = []string{
	"application/json",
	"application/xml",
	"application/javascript",
	"application/x-www-form-urlencoded",
	"application/yaml",
	"application/x-yaml",
}

// StringConverter maps textual payloads to strings. Non UTF-8 charsets
// announced in the Content-Type are decoded.
type StringConverter struct {
	order int
}

// NewStringConverter returns a StringConverter with the default order.
func NewStringConverter() *StringConverter {
	return &StringConverter{order: 0}
}

func (c *StringConverter) Name() string { return "string" }
func (c *StringConverter) Order() int   { return c.order }

// WithOrder sets the resolution order. Call it before registering.
func (c *StringConverter) WithOrder(order int) *StringConverter {
	c.order = order
	return c
}

func (c *StringConverter) CanConvertFrom(kind Kind, ct *Content) bool {
	if kind != KindString || ct == nil {
		return false
	}
	return isTextual(ct.MediaType())
}

func (c *StringConverter) ConvertFrom(_ Kind, ct *Content, out any) error {
	target, ok := out.(*string)
	if !ok {
		return unexpectedTarget(out)
	}
	s, err := readText(ct)
	if err != nil {
		return err
	}
	*target = s
	return nil
}

func (c *StringConverter) CanConvertTo(kind Kind, contentType string) bool {
	if kind != KindString {
		return false
	}
	return contentType == "" || isTextual(MediaType(contentType))
}

func (c *StringConverter) ConvertTo(_ Kind, contentType string, v any) (*Content, error) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case *string:
		s = *t
	default:
		return nil, fmt.Errorf("unexpected source type %T", v)
	}
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	return New(contentType, []byte(s)), nil
}

func (c *StringConverter) AddAcceptHeaders(kind Kind, h http.Header) {
	if kind != KindString {
		return
	}
	addAccept(h, "text/plain", 100)
	addAccept(h, "text/*", 90)
}

// ReadText returns the body of c as a string, decoding the announced charset.
func ReadText(c *Content) (string, error) {
	return readText(c)
}

func readText(c *Content) (string, error) {
	b, err := c.Bytes()
	if err != nil {
		return "", err
	}
	charset := strings.ToLower(c.Charset())
	if charset == "" || charset == "utf-8" || charset == "utf8" || charset == "us-ascii" {
		return string(b), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		// Unknown charsets fall back to the raw bytes.
		return string(b), nil
	}
	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode %s body: %w", charset, err)
	}
	return string(decoded), nil
}

func isTextual(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	return matchesAny(mediaType, textualTypes, "+json", "+xml", "+yaml")
}
