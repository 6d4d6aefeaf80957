package content

import (
	"fmt"
	"net/http"
	"net/url"
)

const formURLEncoded = "application/x-www-form-urlencoded"

// FormConverter maps application/x-www-form-urlencoded payloads to url.Values.
type FormConverter struct {
	order int
}

// NewFormConverter returns a FormConverter with the default order.
func NewFormConverter() *FormConverter {
	return &FormConverter{order: 0}
}

func (c *FormConverter) Name() string { return "form" }
func (c *FormConverter) Order() int   { return c.order }

// WithOrder sets the resolution order. Call it before registering.
func (c *FormConverter) WithOrder(order int) *FormConverter {
	c.order = order
	return c
}

func (c *FormConverter) CanConvertFrom(kind Kind, ct *Content) bool {
	return kind == KindForm && ct != nil && ct.MediaType() == formURLEncoded
}

func (c *FormConverter) ConvertFrom(_ Kind, ct *Content, out any) error {
	target, ok := out.(*url.Values)
	if !ok {
		return unexpectedTarget(out)
	}
	b, err := ct.Bytes()
	if err != nil {
		return err
	}
	values, err := url.ParseQuery(string(b))
	if err != nil {
		return err
	}
	*target = values
	return nil
}

func (c *FormConverter) CanConvertTo(kind Kind, contentType string) bool {
	if kind != KindForm {
		return false
	}
	return contentType == "" || MediaType(contentType) == formURLEncoded
}

func (c *FormConverter) ConvertTo(_ Kind, _ string, v any) (*Content, error) {
	var values url.Values
	switch t := v.(type) {
	case url.Values:
		values = t
	case *url.Values:
		values = *t
	default:
		return nil, fmt.Errorf("unexpected source type %T", v)
	}
	return New(formURLEncoded, []byte(values.Encode())), nil
}

func (c *FormConverter) AddAcceptHeaders(kind Kind, h http.Header) {
	if kind == KindForm {
		addAccept(h, formURLEncoded, 100)
	}
}
