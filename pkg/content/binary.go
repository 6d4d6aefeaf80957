package content

import (
	"fmt"
	"io"
	"net/http"
)

const octetStream = "application/octet-stream"

// BytesConverter maps any payload to a byte slice.
type BytesConverter struct {
	order int
}

// NewBytesConverter returns a BytesConverter with the default order.
func NewBytesConverter() *BytesConverter {
	return &BytesConverter{order: 0}
}

func (c *BytesConverter) Name() string { return "bytes" }
func (c *BytesConverter) Order() int   { return c.order }

// WithOrder sets the resolution order. Call it before registering.
func (c *BytesConverter) WithOrder(order int) *BytesConverter {
	c.order = order
	return c
}

func (c *BytesConverter) CanConvertFrom(kind Kind, ct *Content) bool {
	return kind == KindBytes && ct != nil
}

func (c *BytesConverter) ConvertFrom(_ Kind, ct *Content, out any) error {
	target, ok := out.(*[]byte)
	if !ok {
		return unexpectedTarget(out)
	}
	b, err := ct.Bytes()
	if err != nil {
		return err
	}
	*target = b
	return nil
}

func (c *BytesConverter) CanConvertTo(kind Kind, _ string) bool {
	return kind == KindBytes
}

func (c *BytesConverter) ConvertTo(_ Kind, contentType string, v any) (*Content, error) {
	var b []byte
	switch t := v.(type) {
	case []byte:
		b = t
	case *[]byte:
		b = *t
	default:
		return nil, fmt.Errorf("unexpected source type %T", v)
	}
	if contentType == "" {
		contentType = octetStream
	}
	return New(contentType, b), nil
}

func (c *BytesConverter) AddAcceptHeaders(kind Kind, h http.Header) {
	if kind == KindBytes {
		addAccept(h, "*/*", 100)
	}
}

// StreamConverter hands the body through as a reader. Deserialized streams
// are owned by the caller.
type StreamConverter struct {
	order int
}

// NewStreamConverter returns a StreamConverter with the default order.
func NewStreamConverter() *StreamConverter {
	return &StreamConverter{order: 0}
}

func (c *StreamConverter) Name() string { return "stream" }
func (c *StreamConverter) Order() int   { return c.order }

// WithOrder sets the resolution order. Call it before registering.
func (c *StreamConverter) WithOrder(order int) *StreamConverter {
	c.order = order
	return c
}

func (c *StreamConverter) CanConvertFrom(kind Kind, ct *Content) bool {
	return kind == KindStream && ct != nil
}

func (c *StreamConverter) ConvertFrom(_ Kind, ct *Content, out any) error {
	switch target := out.(type) {
	case *io.Reader:
		*target = ct.Reader()
	case *io.ReadCloser:
		r := ct.Reader()
		if rc, ok := r.(io.ReadCloser); ok {
			*target = rc
		} else {
			*target = io.NopCloser(r)
		}
	default:
		return unexpectedTarget(out)
	}
	return nil
}

func (c *StreamConverter) CanConvertTo(kind Kind, _ string) bool {
	return kind == KindStream
}

func (c *StreamConverter) ConvertTo(_ Kind, contentType string, v any) (*Content, error) {
	var r io.Reader
	switch t := v.(type) {
	case *io.Reader:
		r = *t
	case *io.ReadCloser:
		r = *t
	case io.Reader:
		r = t
	default:
		return nil, fmt.Errorf("unexpected source type %T", v)
	}
	if contentType == "" {
		contentType = octetStream
	}
	return NewStream(contentType, r), nil
}

func (c *StreamConverter) AddAcceptHeaders(kind Kind, h http.Header) {
	if kind == KindStream {
		addAccept(h, "*/*", 100)
	}
}
