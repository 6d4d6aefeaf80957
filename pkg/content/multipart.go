package content

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
)

type partRole int

const (
	roleContent partRole = iota
	roleContentType
	roleName
	roleFilename
)

type partField struct {
	order int
	role  partRole
	value any
}

// Part is one assembled section of a multipart body.
type Part struct {
	Order       int
	Name        string
	Filename    string
	ContentType string
	Value       any
}

// MultiPart collects the fields of a multipart/form-data body. Fields are
// grouped by their order number; each group becomes one part and parts are
// emitted in ascending order.
//
//	mp := content.NewMultiPart().
//		SetName(1, "file").
//		SetFilename(1, "photo.png").
//		SetContent(1, img)
type MultiPart struct {
	fields  []partField
	headers map[string]string
}

// NewMultiPart returns an empty builder.
func NewMultiPart() *MultiPart {
	return &MultiPart{}
}

// SetContent sets the value of part order.
func (m *MultiPart) SetContent(order int, v any) *MultiPart {
	return m.add(order, roleContent, v)
}

// SetContentType sets the content type of part order.
func (m *MultiPart) SetContentType(order int, contentType string) *MultiPart {
	return m.add(order, roleContentType, contentType)
}

// SetName sets the form field name of part order.
func (m *MultiPart) SetName(order int, name string) *MultiPart {
	return m.add(order, roleName, name)
}

// SetFilename sets the filename of part order.
func (m *MultiPart) SetFilename(order int, filename string) *MultiPart {
	return m.add(order, roleFilename, filename)
}

// SetHeaders merges h into the headers copied onto the outer request.
func (m *MultiPart) SetHeaders(h map[string]string) *MultiPart {
	if m.headers == nil {
		m.headers = make(map[string]string, len(h))
	}
	for k, v := range h {
		m.headers[k] = v
	}
	return m
}

// RequestHeaders returns the headers destined for the outer request.
func (m *MultiPart) RequestHeaders() map[string]string {
	return m.headers
}

func (m *MultiPart) add(order int, role partRole, v any) *MultiPart {
	m.fields = append(m.fields, partField{order: order, role: role, value: v})
	return m
}

// Parts groups the fields by order. Groups without content are skipped; later
// fields in the same group override earlier ones.
func (m *MultiPart) Parts() []Part {
	groups := make(map[int]*Part)
	for _, f := range m.fields {
		p, ok := groups[f.order]
		if !ok {
			p = &Part{Order: f.order}
			groups[f.order] = p
		}
		switch f.role {
		case roleContent:
			p.Value = f.value
		case roleContentType:
			p.ContentType, _ = f.value.(string)
		case roleName:
			p.Name, _ = f.value.(string)
		case roleFilename:
			p.Filename, _ = f.value.(string)
		}
	}

	orders := make([]int, 0, len(groups))
	for o, p := range groups {
		if p.Value != nil {
			orders = append(orders, o)
		}
	}
	sort.Ints(orders)

	parts := make([]Part, 0, len(orders))
	for _, o := range orders {
		p := groups[o]
		if p.Name == "" {
			p.Name = fmt.Sprintf("part%d", o)
		}
		parts = append(parts, *p)
	}
	return parts
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Assemble serializes every part through r and writes a multipart/form-data
// body. The returned Content carries the boundary in its Content-Type.
func (m *MultiPart) Assemble(r *Registry) (*Content, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range m.Parts() {
		body, err := serializePart(r, p)
		if err != nil {
			return nil, fmt.Errorf("multipart part %d (%s): %w", p.Order, p.Name, err)
		}

		disposition := fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(p.Name))
		if p.Filename != "" {
			disposition += fmt.Sprintf(`; filename="%s"`, quoteEscaper.Replace(p.Filename))
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", disposition)
		ct := p.ContentType
		if ct == "" {
			ct = body.ContentType()
		}
		if ct != "" {
			h.Set("Content-Type", ct)
		}

		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(pw, body.Reader()); err != nil {
			return nil, fmt.Errorf("multipart part %d (%s): %w", p.Order, p.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return New(w.FormDataContentType(), buf.Bytes()), nil
}

func serializePart(r *Registry, p Part) (*Content, error) {
	kind := KindOf(p.Value)
	switch kind {
	case KindRaw:
		if c, ok := p.Value.(*Content); ok {
			return c, nil
		}
		c := p.Value.(Content)
		return &c, nil
	case KindMultipart:
		return nil, fmt.Errorf("nested multipart bodies are not supported")
	}
	return r.Serialize(kind, p.ContentType, p.Value)
}
