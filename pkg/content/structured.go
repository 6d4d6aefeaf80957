package content

import (
	"encoding/json"
	"encoding/xml"
	"net/http"

	"gopkg.in/yaml.v3"
)

// Default orders of the structured value converters. JSON wins ties when no
// content type is requested.
const (
	OrderJSON = 10
	OrderXML  = 20
	OrderYAML = 30
)

var (
	jsonTypes = []string{"application/json", "text/json"}
	xmlTypes  = []string{"application/xml", "text/xml"}
	yamlTypes = []string{"application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml"}
)

// JSONConverter encodes arbitrary values as JSON.
type JSONConverter struct {
	// Quality is the q value (percent) of the Accept entry.
	Quality int
	order   int
}

// NewJSONConverter returns a JSONConverter with OrderJSON.
func NewJSONConverter() *JSONConverter {
	return &JSONConverter{Quality: 100, order: OrderJSON}
}

func (c *JSONConverter) Name() string { return "json" }
func (c *JSONConverter) Order() int   { return c.order }

// WithOrder sets the resolution order. Call it before registering.
func (c *JSONConverter) WithOrder(order int) *JSONConverter {
	c.order = order
	return c
}

func (c *JSONConverter) CanConvertFrom(kind Kind, ct *Content) bool {
	return kind == KindValue && ct != nil && matchesAny(ct.MediaType(), jsonTypes, "+json")
}

func (c *JSONConverter) ConvertFrom(_ Kind, ct *Content, out any) error {
	return json.NewDecoder(ct.Reader()).Decode(out)
}

func (c *JSONConverter) CanConvertTo(kind Kind, contentType string) bool {
	return kind == KindValue && (contentType == "" || matchesAny(MediaType(contentType), jsonTypes, "+json"))
}

func (c *JSONConverter) ConvertTo(_ Kind, contentType string, v any) (*Content, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/json"
	}
	return New(contentType, b), nil
}

func (c *JSONConverter) AddAcceptHeaders(kind Kind, h http.Header) {
	if kind == KindValue {
		addAccept(h, "application/json", c.Quality)
	}
}

// XMLConverter encodes values with encoding/xml.
type XMLConverter struct {
	Quality int
	order   int
}

// NewXMLConverter returns an XMLConverter with OrderXML.
func NewXMLConverter() *XMLConverter {
	return &XMLConverter{Quality: 90, order: OrderXML}
}

func (c *XMLConverter) Name() string { return "xml" }
func (c *XMLConverter) Order() int   { return c.order }

// WithOrder sets the resolution order. Call it before registering.
func (c *XMLConverter) WithOrder(order int) *XMLConverter {
	c.order = order
	return c
}

func (c *XMLConverter) CanConvertFrom(kind Kind, ct *Content) bool {
	return kind == KindValue && ct != nil && matchesAny(ct.MediaType(), xmlTypes, "+xml")
}

func (c *XMLConverter) ConvertFrom(_ Kind, ct *Content, out any) error {
	return xml.NewDecoder(ct.Reader()).Decode(out)
}

func (c *XMLConverter) CanConvertTo(kind Kind, contentType string) bool {
	return kind == KindValue && contentType != "" && matchesAny(MediaType(contentType), xmlTypes, "+xml")
}

func (c *XMLConverter) ConvertTo(_ Kind, contentType string, v any) (*Content, error) {
	b, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return New(contentType, append([]byte(xml.Header), b...)), nil
}

func (c *XMLConverter) AddAcceptHeaders(kind Kind, h http.Header) {
	if kind == KindValue {
		addAccept(h, "application/xml", c.Quality)
	}
}

// YAMLConverter encodes values with yaml.v3.
type YAMLConverter struct {
	Quality int
	order   int
}

// NewYAMLConverter returns a YAMLConverter with OrderYAML.
func NewYAMLConverter() *YAMLConverter {
	return &YAMLConverter{Quality: 50, order: OrderYAML}
}

func (c *YAMLConverter) Name() string { return "yaml" }
func (c *YAMLConverter) Order() int   { return c.order }

// WithOrder sets the resolution order. Call it before registering.
func (c *YAMLConverter) WithOrder(order int) *YAMLConverter {
	c.order = order
	return c
}

func (c *YAMLConverter) CanConvertFrom(kind Kind, ct *Content) bool {
	return kind == KindValue && ct != nil && matchesAny(ct.MediaType(), yamlTypes, "+yaml")
}

func (c *YAMLConverter) ConvertFrom(_ Kind, ct *Content, out any) error {
	return yaml.NewDecoder(ct.Reader()).Decode(out)
}

func (c *YAMLConverter) CanConvertTo(kind Kind, contentType string) bool {
	return kind == KindValue && contentType != "" && matchesAny(MediaType(contentType), yamlTypes, "+yaml")
}

func (c *YAMLConverter) ConvertTo(_ Kind, contentType string, v any) (*Content, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return New(contentType, b), nil
}

func (c *YAMLConverter) AddAcceptHeaders(kind Kind, h http.Header) {
	if kind == KindValue {
		addAccept(h, "application/yaml", c.Quality)
	}
}
