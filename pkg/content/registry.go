package content

import (
	"errors"
	"net/http"
	"reflect"
	"sort"
	"sync"
)

// Registry is an ordered set of converters. It is read-mostly and safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	converters []Converter
}

// NewRegistry returns a registry holding the given converters.
func NewRegistry(converters ...Converter) *Registry {
	r := &Registry{}
	for _, c := range converters {
		r.Register(c)
	}
	return r
}

// DefaultRegistry returns a registry with fresh instances of all built-in
// converters.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewStringConverter(),
		NewBytesConverter(),
		NewStreamConverter(),
		NewFormConverter(),
		NewImageConverter(),
		NewJSONConverter(),
		NewXMLConverter(),
		NewYAMLConverter(),
	)
}

// Register adds c to the registry. It returns false when the same instance is
// already registered.
func (r *Registry) Register(c Converter) bool {
	if c == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.converters {
		if sameConverter(existing, c) {
			return false
		}
	}
	r.converters = append(r.converters, c)
	sort.SliceStable(r.converters, func(i, j int) bool {
		return r.converters[i].Order() < r.converters[j].Order()
	})
	return true
}

// Converters returns a snapshot of the registered converters in resolution
// order.
func (r *Registry) Converters() []Converter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Converter, len(r.converters))
	copy(out, r.converters)
	return out
}

// ResolveFrom returns the first converter able to decode c into kind.
func (r *Registry) ResolveFrom(kind Kind, c *Content) (Converter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conv := range r.converters {
		if conv.CanConvertFrom(kind, c) {
			return conv, nil
		}
	}
	return nil, &UnsupportedTypeError{Kind: kind, ContentType: c.ContentType(), Direction: Deserialize}
}

// ResolveTo returns the first converter able to encode kind as contentType.
func (r *Registry) ResolveTo(kind Kind, contentType string) (Converter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conv := range r.converters {
		if conv.CanConvertTo(kind, contentType) {
			return conv, nil
		}
	}
	return nil, &UnsupportedTypeError{Kind: kind, ContentType: contentType, Direction: Serialize}
}

// Deserialize decodes c into out using the first matching converter.
func (r *Registry) Deserialize(kind Kind, c *Content, out any) error {
	conv, err := r.ResolveFrom(kind, c)
	if err != nil {
		return err
	}
	if err := conv.ConvertFrom(kind, c, out); err != nil {
		return wrapConversion(conv, kind, Deserialize, err)
	}
	return nil
}

// Serialize encodes v as contentType using the first matching converter.
func (r *Registry) Serialize(kind Kind, contentType string, v any) (*Content, error) {
	conv, err := r.ResolveTo(kind, contentType)
	if err != nil {
		return nil, err
	}
	c, err := conv.ConvertTo(kind, contentType, v)
	if err != nil {
		return nil, wrapConversion(conv, kind, Serialize, err)
	}
	return c, nil
}

// AddAcceptHeaders asks every converter to contribute Accept entries for
// kind. Entries are not deduplicated.
func (r *Registry) AddAcceptHeaders(kind Kind, h http.Header) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conv := range r.converters {
		conv.AddAcceptHeaders(kind, h)
	}
}

func wrapConversion(conv Converter, kind Kind, dir Direction, err error) error {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return err
	}
	return &ConversionError{Converter: conv.Name(), Kind: kind, Direction: dir, Err: err}
}

// sameConverter compares converter identity without panicking on
// non-comparable implementations.
func sameConverter(a, b Converter) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
