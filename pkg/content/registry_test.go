package content

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConverter accepts every KindValue payload and records its label.
type stubConverter struct {
	label string
	order int
}

func (s *stubConverter) Name() string                          { return s.label }
func (s *stubConverter) Order() int                            { return s.order }
func (s *stubConverter) CanConvertFrom(k Kind, _ *Content) bool { return k == KindValue }
func (s *stubConverter) ConvertFrom(_ Kind, _ *Content, out any) error {
	*(out.(*string)) = s.label
	return nil
}
func (s *stubConverter) CanConvertTo(k Kind, _ string) bool { return k == KindValue }
func (s *stubConverter) ConvertTo(_ Kind, _ string, _ any) (*Content, error) {
	return New("text/plain", []byte(s.label)), nil
}
func (s *stubConverter) AddAcceptHeaders(k Kind, h http.Header) {
	if k == KindValue {
		h.Add("Accept", "application/"+s.label)
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("rejects the same instance twice", func(t *testing.T) {
		r := NewRegistry()
		c := &stubConverter{label: "a"}
		assert.True(t, r.Register(c))
		assert.False(t, r.Register(c))
		assert.Len(t, r.Converters(), 1)
	})

	t.Run("accepts distinct instances of the same type", func(t *testing.T) {
		r := NewRegistry()
		assert.True(t, r.Register(&stubConverter{label: "a"}))
		assert.True(t, r.Register(&stubConverter{label: "a"}))
		assert.Len(t, r.Converters(), 2)
	})

	t.Run("rejects nil", func(t *testing.T) {
		assert.False(t, NewRegistry().Register(nil))
	})
}

func TestRegistry_ResolutionOrder(t *testing.T) {
	t.Run("lowest order wins", func(t *testing.T) {
		r := NewRegistry(&stubConverter{label: "late", order: 20}, &stubConverter{label: "early", order: 10})

		conv, err := r.ResolveTo(KindValue, "")
		require.NoError(t, err)
		assert.Equal(t, "early", conv.Name())
	})

	t.Run("ties keep registration order", func(t *testing.T) {
		r := NewRegistry(&stubConverter{label: "first", order: 5}, &stubConverter{label: "second", order: 5})

		var out string
		require.NoError(t, r.Deserialize(KindValue, New("application/json", nil), &out))
		assert.Equal(t, "first", out)
	})

	t.Run("converters are listed in resolution order", func(t *testing.T) {
		r := NewRegistry(
			&stubConverter{label: "c", order: 3},
			&stubConverter{label: "a", order: 1},
			&stubConverter{label: "b", order: 1},
		)
		var names []string
		for _, c := range r.Converters() {
			names = append(names, c.Name())
		}
		assert.Equal(t, []string{"a", "b", "c"}, names)
	})

	t.Run("built-in converters can be reordered", func(t *testing.T) {
		r := NewRegistry(NewJSONConverter(), NewYAMLConverter().WithOrder(OrderJSON-1))
		require.Len(t, r.Converters(), 2)
		assert.Equal(t, "yaml", r.Converters()[0].Name())
		assert.Equal(t, OrderJSON-1, r.Converters()[0].Order())

		h := http.Header{}
		r.AddAcceptHeaders(KindValue, h)
		assert.Equal(t, []string{"application/yaml;q=0.5", "application/json"}, h.Values("Accept"))
	})
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.ResolveTo(KindValue, "application/json")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	var ute *UnsupportedTypeError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, Serialize, ute.Direction)
	assert.Equal(t, "application/json", ute.ContentType)
}

func TestRegistry_ConversionError(t *testing.T) {
	r := DefaultRegistry()

	var out map[string]any
	err := r.Deserialize(KindValue, New("application/json", []byte("{not json")), &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionFailed)

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "json", ce.Converter)
	assert.Equal(t, Deserialize, ce.Direction)
}

func TestRegistry_AddAcceptHeaders(t *testing.T) {
	t.Run("every converter contributes without dedup", func(t *testing.T) {
		r := NewRegistry(&stubConverter{label: "x"}, &stubConverter{label: "x"})
		h := http.Header{}
		r.AddAcceptHeaders(KindValue, h)
		assert.Equal(t, []string{"application/x", "application/x"}, h.Values("Accept"))
	})

	t.Run("default registry for structured values", func(t *testing.T) {
		h := http.Header{}
		DefaultRegistry().AddAcceptHeaders(KindValue, h)
		assert.Equal(t, []string{"application/json", "application/xml;q=0.9", "application/yaml;q=0.5"}, h.Values("Accept"))
	})

	t.Run("image quality becomes the q value", func(t *testing.T) {
		ic := NewImageConverter()
		ic.Quality = 75
		h := http.Header{}
		NewRegistry(ic).AddAcceptHeaders(KindImage, h)
		assert.Contains(t, h.Values("Accept"), "image/png;q=0.75")
		assert.Contains(t, h.Values("Accept"), "image/*;q=0.75")
	})

	t.Run("quality maps to q", func(t *testing.T) {
		tests := []struct {
			name    string
			quality int
			want    string
		}{
			{name: "full weight", quality: 100, want: "application/json"},
			{name: "above full weight", quality: 150, want: "application/json"},
			{name: "fraction", quality: 25, want: "application/json;q=0.25"},
			{name: "zero", quality: 0, want: "application/json;q=0"},
			{name: "negative clamps to zero", quality: -5, want: "application/json;q=0"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				jc := NewJSONConverter()
				jc.Quality = tt.quality
				h := http.Header{}
				NewRegistry(jc).AddAcceptHeaders(KindValue, h)
				assert.Equal(t, []string{tt.want}, h.Values("Accept"))
			})
		}
	})
}
