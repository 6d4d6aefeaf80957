package content

import (
	"net/http"
	"strconv"
)

// Converter translates between a Kind of Go value and a wire payload.
//
// Implementations must be safe for concurrent use once registered, unless
// they expose mutable settings (see ImageConverter), in which case mutating
// those settings is the caller's responsibility.
type Converter interface {
	// Name identifies the converter in logs and errors.
	Name() string

	// Order positions the converter during resolution; lower runs first.
	Order() int

	// CanConvertFrom reports whether the converter can decode c into a value
	// of the given kind.
	CanConvertFrom(kind Kind, c *Content) bool

	// ConvertFrom decodes c into out, which must be a pointer target.
	ConvertFrom(kind Kind, c *Content, out any) error

	// CanConvertTo reports whether the converter can encode a value of kind
	// as contentType. An empty contentType lets the converter pick.
	CanConvertTo(kind Kind, contentType string) bool

	// ConvertTo encodes v as contentType.
	ConvertTo(kind Kind, contentType string, v any) (*Content, error)

	// AddAcceptHeaders appends the media types the converter can decode into
	// kind to h.
	AddAcceptHeaders(kind Kind, h http.Header)
}

// addAccept appends an Accept entry with a quality value derived from a
// percentage. Quality of 100 or more omits the parameter; negative values
// are clamped to q=0.
func addAccept(h http.Header, mediaType string, qualityPercent int) {
	if qualityPercent >= 100 {
		h.Add("Accept", mediaType)
		return
	}
	if qualityPercent < 0 {
		qualityPercent = 0
	}
	q := strconv.FormatFloat(float64(qualityPercent)/100, 'f', -1, 64)
	h.Add("Accept", mediaType+";q="+q)
}
