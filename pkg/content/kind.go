package content

import (
	"image"
	"io"
	"net/url"
)

// Kind tags the shape of a Go value for converter resolution.
type Kind int

const (
	// KindUnknown is reported for nil values.
	KindUnknown Kind = iota

	// KindRaw is a *Content that bypasses conversion.
	KindRaw

	// KindString is a string or *string.
	KindString

	// KindBytes is a []byte or *[]byte.
	KindBytes

	// KindStream is an io.Reader, or a pointer to an io.Reader / io.ReadCloser.
	KindStream

	// KindImage is an image.Image or *image.Image.
	KindImage

	// KindForm is url.Values or *url.Values.
	KindForm

	// KindValue is any other value; the media type picks the codec.
	KindValue

	// KindMultipart is a *MultiPart.
	KindMultipart
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindStream:
		return "stream"
	case KindImage:
		return "image"
	case KindForm:
		return "form"
	case KindValue:
		return "value"
	case KindMultipart:
		return "multipart"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of v. It accepts both values (for serialization)
// and pointers to targets (for deserialization).
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindUnknown
	case *Content, Content:
		return KindRaw
	case *MultiPart:
		return KindMultipart
	case string, *string:
		return KindString
	case []byte, *[]byte:
		return KindBytes
	case *io.Reader, *io.ReadCloser:
		return KindStream
	case image.Image, *image.Image:
		return KindImage
	case url.Values, *url.Values:
		return KindForm
	case io.Reader:
		return KindStream
	default:
		return KindValue
	}
}
