package content

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"
)

// Image formats understood by ImageConverter.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatGIF  = "gif"
)

var imageTypes = map[string]string{
	"image/png":  FormatPNG,
	"image/jpeg": FormatJPEG,
	"image/jpg":  FormatJPEG,
	"image/gif":  FormatGIF,
}

// ImageConverter encodes and decodes png, jpeg and gif images.
//
// Format and Quality may be changed after registration. They are shared by
// every request using the registry; synchronising changes is up to the
// caller.
type ImageConverter struct {
	// Format is used when serializing without an explicit image content type.
	Format string

	// Quality is the JPEG quality (1-100). It also sets the q value of the
	// Accept entries, divided by 100.
	Quality int

	order int
}

// NewImageConverter returns a png ImageConverter with quality 80.
func NewImageConverter() *ImageConverter {
	return &ImageConverter{Format: FormatPNG, Quality: 80, order: 0}
}

func (c *ImageConverter) Name() string { return "image" }
func (c *ImageConverter) Order() int   { return c.order }

// WithOrder sets the resolution order. Call it before registering.
func (c *ImageConverter) WithOrder(order int) *ImageConverter {
	c.order = order
	return c
}

func (c *ImageConverter) CanConvertFrom(kind Kind, ct *Content) bool {
	if kind != KindImage || ct == nil {
		return false
	}
	mt := ct.MediaType()
	_, known := imageTypes[mt]
	return known || strings.HasPrefix(mt, "image/")
}

func (c *ImageConverter) ConvertFrom(_ Kind, ct *Content, out any) error {
	target, ok := out.(*image.Image)
	if !ok {
		return unexpectedTarget(out)
	}
	img, _, err := image.Decode(ct.Reader())
	if err != nil {
		return err
	}
	*target = img
	return nil
}

func (c *ImageConverter) CanConvertTo(kind Kind, contentType string) bool {
	if kind != KindImage {
		return false
	}
	if contentType == "" {
		return true
	}
	_, ok := imageTypes[MediaType(contentType)]
	return ok
}

func (c *ImageConverter) ConvertTo(_ Kind, contentType string, v any) (*Content, error) {
	var img image.Image
	switch t := v.(type) {
	case *image.Image:
		img = *t
	case image.Image:
		img = t
	default:
		return nil, fmt.Errorf("unexpected source type %T", v)
	}

	format := c.Format
	if contentType != "" {
		format = imageTypes[MediaType(contentType)]
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality()})
	case FormatGIF:
		err = gif.Encode(&buf, img, nil)
	case FormatPNG, "":
		format = FormatPNG
		err = png.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return New("image/"+format, buf.Bytes()), nil
}

func (c *ImageConverter) AddAcceptHeaders(kind Kind, h http.Header) {
	if kind != KindImage {
		return
	}
	q := c.quality()
	for _, mt := range []string{"image/png", "image/jpeg", "image/gif", "image/*"} {
		addAccept(h, mt, q)
	}
}

func (c *ImageConverter) quality() int {
	switch {
	case c.Quality <= 0:
		return jpeg.DefaultQuality
	case c.Quality > 100:
		return 100
	default:
		return c.Quality
	}
}
