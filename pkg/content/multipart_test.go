package content

import (
	"io"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiPart_Parts(t *testing.T) {
	mp := NewMultiPart().
		SetContent(2, "second").
		SetName(2, "b").
		SetContent(1, "first").
		SetName(1, "a").
		SetFilename(1, "a.txt").
		SetName(3, "no content")

	parts := mp.Parts()
	require.Len(t, parts, 2)
	assert.Equal(t, 1, parts[0].Order)
	assert.Equal(t, "a", parts[0].Name)
	assert.Equal(t, "a.txt", parts[0].Filename)
	assert.Equal(t, "b", parts[1].Name)
}

func TestMultiPart_Assemble(t *testing.T) {
	mp := NewMultiPart().
		SetContent(2, map[string]int{"n": 1}).
		SetName(2, "meta").
		SetContentType(2, "application/json").
		SetContent(1, []byte("binary")).
		SetName(1, "file").
		SetFilename(1, "blob.bin").
		SetHeaders(map[string]string{"X-Upload": "1"})

	c, err := mp.Assemble(DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-Upload": "1"}, mp.RequestHeaders())

	mt, params, err := mime.ParseMediaType(c.ContentType())
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mt)

	reader := multipart.NewReader(c.Reader(), params["boundary"])

	p1, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, `form-data; name="file"; filename="blob.bin"`, p1.Header.Get("Content-Disposition"))
	assert.Equal(t, "application/octet-stream", p1.Header.Get("Content-Type"))
	b, _ := io.ReadAll(p1)
	assert.Equal(t, "binary", string(b))

	p2, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "meta", p2.FormName())
	assert.Equal(t, "application/json", p2.Header.Get("Content-Type"))
	b, _ = io.ReadAll(p2)
	assert.JSONEq(t, `{"n":1}`, string(b))

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMultiPart_AssembleUnsupported(t *testing.T) {
	mp := NewMultiPart().SetContent(1, NewMultiPart().SetContent(1, "x"))
	_, err := mp.Assemble(DefaultRegistry())
	assert.Error(t, err)
}
