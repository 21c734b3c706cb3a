package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStdDecoder_PNG(t *testing.T) {
	data := encodePNG(t, 96, 64)

	sprite, err := StdDecoder{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 96, sprite.Width)
	assert.Equal(t, 64, sprite.Height)
	assert.Equal(t, "png", sprite.Format)
	assert.Equal(t, data, sprite.Data)
}

func TestStdDecoder_ReencodesGIF(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))

	sprite, err := StdDecoder{}.Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", sprite.Format)

	_, format, err := image.DecodeConfig(bytes.NewReader(sprite.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestStdDecoder_Garbage(t *testing.T) {
	_, err := StdDecoder{}.Decode([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestStdDecoder_Empty(t *testing.T) {
	_, err := StdDecoder{}.Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}
