package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
)

var ErrEmptyImage = errors.New("empty image data")

// Sprite is a decoded sprite ready for display. Data always holds PNG bytes.
// A Sprite may be shared between callers and must not be mutated.
type Sprite struct {
	Width  int
	Height int
	Format string
	Data   []byte
}

type Decoder interface {
	Decode(data []byte) (*Sprite, error)
}

// StdDecoder decodes png, gif and jpeg without cgo. Non-PNG input is
// re-encoded to PNG.
type StdDecoder struct{}

func (StdDecoder) Decode(data []byte) (*Sprite, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	out := data
	if format != "png" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
		out = buf.Bytes()
	}

	bounds := img.Bounds()
	return &Sprite{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: "png",
		Data:   out,
	}, nil
}
