package libvips

import (
	"fmt"

	"github.com/cshum/vipsgen/vips"

	"pokesprite/internal/imaging"
)

// Decoder decodes any format libvips understands and scales the result so
// its longest side equals Size, using nearest-neighbour sampling to keep
// pixel-art edges sharp. Size <= 0 keeps the native dimensions.
//
// vips.Startup must have been called before the first Decode.
type Decoder struct {
	Size int
}

func (d *Decoder) Decode(data []byte) (*imaging.Sprite, error) {
	if len(data) == 0 {
		return nil, imaging.ErrEmptyImage
	}

	img, err := vips.NewImageFromBuffer(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	defer img.Close()

	if scale := d.scaleFor(img.Width(), img.Height()); scale != 1 {
		opts := vips.DefaultResizeOptions()
		opts.Kernel = vips.KernelNearest
		if err := img.Resize(scale, opts); err != nil {
			return nil, fmt.Errorf("failed to resize: %w", err)
		}
	}

	pngOpts := vips.DefaultPngsaveBufferOptions()
	out, err := img.PngsaveBuffer(pngOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to export: %w", err)
	}

	return &imaging.Sprite{
		Width:  img.Width(),
		Height: img.Height(),
		Format: "png",
		Data:   out,
	}, nil
}

func (d *Decoder) scaleFor(width, height int) float64 {
	longest := width
	if height > longest {
		longest = height
	}
	if d.Size <= 0 || longest <= 0 || longest == d.Size {
		return 1
	}
	return float64(d.Size) / float64(longest)
}
