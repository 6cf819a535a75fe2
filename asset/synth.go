package asset

import (
	"context"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"tilemosaic/pixmap"
	"tilemosaic/quant"
)

// Synth renders each key as a solid tile, shaded from a lighter top-left to a
// darker bottom-right corner when Shade is non-zero.
type Synth struct {
	Size  image.Point
	Shade float64
}

var (
	white = colorful.Color{R: 1, G: 1, B: 1}
	black = colorful.Color{}
)

func (s Synth) Fetch(ctx context.Context, key quant.Key) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}
	base, err := key.Color()
	if err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}

	size := s.Size
	if size.X < 1 || size.Y < 1 {
		size = image.Pt(pixmap.TileWidth, pixmap.TileHeight)
	}
	tile := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))

	span := float64(size.X + size.Y - 2)
	for y := range size.Y {
		for x := range size.X {
			c := base
			if s.Shade != 0 && span > 0 {
				// t runs from -1 at the top-left to 1 at the bottom-right.
				t := 2*float64(x+y)/span - 1
				if t < 0 {
					c = base.BlendLab(white, -t*s.Shade)
				} else {
					c = base.BlendLab(black, t*s.Shade)
				}
			}
			r, g, b := c.Clamped().RGB255()
			tile.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xff})
		}
	}
	return tile, nil
}
