package mosaic

import (
	"fmt"
	"image"
	"image/color"

	"github.com/cenkalti/dominantcolor"
)

// FillDominant asks for the source image's dominant color as background.
const FillDominant = "dominant"

// Fill is the background a pass clears the surface with.
type Fill struct {
	Color    color.Color
	Dominant bool
}

// ParseFill accepts "", "none", "dominant", #RGB, #RGBA, #RRGGBB or #RRGGBBAA.
func ParseFill(s string) (Fill, error) {
	switch s {
	case "", "none":
		return Fill{}, nil
	case FillDominant:
		return Fill{Dominant: true}, nil
	}
	c, err := parseHexToColor(s)
	if err != nil {
		return Fill{}, err
	}
	return Fill{Color: c}, nil
}

// For resolves the fill against the image being rendered; nil means
// transparent.
func (f Fill) For(img image.Image) color.Color {
	if f.Dominant {
		return dominantcolor.Find(img)
	}
	return f.Color
}

func parseHexToColor(s string) (color.Color, error) {
	var c color.RGBA
	var n int
	var err error
	switch len(s) {
	case 4:
		n, err = fmt.Sscanf(s, "#%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R |= c.R << 4
		c.G |= c.G << 4
		c.B |= c.B << 4
		c.A = 0xff
	case 5:
		n, err = fmt.Sscanf(s, "#%1x%1x%1x%1x", &c.R, &c.G, &c.B, &c.A)
		c.R |= c.R << 4
		c.G |= c.G << 4
		c.B |= c.B << 4
		c.A |= c.A << 4
	case 7:
		n, err = fmt.Sscanf(s, "#%2x%2x%2x", &c.R, &c.G, &c.B)
		c.A = 0xff
	case 9:
		n, err = fmt.Sscanf(s, "#%2x%2x%2x%2x", &c.R, &c.G, &c.B, &c.A)
	default:
		return nil, fmt.Errorf("invalid fill color %q, should be #RGB, #RGBA, #RRGGBB, #RRGGBBAA or %s", s, FillDominant)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read fill color %q: %w", s, err)
	} else if n < 3 {
		return nil, fmt.Errorf("insufficient fill color fields in %q: %d", s, n)
	}

	// color.RGBA is alpha-premultiplied.
	if c.A != 0xff {
		c.R = uint8(uint16(c.R) * uint16(c.A) / 0xff)
		c.G = uint8(uint16(c.G) * uint16(c.A) / 0xff)
		c.B = uint8(uint16(c.B) * uint16(c.A) / 0xff)
	}
	return c, nil
}
