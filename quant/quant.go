// Package quant reduces colors to a coarse per-channel palette and names the
// result with a hex key that doubles as a tile asset lookup key.
package quant

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultPaletteSize is used by callers when no palette size was given.
const DefaultPaletteSize = 16

var ErrInvalidPalette = errors.New("invalid palette size")

// Key is a quantized color encoded as six lowercase hex digits, RRGGBB.
type Key string

// Reduce maps a channel value onto one of n evenly spaced buckets and scales
// the bucket back to [0, 255]. Integer arithmetic keeps the result exact. The
// top bucket absorbs 255 so a channel never takes more than n values; as a
// consequence no n maps a channel to 255, so pure white is never a key.
func Reduce(c uint8, n int) uint8 {
	bucket := min(int(c)*n/255, n-1)
	return uint8(bucket * 255 / n)
}

// KeyOf quantizes (r, g, b) with palette size n.
func KeyOf(r, g, b uint8, n int) (Key, error) {
	if n < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPalette, n)
	}
	return keyOf(r, g, b, n), nil
}

func keyOf(r, g, b uint8, n int) Key {
	return Key(fmt.Sprintf("%02x%02x%02x", Reduce(r, n), Reduce(g, n), Reduce(b, n)))
}

// ParseKey validates s as a tile key.
func ParseKey(s string) (Key, error) {
	if len(s) != 6 {
		return "", fmt.Errorf("invalid key %q: want 6 hex digits", s)
	}
	for _, ch := range s {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return "", fmt.Errorf("invalid key %q: want lowercase hex", s)
		}
	}
	return Key(s), nil
}

// Color returns the color a key names.
func (k Key) Color() (colorful.Color, error) {
	if _, err := ParseKey(string(k)); err != nil {
		return colorful.Color{}, err
	}
	c, err := colorful.Hex("#" + string(k))
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid key %q: %w", string(k), err)
	}
	return c, nil
}

// RGBA is like Color but yields an opaque color.RGBA, black for a malformed key.
func (k Key) RGBA() color.RGBA {
	c, err := k.Color()
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func (k Key) String() string {
	return string(k)
}

// Pix quantizes a packed buffer of straight (non-premultiplied) RGBA, four
// bytes per pixel, into one key per pixel. The alpha byte is not used.
func Pix(pix []uint8, n int) ([]Key, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPalette, n)
	}
	if len(pix)%4 != 0 {
		return nil, fmt.Errorf("pixel buffer length %d is not a multiple of 4", len(pix))
	}

	keys := make([]Key, len(pix)/4)
	pixRange(pix, n, keys, 0, len(keys))
	return keys, nil
}

func pixRange(pix []uint8, n int, keys []Key, lo, hi int) {
	for i := lo; i < hi; i++ {
		p := pix[i*4 : i*4+4 : i*4+4]
		keys[i] = keyOf(p[0], p[1], p[2], n)
	}
}
