package pixmap

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/vp8l"
	_ "golang.org/x/image/webp"
)

var ErrImageDecode = errors.New("could not decode image")

// Decode reads any registered image format and returns the image with its
// format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrImageDecode, err)
	}
	if b := img.Bounds(); b.Dx() < 1 || b.Dy() < 1 {
		return nil, "", fmt.Errorf("%w: empty %s image", ErrImageDecode, format)
	}
	return img, format, nil
}
