// Package output writes finished mosaics to disk.
package output

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var Formats = []string{"png", "jpeg", "gif", "bmp", "tiff"}

// FormatFor picks the output format: format itself unless it is "" or
// "auto", otherwise the format implied by the destination's extension.
func FormatFor(format, dest string) (string, error) {
	if format != "" && format != "auto" {
		return normalize(format)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(dest)), ".")
	if ext == "" {
		return "png", nil
	}
	return normalize(ext)
}

func normalize(format string) (string, error) {
	switch format {
	case "jpg":
		return "jpeg", nil
	case "tif":
		return "tiff", nil
	case "png", "jpeg", "gif", "bmp", "tiff":
		return format, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", format)
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	var err error
	switch format {
	case "gif":
		err = gif.Encode(w, img, nil)
	case "jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "png":
		enc := png.Encoder{
			CompressionLevel: png.BestCompression,
			BufferPool:       pngPool,
		}
		err = enc.Encode(w, img)
	case "bmp":
		err = bmp.Encode(w, img)
	case "tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("could not encode %s: %w", strings.ToUpper(format), err)
	}
	return nil
}

// Save writes img to dest through a temporary file in the same directory, so
// dest is either the complete old file or the complete new one.
func Save(img image.Image, format, dest string) (err error) {
	destDir, destName := filepath.Split(dest)
	if destDir == "" {
		destDir = "."
	}

	outFile, err := os.CreateTemp(destDir, destName+".*")
	if err != nil {
		return fmt.Errorf("could not create temporary destination for %q: %w", dest, err)
	}
	canRename := false
	defer func() {
		if defErr := outFile.Sync(); defErr != nil && err == nil {
			err = fmt.Errorf("could not flush temporary destination %q: %w", outFile.Name(), defErr)
		}
		if defErr := outFile.Close(); defErr != nil && err == nil {
			err = fmt.Errorf("could not close temporary destination %q: %w", outFile.Name(), defErr)
		}

		if canRename && err == nil {
			if defErr := os.Rename(outFile.Name(), dest); defErr != nil {
				err = fmt.Errorf("could not rename destination file %q: %w", dest, defErr)
			}
		}
		if err != nil {
			_ = os.Remove(outFile.Name())
		}
	}()

	if err = Encode(outFile, img, format); err != nil {
		return fmt.Errorf("could not write %q: %w", dest, err)
	}

	canRename = true
	return nil
}

type pngEncoderBufferPool struct {
	pool sync.Pool
}

func (p *pngEncoderBufferPool) Get() *png.EncoderBuffer {
	return p.pool.Get().(*png.EncoderBuffer)
}

func (p *pngEncoderBufferPool) Put(buf *png.EncoderBuffer) {
	p.pool.Put(buf)
}

var pngPool = &pngEncoderBufferPool{
	pool: sync.Pool{
		New: func() any {
			return &png.EncoderBuffer{}
		},
	},
}
