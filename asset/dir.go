package asset

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"tilemosaic/pixmap"
	"tilemosaic/quant"
)

// Dir reads tiles named <key>.<ext> from a directory.
type Dir struct {
	Root string
	Ext  string
}

func NewDir(root, ext string) (*Dir, error) {
	root, err := filepath.Abs(root)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(root); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("invalid tile directory %q: %w", root, err)
	}
	return &Dir{Root: root, Ext: ext}, nil
}

func (d *Dir) Fetch(ctx context.Context, key quant.Key) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}

	name := filepath.Join(d.Root, fileName(key, d.Ext))
	f, err := os.Open(name)
	if err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("could not close tile", "file", name, "error", closeErr)
		}
	}()

	img, _, err := pixmap.Decode(f)
	if err != nil {
		return nil, &FetchError{Key: key, Err: fmt.Errorf("%q: %w", name, err)}
	}
	return img, nil
}
