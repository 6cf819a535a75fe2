// Package pixmap lays a scaled image onto the tile grid and quantizes one
// color per grid cell.
package pixmap

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/samber/lo"
	"golang.org/x/image/draw"

	"tilemosaic/quant"
)

const (
	TileWidth  = 8
	TileHeight = 8
)

var ErrEmptySize = errors.New("scaled image has no pixels")

// Entry is one grid cell. X and Y are 1-based.
type Entry struct {
	Color quant.Key
	X, Y  int
}

// Map is the pixel map of one render pass. Entries are row-major.
type Map struct {
	Size    image.Point
	Grid    image.Point
	Entries []Entry
}

// Keys returns the distinct keys in order of first appearance.
func (m *Map) Keys() []quant.Key {
	return lo.Uniq(lo.Map(m.Entries, func(e Entry, _ int) quant.Key { return e.Color }))
}

// Rows groups entries by their row; Rows()[i] holds row i+1.
func (m *Map) Rows() [][]Entry {
	rows := make([][]Entry, m.Grid.Y)
	for _, e := range m.Entries {
		rows[e.Y-1] = append(rows[e.Y-1], e)
	}
	return rows
}

// GetSize returns the largest size with src's aspect ratio that fits surface.
func GetSize(src, surface image.Point) (image.Point, error) {
	if src.X < 1 || src.Y < 1 || surface.X < 1 || surface.Y < 1 {
		return image.Point{}, fmt.Errorf("%w: source %v, surface %v", ErrEmptySize, src, surface)
	}

	// surface.X / (src.X/src.Y) < surface.Y, cross-multiplied to stay exact.
	sw, sh := int64(surface.X), int64(surface.Y)
	w, h := int64(src.X), int64(src.Y)
	var size image.Point
	if sw*h < sh*w {
		size = image.Pt(surface.X, int(sw*h/w))
	} else {
		size = image.Pt(int(sh*w/h), surface.Y)
	}

	if size.X < 1 || size.Y < 1 {
		return image.Point{}, fmt.Errorf("%w: source %v does not fit surface %v", ErrEmptySize, src, surface)
	}
	return size, nil
}

// GetDimensions returns how many tiles cover size on each axis.
func GetDimensions(size image.Point) image.Point {
	return image.Pt(
		(size.X+TileWidth-1)/TileWidth,
		(size.Y+TileHeight-1)/TileHeight,
	)
}

// Builder produces pixel maps. The zero value samples with bilinear
// filtering and quantizes inline.
type Builder struct {
	Offloader quant.Offloader
	Scaler    draw.Scaler
}

// Build fits img into surface and builds its pixel map.
func (b Builder) Build(ctx context.Context, img image.Image, surface image.Point, n int) (*Map, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", quant.ErrInvalidPalette, n)
	}

	size, err := GetSize(img.Bounds().Size(), surface)
	if err != nil {
		return nil, err
	}
	grid := GetDimensions(size)

	entries, err := b.BuildPixelMap(ctx, grid, img, n)
	if err != nil {
		return nil, err
	}
	return &Map{Size: size, Grid: grid, Entries: entries}, nil
}

// BuildPixelMap samples img at tile resolution and quantizes every cell.
func (b Builder) BuildPixelMap(ctx context.Context, grid image.Point, img image.Image, n int) ([]Entry, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", quant.ErrInvalidPalette, n)
	}
	if grid.X < 1 || grid.Y < 1 {
		return nil, fmt.Errorf("%w: grid %v", ErrEmptySize, grid)
	}

	scaler := b.Scaler
	if scaler == nil {
		scaler = draw.BiLinear
	}
	off := b.Offloader
	if off == nil {
		off = quant.Inline{}
	}

	// NRGBA keeps color channels independent of alpha.
	cells := image.NewNRGBA(image.Rect(0, 0, grid.X, grid.Y))
	scaler.Scale(cells, cells.Bounds(), img, img.Bounds(), draw.Src, nil)

	keys, err := off.Quantize(ctx, cells.Pix, n)
	if err != nil {
		return nil, fmt.Errorf("could not quantize %v grid: %w", grid, err)
	}
	if len(keys) != grid.X*grid.Y {
		return nil, fmt.Errorf("quantizer returned %d keys for %d cells", len(keys), grid.X*grid.Y)
	}

	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{
			Color: k,
			X:     i%grid.X + 1,
			Y:     i/grid.X + 1,
		}
	}
	return entries, nil
}

// Scaler names a resampling filter.
type Scaler string

const (
	ScalerNearest    Scaler = "nearest"
	ScalerBilinear   Scaler = "bilinear"
	ScalerCatmullRom Scaler = "catmullrom"
)

// Interpolator resolves a filter name, defaulting to bilinear.
func (s Scaler) Interpolator() draw.Interpolator {
	switch s {
	case ScalerNearest:
		return draw.NearestNeighbor
	case ScalerCatmullRom:
		return draw.CatmullRom
	default:
		return draw.BiLinear
	}
}
