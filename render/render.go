// Package render paints a pixel map onto a surface one row at a time, as soon
// as every tile of the next row has its asset.
package render

import (
	"image"

	"tilemosaic/pixmap"
	"tilemosaic/quant"
)

// Painter is the paint primitive. (x, y) is the tile's top-left pixel.
type Painter interface {
	DrawTile(asset image.Image, x, y int)
}

// Renderer tracks which row is next. It is not safe for concurrent use; the
// goroutine that feeds it assets owns it.
type Renderer struct {
	rows   [][]pixmap.Entry
	assets map[quant.Key]image.Image
	row    int
	offset image.Point
	paint  Painter
	tiles  int

	// OnRow, if set, is called after a row was painted.
	OnRow func(row int)
}

// New prepares a renderer that centers m on a surface of the given size.
func New(m *pixmap.Map, surface image.Point, p Painter) *Renderer {
	return &Renderer{
		rows:   m.Rows(),
		assets: make(map[quant.Key]image.Image),
		row:    1,
		offset: surface.Sub(m.Size).Div(2),
		paint:  p,
	}
}

// Loaded records the asset of key and paints every row that became ready,
// returning how many rows were painted.
func (r *Renderer) Loaded(key quant.Key, asset image.Image) int {
	if _, ok := r.assets[key]; !ok {
		r.assets[key] = asset
	}
	return r.Advance()
}

// Advance paints ready rows in order, stopping at the first row still
// waiting for an asset. Calling it again without new assets paints nothing.
func (r *Renderer) Advance() int {
	painted := 0
	for !r.Done() && r.ready(r.row) {
		for _, e := range r.rows[r.row-1] {
			x := r.offset.X + (e.X-1)*pixmap.TileWidth
			y := r.offset.Y + (e.Y-1)*pixmap.TileHeight
			r.paint.DrawTile(r.assets[e.Color], x, y)
			r.tiles++
		}
		if r.OnRow != nil {
			r.OnRow(r.row)
		}
		r.row++
		painted++
	}
	return painted
}

func (r *Renderer) ready(row int) bool {
	for _, e := range r.rows[row-1] {
		if _, ok := r.assets[e.Color]; !ok {
			return false
		}
	}
	return true
}

// Row is the 1-based index of the next row to paint.
func (r *Renderer) Row() int {
	return r.row
}

// Done reports whether no row is left to paint.
func (r *Renderer) Done() bool {
	return r.row > len(r.rows) || len(r.rows[r.row-1]) == 0
}

// Tiles counts painted tiles.
func (r *Renderer) Tiles() int {
	return r.tiles
}

// Offset is where the scaled image's top-left corner lands on the surface.
func (r *Renderer) Offset() image.Point {
	return r.offset
}
