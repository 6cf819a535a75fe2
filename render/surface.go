package render

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"golang.org/x/image/draw"

	"tilemosaic/pixmap"
)

// Surface is the output canvas. Every Clear or Resize starts a new
// generation; painters bound to an older generation stop painting.
type Surface struct {
	mu  sync.Mutex
	img *image.RGBA
	gen uint64
}

func NewSurface(width, height int) *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))}
}

func (s *Surface) Size() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img.Rect.Size()
}

func (s *Surface) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Resize replaces the canvas with a transparent one of the given size.
func (s *Surface) Resize(width, height int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.img = image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))
	s.gen++
	return s.gen
}

// Clear fills the canvas with fill, or makes it transparent when fill is nil.
func (s *Surface) Clear(fill color.Color) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fill == nil {
		clear(s.img.Pix)
	} else {
		draw.Draw(s.img, s.img.Rect, image.NewUniform(fill), image.Point{}, draw.Src)
	}
	s.gen++
	return s.gen
}

// Snapshot returns a copy of the canvas.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.img.Rect)
	copy(out.Pix, s.img.Pix)
	return out
}

// Painter returns a painter for the pass that started generation gen.
func (s *Surface) Painter(gen uint64) *PassPainter {
	return &PassPainter{surface: s, gen: gen}
}

// PassPainter draws tiles onto a surface while its generation is current.
type PassPainter struct {
	surface *Surface
	gen     uint64
	dropped atomic.Int64
}

// DrawTile paints asset into the tile cell whose top-left corner is (x, y),
// scaling it when it is not tile-sized.
func (p *PassPainter) DrawTile(asset image.Image, x, y int) {
	s := p.surface
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != p.gen {
		p.dropped.Add(1)
		return
	}

	dr := image.Rect(x, y, x+pixmap.TileWidth, y+pixmap.TileHeight)
	sr := asset.Bounds()
	if sr.Size() == dr.Size() {
		draw.Draw(s.img, dr, asset, sr.Min, draw.Over)
		return
	}
	draw.ApproxBiLinear.Scale(s.img, dr, asset, sr, draw.Over, nil)
}

// Dropped counts paints refused because the surface moved on.
func (p *PassPainter) Dropped() int64 {
	return p.dropped.Load()
}
