// Package mosaic turns an image into a tile mosaic painted onto a surface.
package mosaic

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"tilemosaic/asset"
	"tilemosaic/loader"
	"tilemosaic/pixmap"
	"tilemosaic/quant"
	"tilemosaic/render"
)

type Config struct {
	// Limit caps tile fetches in flight; < 1 means loader.DefaultLimit.
	Limit   int
	Builder pixmap.Builder
	// Fetcher defaults to synthesized tiles.
	Fetcher asset.Fetcher
	Fill    Fill
	Logger  *slog.Logger
}

type Generator struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config) *Generator {
	if cfg.Fetcher == nil {
		cfg.Fetcher = asset.Synth{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Generator{cfg: cfg, log: log}
}

// Result describes a finished, or failed, pass.
type Result struct {
	Generation uint64
	Format     string
	Size       image.Point
	Grid       image.Point
	Keys       []quant.Key
	Rows       int
	Tiles      int
	// Dropped counts paints refused because a newer pass took the surface.
	Dropped int64
}

type loaded struct {
	key   quant.Key
	asset image.Image
}

// Generate decodes r, builds its pixel map for the surface's current size and
// paints tiles row by row as their assets arrive. Palette and decode errors
// return before the surface is touched. A fetch failure stops the pass;
// rows painted before it stay on the surface.
func (g *Generator) Generate(ctx context.Context, r io.Reader, s *render.Surface, paletteSize int) (*Result, error) {
	if paletteSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPalette, paletteSize)
	}

	img, format, err := pixmap.Decode(r)
	if err != nil {
		return nil, err
	}

	surface := s.Size()
	m, err := g.cfg.Builder.Build(ctx, img, surface, paletteSize)
	if err != nil {
		return nil, err
	}

	gen := s.Clear(g.cfg.Fill.For(img))
	painter := s.Painter(gen)
	logger := g.log.With("pass", gen)

	res := &Result{
		Generation: gen,
		Format:     format,
		Size:       m.Size,
		Grid:       m.Grid,
		Keys:       m.Keys(),
	}
	logger.Info("mosaic layout", "format", format, "surface", surface, "size", m.Size,
		"grid", m.Grid, "tiles", len(m.Entries), "keys", len(res.Keys))

	rn := render.New(m, surface, painter)
	rn.OnRow = func(row int) {
		logger.Debug("row painted", "row", row)
	}

	events := make(chan loaded, len(res.Keys))
	finished := make(chan error, 1)
	batch := &loader.Batch[quant.Key, image.Image]{
		Limit: g.cfg.Limit,
		Fetch: g.fetch,
		OnItem: func(_ int, key quant.Key, a image.Image) {
			events <- loaded{key, a}
		},
	}
	batch.Start(ctx, res.Keys, func(_ []image.Image, err error) {
		finished <- err
	})

	report := func() {
		res.Rows = rn.Row() - 1
		res.Tiles = rn.Tiles()
		res.Dropped = painter.Dropped()
	}

	for {
		select {
		case ev := <-events:
			rn.Loaded(ev.key, ev.asset)
		case err := <-finished:
			if err != nil {
				report()
				logger.Error("tile fetch failed", "rows", res.Rows, "error", err)
				return res, err
			}
			for len(events) > 0 {
				ev := <-events
				rn.Loaded(ev.key, ev.asset)
			}
			report()
			if !rn.Done() {
				return res, fmt.Errorf("mosaic stalled at row %d of %d", rn.Row(), m.Grid.Y)
			}
			if res.Dropped > 0 {
				logger.Debug("stale paints dropped", "count", res.Dropped)
			}
			logger.Info("mosaic painted", "rows", res.Rows, "tiles", res.Tiles)
			return res, nil
		}
	}
}

func (g *Generator) fetch(ctx context.Context, key quant.Key) (image.Image, error) {
	a, err := g.cfg.Fetcher.Fetch(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrAssetFetch) {
			err = &asset.FetchError{Key: key, Err: err}
		}
		return nil, err
	}
	if a == nil {
		return nil, &asset.FetchError{Key: key, Err: errors.New("no image")}
	}
	return a, nil
}

// RecomputeLayout resizes the surface. It does not start a new pass; any pass
// still painting onto s stops painting.
func RecomputeLayout(s *render.Surface, width, height int) image.Point {
	s.Resize(width, height)
	return s.Size()
}
