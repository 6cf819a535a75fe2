package generate

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"tilemosaic/asset"
	"tilemosaic/mosaic"
	"tilemosaic/output"
	"tilemosaic/palette"
	"tilemosaic/pixmap"
	"tilemosaic/quant"
	"tilemosaic/render"
)

type CLICmd struct {
	Input          string        `arg:"" help:"Source image" type:"existingfile"`
	Output         string        `short:"o" help:"Mosaic destination. Defaults to <input>-mosaic.png next to the input"`
	Format         string        `help:"Output format, inferred from the output extension when auto" enum:"auto,png,jpeg,gif,bmp,tiff" default:"auto"`
	Width          int           `help:"Surface width" default:"1024" env:"MOSAIC_WIDTH" group:"layout"`
	Height         int           `help:"Surface height" default:"768" env:"MOSAIC_HEIGHT" group:"layout"`
	Fill           string        `help:"Surface background: none, dominant, or #RGB[A] / #RRGGBB[AA]" default:"none" group:"layout"`
	Scaler         string        `help:"Downsampling filter" enum:"nearest,bilinear,catmullrom" default:"bilinear" group:"layout"`
	Palette        int           `help:"Buckets per color channel" default:"16" env:"MOSAIC_PALETTE" group:"palette"`
	PaletteOut     string        `help:"Write the distinct tile colors to this RIFF PAL file" group:"palette"`
	Offload        string        `help:"Quantization strategy" enum:"auto,inline,parallel" default:"auto" group:"palette"`
	Workers        int           `help:"Quantization goroutines, 0 for GOMAXPROCS" default:"0" group:"palette"`
	OffloadTimeout time.Duration `help:"Give up waiting for the quantization worker after this long, 0 to wait forever" default:"0s" group:"palette"`
	Tiles          string        `help:"Tile source: synth, a directory of <key>.<ext> files, or an http(s) base URL" default:"synth" env:"MOSAIC_TILES" group:"tiles"`
	TileExt        string        `help:"Tile file extension" default:"png" group:"tiles"`
	Shade          float64       `help:"Shading strength of synthesized tiles (0-1)" default:"0.15" group:"tiles"`
	Limit          int           `help:"Tile fetches in flight" default:"16" env:"MOSAIC_LIMIT" group:"tiles"`
	HTTPTimeout    time.Duration `help:"Per-request timeout for HTTP tile sources, 0 for none" default:"0s" group:"tiles"`

	fill mosaic.Fill
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	input, err := filepath.Abs(c.Input)
	if err != nil {
		return fmt.Errorf("invalid input path %q: %w", c.Input, err)
	}
	c.Input = input

	if c.Output == "" {
		ext := filepath.Ext(input)
		c.Output = strings.TrimSuffix(input, ext) + "-mosaic.png"
	}
	if _, err := output.FormatFor(c.Format, c.Output); err != nil {
		return err
	}

	switch {
	case c.Width < 1:
		return fmt.Errorf("invalid surface width: %d", c.Width)
	case c.Height < 1:
		return fmt.Errorf("invalid surface height: %d", c.Height)
	case c.Palette < 1:
		return fmt.Errorf("%w: %d", quant.ErrInvalidPalette, c.Palette)
	case c.Limit < 1:
		return fmt.Errorf("invalid fetch limit: %d", c.Limit)
	case c.Shade < 0 || c.Shade > 1:
		return fmt.Errorf("invalid shade: %g", c.Shade)
	}

	if c.fill, err = mosaic.ParseFill(c.Fill); err != nil {
		return err
	}
	return nil
}

func (c *CLICmd) Run(ctx context.Context) error {
	logger := slog.Default().With("file", c.Input)

	fetcher, err := c.fetcher()
	if err != nil {
		return err
	}

	gen := mosaic.New(mosaic.Config{
		Limit: c.Limit,
		Builder: pixmap.Builder{
			Offloader: quant.Select(quant.Strategy(c.Offload), c.Workers, c.OffloadTimeout),
			Scaler:    pixmap.Scaler(c.Scaler).Interpolator(),
		},
		Fetcher: fetcher,
		Fill:    c.fill,
		Logger:  logger,
	})

	src, err := os.Open(c.Input)
	if err != nil {
		return fmt.Errorf("could not open image %q: %w", c.Input, err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			logger.Error("could not close image", "error", closeErr)
		}
	}()

	surface := render.NewSurface(c.Width, c.Height)
	res, err := gen.Generate(ctx, src, surface, c.Palette)
	if err != nil {
		return fmt.Errorf("could not generate mosaic of %q: %w", c.Input, err)
	}

	format, err := output.FormatFor(c.Format, c.Output)
	if err != nil {
		return err
	}
	if err := output.Save(surface.Snapshot(), format, c.Output); err != nil {
		return err
	}
	logger.Info("saved mosaic", "dest", c.Output, "format", format, "keys", len(res.Keys), "tiles", res.Tiles)

	if c.PaletteOut != "" {
		if err := c.savePalette(res.Keys); err != nil {
			return err
		}
		logger.Info("saved palette", "dest", c.PaletteOut, "colors", len(res.Keys))
	}
	return nil
}

func (c *CLICmd) fetcher() (asset.Fetcher, error) {
	if c.Tiles == asset.SourceSynth {
		return asset.Synth{Shade: c.Shade}, nil
	}
	return asset.Open(c.Tiles, c.TileExt, c.HTTPTimeout)
}

func (c *CLICmd) savePalette(keys []quant.Key) (err error) {
	f, err := os.Create(c.PaletteOut)
	if err != nil {
		return fmt.Errorf("could not create palette %q: %w", c.PaletteOut, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("could not close palette %q: %w", c.PaletteOut, closeErr)
		}
	}()

	if err := palette.Encode(f, []color.Palette{palette.FromKeys(keys)}); err != nil {
		return fmt.Errorf("could not write palette %q: %w", c.PaletteOut, err)
	}
	return nil
}
