package palette

import (
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"

	"tilemosaic/quant"
)

// FromKeys turns tile keys into palette colors, skipping malformed keys.
func FromKeys(keys []quant.Key) color.Palette {
	pal := make(color.Palette, 0, len(keys))
	for _, k := range keys {
		if _, err := quant.ParseKey(string(k)); err != nil {
			continue
		}
		pal = append(pal, k.RGBA())
	}
	return pal
}

// Keys names every palette color by its tile key form.
func Keys(pal color.Palette) []quant.Key {
	keys := make([]quant.Key, len(pal))
	for i, col := range pal {
		c := color.NRGBAModel.Convert(col).(color.NRGBA)
		keys[i] = quant.Key(fmt.Sprintf("%02x%02x%02x", c.R, c.G, c.B))
	}
	return keys
}

type CLICmd struct {
	File string `arg:"" help:"RIFF PAL file to list" type:"existingfile"`
}

func (c *CLICmd) Run(out io.Writer) error {
	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("could not open palette %q: %w", c.File, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("could not close palette", "file", c.File, "error", closeErr)
		}
	}()

	pals, err := Decode(f)
	if err != nil {
		return fmt.Errorf("could not read palette %q: %w", c.File, err)
	}

	for i, pal := range pals {
		slog.Info("palette", "file", c.File, "index", i, "colors", len(pal))
		for _, k := range Keys(pal) {
			if _, err := fmt.Fprintln(out, k); err != nil {
				return err
			}
		}
	}
	return nil
}
