package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"

	"tilemosaic/generate"
	"tilemosaic/palette"
)

var cli struct {
	LogLevel  string `help:"Log level" enum:"debug,info,warn,error" default:"info" env:"MOSAIC_LOG_LEVEL"`
	LogFormat string `help:"Log format" enum:"text,json" default:"text" env:"MOSAIC_LOG_FORMAT"`

	Generate generate.CLICmd `cmd:"" help:"Render an image as a tile mosaic"`
	Palette  palette.CLICmd  `cmd:"" help:"List the colors of a RIFF PAL file as tile keys"`
}

func setupLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("tilemosaic"),
		kong.Description("Approximate images with mosaics of small color tiles."),
		kong.UsageOnError(),
	)

	if err := setupLogging(cli.LogLevel, cli.LogFormat); err != nil {
		kctx.FatalIfErrorf(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := kctx.Run(
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)
	if err != nil {
		slog.Error("command failed", "command", kctx.Command(), "error", err)
		stop()
		os.Exit(1)
	}
}
