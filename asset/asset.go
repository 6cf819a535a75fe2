// Package asset provides the tile images looked up by palette key.
package asset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"tilemosaic/quant"
)

var ErrAssetFetch = errors.New("tile asset fetch failed")

// FetchError reports the key whose asset could not be fetched.
type FetchError struct {
	Key quant.Key
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("could not fetch tile %q: %v", string(e.Key), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrAssetFetch }

// Fetcher returns the tile image for a key.
type Fetcher interface {
	Fetch(ctx context.Context, key quant.Key) (image.Image, error)
}

type FetcherFunc func(ctx context.Context, key quant.Key) (image.Image, error)

func (f FetcherFunc) Fetch(ctx context.Context, key quant.Key) (image.Image, error) {
	return f(ctx, key)
}

// SourceSynth selects the synthesized tile source in Open.
const SourceSynth = "synth"

// Open resolves a tile source: "synth", an http(s) base URL, or a directory.
func Open(source, ext string, timeout time.Duration) (Fetcher, error) {
	switch {
	case source == "" || source == SourceSynth:
		return Synth{}, nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return &HTTP{
			BaseURL: source,
			Ext:     ext,
			Client:  &http.Client{Timeout: timeout},
		}, nil
	default:
		return NewDir(source, ext)
	}
}

func fileName(key quant.Key, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "png"
	}
	return string(key) + "." + ext
}
