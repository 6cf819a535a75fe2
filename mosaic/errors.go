package mosaic

import (
	"tilemosaic/asset"
	"tilemosaic/pixmap"
	"tilemosaic/quant"
)

var (
	ErrInvalidPalette = quant.ErrInvalidPalette
	ErrImageDecode    = pixmap.ErrImageDecode
	ErrAssetFetch     = asset.ErrAssetFetch
	ErrOffloadTimeout = quant.ErrOffloadTimeout
)
