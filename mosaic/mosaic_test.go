package mosaic

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tilemosaic/asset"
	"tilemosaic/pixmap"
	"tilemosaic/quant"
	"tilemosaic/render"
)

// sourcePNG encodes a 16x16 image of sixteen 4x4 blocks cycling through the
// corners of the RGB cube.
func sourcePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			i := (y/4)*4 + x/4
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(255 * (i & 1)),
				G: uint8(255 * (i >> 1 & 1)),
				B: uint8(255 * (i >> 2 & 1)),
				A: 0xff,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type countingFetcher struct {
	mu    sync.Mutex
	calls map[quant.Key]int
}

func (f *countingFetcher) Fetch(ctx context.Context, key quant.Key) (image.Image, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[quant.Key]int)
	}
	f.calls[key]++
	f.mu.Unlock()
	return asset.Synth{}.Fetch(ctx, key)
}

func nearest() pixmap.Builder {
	return pixmap.Builder{Scaler: pixmap.ScalerNearest.Interpolator(), Offloader: quant.Worker{Workers: 2}}
}

func TestGenerate_EndToEnd(t *testing.T) {
	f := &countingFetcher{}
	g := New(Config{Builder: nearest(), Fetcher: f})
	s := render.NewSurface(32, 32)

	res, err := g.Generate(context.Background(), bytes.NewReader(sourcePNG(t)), s, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Grid != image.Pt(4, 4) || res.Size != image.Pt(32, 32) {
		t.Errorf("grid %v size %v, want 4x4 and 32x32", res.Grid, res.Size)
	}
	if res.Tiles != 16 || res.Rows != 4 {
		t.Errorf("tiles %d rows %d, want 16 and 4", res.Tiles, res.Rows)
	}
	if len(res.Keys) > 8 {
		t.Errorf("%d distinct keys, want at most 8", len(res.Keys))
	}
	for k, n := range f.calls {
		if n != 1 {
			t.Errorf("key %s fetched %d times", k, n)
		}
	}
	if len(f.calls) != len(res.Keys) {
		t.Errorf("fetched %d keys, want %d", len(f.calls), len(res.Keys))
	}

	img := s.Snapshot()
	for cy := range 4 {
		for cx := range 4 {
			i := cy*4 + cx
			v := func(bit int) uint8 { return uint8(0x7f * (i >> bit & 1)) }
			want := color.RGBA{R: v(0), G: v(1), B: v(2), A: 0xff}
			for _, p := range []image.Point{{cx * 8, cy * 8}, {cx*8 + 7, cy*8 + 7}} {
				if got := img.RGBAAt(p.X, p.Y); got != want {
					t.Errorf("cell (%d,%d) pixel %v = %v, want %v", cx+1, cy+1, p, got, want)
				}
			}
		}
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	src := sourcePNG(t)
	g := New(Config{Builder: nearest()})

	var shots [][]uint8
	for range 2 {
		s := render.NewSurface(50, 40)
		if _, err := g.Generate(context.Background(), bytes.NewReader(src), s, 3); err != nil {
			t.Fatal(err)
		}
		shots = append(shots, s.Snapshot().Pix)
	}
	if !bytes.Equal(shots[0], shots[1]) {
		t.Error("two identical passes produced different pixels")
	}
}

func TestGenerate_Centered(t *testing.T) {
	g := New(Config{Builder: nearest(), Fill: Fill{Color: color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}}})
	s := render.NewSurface(48, 32)
	if _, err := g.Generate(context.Background(), bytes.NewReader(sourcePNG(t)), s, 2); err != nil {
		t.Fatal(err)
	}
	img := s.Snapshot()
	if got := img.RGBAAt(3, 10); got != (color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}) {
		t.Errorf("margin pixel = %v, want fill", got)
	}
	// 32x32 mosaic centered on 48x32 starts at x = 8.
	if got := img.RGBAAt(8, 0); got != (color.RGBA{A: 0xff}) {
		t.Errorf("first tile pixel = %v, want black", got)
	}
}

func TestGenerate_InvalidPalette(t *testing.T) {
	s := render.NewSurface(32, 32)
	_, err := New(Config{}).Generate(context.Background(), bytes.NewReader(sourcePNG(t)), s, 0)
	if !errors.Is(err, ErrInvalidPalette) {
		t.Errorf("err = %v, want ErrInvalidPalette", err)
	}
	if s.Generation() != 0 {
		t.Error("surface was cleared by a rejected pass")
	}
}

func TestGenerate_DecodeError(t *testing.T) {
	s := render.NewSurface(32, 32)
	_, err := New(Config{}).Generate(context.Background(), strings.NewReader("GIF89a junk"), s, 4)
	if !errors.Is(err, ErrImageDecode) {
		t.Errorf("err = %v, want ErrImageDecode", err)
	}
	if s.Generation() != 0 {
		t.Error("surface was cleared by a rejected pass")
	}
}

func TestGenerate_FetchError(t *testing.T) {
	bad := quant.Key("7f7f7f")
	f := asset.FetcherFunc(func(ctx context.Context, key quant.Key) (image.Image, error) {
		if key == bad {
			return nil, errors.New("tile server down")
		}
		return asset.Synth{}.Fetch(ctx, key)
	})
	g := New(Config{Builder: nearest(), Fetcher: f, Limit: 1})
	res, err := g.Generate(context.Background(), bytes.NewReader(sourcePNG(t)), render.NewSurface(32, 32), 2)
	if !errors.Is(err, ErrAssetFetch) {
		t.Fatalf("err = %v, want ErrAssetFetch", err)
	}
	var fe *asset.FetchError
	if !errors.As(err, &fe) || fe.Key != bad {
		t.Errorf("err = %v, want FetchError for %s", err, bad)
	}
	if res == nil || res.Rows > 1 {
		t.Errorf("result = %+v, want at most the first row painted", res)
	}
}

func TestGenerate_StalePassDoesNotPaint(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	f := asset.FetcherFunc(func(ctx context.Context, key quant.Key) (image.Image, error) {
		once.Do(func() { close(started) })
		<-release
		return asset.Synth{}.Fetch(ctx, key)
	})
	g := New(Config{Builder: nearest(), Fetcher: f})
	s := render.NewSurface(32, 32)

	type outcome struct {
		res *Result
		err error
	}
	src := sourcePNG(t)
	done := make(chan outcome, 1)
	go func() {
		res, err := g.Generate(context.Background(), bytes.NewReader(src), s, 2)
		done <- outcome{res, err}
	}()

	<-started
	if got := RecomputeLayout(s, 32, 32); got != image.Pt(32, 32) {
		t.Errorf("RecomputeLayout = %v", got)
	}
	close(release)
	o := <-done
	if o.err != nil {
		t.Fatal(o.err)
	}
	if o.res.Dropped != 16 {
		t.Errorf("dropped %d paints, want 16", o.res.Dropped)
	}
	blank := make([]uint8, 32*32*4)
	if diff := cmp.Diff(blank, s.Snapshot().Pix); diff != "" {
		t.Error("stale pass painted onto the resized surface")
	}
}

func TestParseFill(t *testing.T) {
	tests := []struct {
		in   string
		want Fill
	}{
		{"", Fill{}},
		{"none", Fill{}},
		{"dominant", Fill{Dominant: true}},
		{"#f80", Fill{Color: color.RGBA{R: 0xff, G: 0x88, A: 0xff}}},
		{"#102030", Fill{Color: color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}}},
		{"#ff000080", Fill{Color: color.RGBA{R: 0x80, A: 0x80}}},
	}
	for _, tt := range tests {
		got, err := ParseFill(tt.in)
		if err != nil {
			t.Fatalf("ParseFill(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFill(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	for _, in := range []string{"red", "#12", "#gggggg"} {
		if _, err := ParseFill(in); err == nil {
			t.Errorf("ParseFill(%q) succeeded", in)
		}
	}
}

func TestFill_Dominant(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0x20, 0xc0, 0x40, 0xff
	}
	c := Fill{Dominant: true}.For(img)
	r, g, b, _ := c.RGBA()
	if g>>8 < 0xa0 || r>>8 > 0x60 || b>>8 > 0x80 {
		t.Errorf("dominant color = %v, want close to #20c040", c)
	}
}
