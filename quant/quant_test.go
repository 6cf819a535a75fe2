package quant

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestKeyOf(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		n       int
		want    Key
	}{
		{0, 0, 0, 16, "000000"},
		{255, 255, 255, 1, "000000"},
		{255, 255, 255, 2, "7f7f7f"},
		{255, 128, 0, 2, "7f7f00"},
		{255, 255, 255, 255, "fefefe"},
		{255, 0, 16, 256, "fe000f"},
		{160, 255, 16, 16, "9fef0f"},
	}
	for _, tt := range tests {
		got, err := KeyOf(tt.r, tt.g, tt.b, tt.n)
		if err != nil {
			t.Fatalf("KeyOf(%d, %d, %d, %d): %v", tt.r, tt.g, tt.b, tt.n, err)
		}
		if got != tt.want {
			t.Errorf("KeyOf(%d, %d, %d, %d) = %q, want %q", tt.r, tt.g, tt.b, tt.n, got, tt.want)
		}
	}
}

func TestKeyOf_InvalidPalette(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := KeyOf(1, 2, 3, n); !errors.Is(err, ErrInvalidPalette) {
			t.Errorf("KeyOf with n=%d: err = %v, want ErrInvalidPalette", n, err)
		}
	}
	if _, err := Pix(make([]uint8, 4), 0); !errors.Is(err, ErrInvalidPalette) {
		t.Errorf("Pix with n=0: err = %v, want ErrInvalidPalette", err)
	}
}

func TestKeyOf_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		r, g, b := uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256))
		n := 1 + rng.IntN(64)
		a, _ := KeyOf(r, g, b, n)
		c, _ := KeyOf(r, g, b, n)
		if a != c {
			t.Fatalf("KeyOf(%d, %d, %d, %d) not deterministic: %q != %q", r, g, b, n, a, c)
		}
	}
}

func TestReduce_PaletteBound(t *testing.T) {
	for n := 1; n <= 300; n++ {
		seen := make(map[uint8]bool)
		for c := range 256 {
			seen[Reduce(uint8(c), n)] = true
		}
		if len(seen) > n {
			t.Errorf("n=%d: %d distinct channel values", n, len(seen))
		}
	}
}

func TestParseKey(t *testing.T) {
	if k, err := ParseKey("a0ff10"); err != nil || k != "a0ff10" {
		t.Errorf("ParseKey(a0ff10) = %q, %v", k, err)
	}
	for _, s := range []string{"", "a0ff1", "A0FF10", "a0ff1g", "#a0ff1"} {
		if _, err := ParseKey(s); err == nil {
			t.Errorf("ParseKey(%q) succeeded, want error", s)
		}
	}

	got := Key("a0ff10").RGBA()
	if got.R != 0xa0 || got.G != 0xff || got.B != 0x10 || got.A != 0xff {
		t.Errorf("RGBA() = %v, want {a0 ff 10 ff}", got)
	}
}

func randomPix(n int) []uint8 {
	rng := rand.New(rand.NewPCG(7, 11))
	pix := make([]uint8, n*4)
	for i := range pix {
		pix[i] = uint8(rng.IntN(256))
	}
	return pix
}

func TestOffloaders_Agree(t *testing.T) {
	pix := randomPix(1237)
	want, err := Inline{}.Quantize(context.Background(), pix, 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, workers := range []int{1, 2, 3, 8, 0} {
		got, err := Worker{Workers: workers}.Quantize(context.Background(), pix, 5)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("workers=%d: keys mismatch (-inline +worker):\n%s", workers, diff)
		}
	}
}

func TestWorker_Timeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Worker{Timeout: time.Nanosecond}.Quantize(ctx, randomPix(1<<16), 4)
	if !errors.Is(err, ErrOffloadTimeout) {
		t.Errorf("err = %v, want ErrOffloadTimeout", err)
	}
}

func TestWorker_TimeoutWithLiveContext(t *testing.T) {
	_, err := Worker{Workers: 1, Timeout: time.Nanosecond}.Quantize(context.Background(), randomPix(1<<18), 4)
	if !errors.Is(err, ErrOffloadTimeout) {
		t.Errorf("err = %v, want ErrOffloadTimeout", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want it to wrap context.DeadlineExceeded", err)
	}
}

func TestSelect(t *testing.T) {
	if _, ok := Select(StrategyInline, 4, 0).(Inline); !ok {
		t.Error("inline strategy did not select Inline")
	}
	if _, ok := Select(StrategyParallel, 1, 0).(Worker); !ok {
		t.Error("parallel strategy did not select Worker")
	}
	if _, ok := Select(StrategyAuto, 1, 0).(Inline); !ok {
		t.Error("auto with one worker did not select Inline")
	}
}
