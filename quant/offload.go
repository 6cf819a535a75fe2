package quant

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"tilemosaic/parallel"
)

var ErrOffloadTimeout = errors.New("quantization offload did not reply")

// Offloader quantizes a whole packed straight-alpha RGBA buffer, returning keys in pixel order.
type Offloader interface {
	Quantize(ctx context.Context, pix []uint8, n int) ([]Key, error)
}

// Inline quantizes on the calling goroutine.
type Inline struct{}

func (Inline) Quantize(_ context.Context, pix []uint8, n int) ([]Key, error) {
	return Pix(pix, n)
}

// Worker quantizes on a separate goroutine. The buffer is copied before it is
// handed over and the goroutine answers with exactly one reply, so nothing is
// shared with the caller while the request is in flight.
type Worker struct {
	// Workers splits the pass across this many goroutines; < 1 means GOMAXPROCS.
	Workers int
	// Timeout bounds the wait for the reply; zero waits for ctx only.
	Timeout time.Duration
}

func (w Worker) Quantize(ctx context.Context, pix []uint8, n int) ([]Key, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPalette, n)
	}
	if len(pix)%4 != 0 {
		return nil, fmt.Errorf("pixel buffer length %d is not a multiple of 4", len(pix))
	}

	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	msg := append([]uint8(nil), pix...)
	out := make(chan []Key, 1)
	go func() {
		keys := make([]Key, len(msg)/4)
		parallel.Range(len(keys), w.Workers, func(lo, hi int) {
			pixRange(msg, n, keys, lo, hi)
		})
		out <- keys
	}()

	select {
	case keys := <-out:
		return keys, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrOffloadTimeout, ctx.Err())
	}
}

// Strategy names an offload implementation.
type Strategy string

const (
	StrategyAuto     Strategy = "auto"
	StrategyInline   Strategy = "inline"
	StrategyParallel Strategy = "parallel"
)

// Select picks an Offloader. Auto uses the parallel worker only when the
// runtime can actually run more than one goroutine at a time.
func Select(s Strategy, workers int, timeout time.Duration) Offloader {
	switch s {
	case StrategyInline:
		return Inline{}
	case StrategyParallel:
		return Worker{Workers: workers, Timeout: timeout}
	}
	if runtime.GOMAXPROCS(0) > 1 && workers != 1 {
		return Worker{Workers: workers, Timeout: timeout}
	}
	return Inline{}
}
