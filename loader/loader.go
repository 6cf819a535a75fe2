// Package loader fetches a batch of items with a bounded number of fetches in
// flight, failing the whole batch on the first error.
package loader

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultLimit is the in-flight ceiling used when Batch.Limit is not positive.
const DefaultLimit = 16

type FetchFunc[K, V any] func(ctx context.Context, key K) (V, error)

// DoneFunc receives the ordered results on success, or the first error.
type DoneFunc[V any] func(results []V, err error)

// Batch describes how to fetch one batch of keys.
type Batch[K, V any] struct {
	Limit int
	Fetch FetchFunc[K, V]
	// OnItem, if set, is called once per successful fetch, from the fetching
	// goroutine, before the batch completes. Calls are serialized and never
	// happen after done reported a failure. OnItem must not block.
	OnItem func(index int, key K, value V)
}

// Start fetches keys in the background and calls done exactly once. Fetches
// start in key order; a free slot is refilled with the next queued key. After
// the first failure no further fetch starts, the batch context is cancelled,
// and results of fetches still running are discarded.
func (b *Batch[K, V]) Start(ctx context.Context, keys []K, done DoneFunc[V]) {
	go b.run(ctx, keys, once(done))
}

// Run is the blocking form of Start.
func (b *Batch[K, V]) Run(ctx context.Context, keys []K) ([]V, error) {
	type outcome struct {
		results []V
		err     error
	}
	ch := make(chan outcome, 1)
	b.Start(ctx, keys, func(results []V, err error) {
		ch <- outcome{results, err}
	})
	o := <-ch
	return o.results, o.err
}

func (b *Batch[K, V]) run(parent context.Context, keys []K, done DoneFunc[V]) {
	limit := b.Limit
	if limit < 1 {
		limit = DefaultLimit
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex // guards failed and orders OnItem against done
		failed  bool
		tokens  = semaphore.NewWeighted(int64(limit))
		results = make([]V, len(keys))
	)

	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if !failed {
			failed = true
			cancel()
			done(nil, err)
		}
	}
	isFailed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return failed
	}

	for i, key := range keys {
		if err := tokens.Acquire(ctx, 1); err != nil {
			// Either a fetch failed and cancelled ctx, or the caller did.
			break
		}
		if isFailed() {
			tokens.Release(1)
			break
		}

		wg.Go(func() {
			defer tokens.Release(1)

			v, err := b.Fetch(ctx, key)
			if err != nil {
				fail(err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if failed {
				return
			}
			results[i] = v
			if b.OnItem != nil {
				b.OnItem(i, key, v)
			}
		})
	}
	wg.Wait()

	if isFailed() {
		return
	}
	if err := parent.Err(); err != nil {
		fail(err)
		return
	}
	done(results, nil)
}

// once makes done safe to call more than once; later calls are dropped.
func once[V any](done DoneFunc[V]) DoneFunc[V] {
	var o sync.Once
	return func(results []V, err error) {
		o.Do(func() { done(results, err) })
	}
}
