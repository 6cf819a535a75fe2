package parallel

import (
	"runtime"
	"sync"
)

// Pool runs submitted functions on a fixed set of goroutines. A pool with a
// single worker runs everything inline on the calling goroutine.
type Pool struct {
	wg      sync.WaitGroup
	work    chan func()
	workers int
	stop    func()
}

func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		workers: numWorkers,
		stop:    func() {},
	}

	if numWorkers > 1 {
		pool.work = make(chan func(), numWorkers)
		for range numWorkers {
			pool.wg.Go(func() {
				for f := range pool.work {
					f()
				}
			})
		}
		pool.stop = sync.OnceFunc(func() { close(pool.work) })
	}

	return pool
}

func (p *Pool) Workers() int {
	return p.workers
}

// Do queues f, or runs it immediately on an inline pool.
func (p *Pool) Do(f func()) {
	if p.work == nil {
		f()
		return
	}
	p.work <- f
}

// Wait stops accepting work and blocks until every queued function returned.
func (p *Pool) Wait() {
	p.stop()
	p.wg.Wait()
}

// Range splits [0, n) into at most numWorkers contiguous spans and calls fn
// once per span, returning after all spans are done.
func Range(n, numWorkers int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}

	pool := Start(numWorkers)
	parts := min(pool.Workers(), n)
	step := (n + parts - 1) / parts
	for lo := 0; lo < n; lo += step {
		hi := min(lo+step, n)
		pool.Do(func() { fn(lo, hi) })
	}
	pool.Wait()
}
