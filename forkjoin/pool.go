// Package forkjoin provides a bounded worker pool with recursive fork-join
// Map and MapReduce primitives.
//
// A goroutine that joins a forked task keeps running queued tasks until the
// task it waits for is done, so Map and MapReduce may be called again from
// inside a leaf function (nested parallelism) without exhausting the pool.
package forkjoin

import (
	"errors"
	"runtime"
	"sync"
)

var (
	ErrClosed = errors.New("forkjoin: pool is closed")
	ErrPanic  = errors.New("forkjoin: leaf function panicked")
)

type Config struct {
	// Workers is the number of worker goroutines. <= 0 means GOMAXPROCS.
	Workers int
	// Grain is the largest input range executed as a single leaf run. <= 0 means 1.
	Grain int
}

type task struct {
	fn   func()
	done chan struct{}
}

func (t *task) run() {
	defer close(t.done)
	t.fn()
}

type Pool struct {
	workers int
	grain   int

	mu    sync.Mutex
	queue []*task

	wake chan struct{}
	quit chan struct{}

	state    sync.Mutex
	drained  *sync.Cond
	active   int
	closing  bool
	closed   bool
	workerWG sync.WaitGroup
}

func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	grain := cfg.Grain
	if grain <= 0 {
		grain = 1
	}

	p := &Pool{
		workers: workers,
		grain:   grain,
		wake:    make(chan struct{}, workers),
		quit:    make(chan struct{}),
	}
	p.drained = sync.NewCond(&p.state)

	p.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) Workers() int {
	return p.workers
}

// Close waits for every in-flight Map and MapReduce call to return and then
// stops the workers. Calls arriving while the pool drains are still admitted,
// since a nested call from a running leaf cannot be told apart from a new one.
func (p *Pool) Close() {
	p.state.Lock()
	if p.closing {
		for !p.closed {
			p.drained.Wait()
		}
		p.state.Unlock()
		return
	}
	p.closing = true
	for p.active > 0 {
		p.drained.Wait()
	}
	p.closed = true
	p.drained.Broadcast()
	p.state.Unlock()

	close(p.quit)
	p.workerWG.Wait()
}

func (p *Pool) enter() error {
	p.state.Lock()
	defer p.state.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.active++
	return nil
}

func (p *Pool) exit() {
	p.state.Lock()
	p.active--
	if p.active == 0 {
		p.drained.Broadcast()
	}
	p.state.Unlock()
}

func (p *Pool) work() {
	defer p.workerWG.Done()
	for {
		if t := p.pop(); t != nil {
			t.run()
			continue
		}
		select {
		case <-p.wake:
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pool) push(t *task) {
	p.mu.Lock()
	p.queue = append(p.queue, t)
	p.mu.Unlock()
	p.signal()
}

// pop takes the most recently pushed task. When work is left behind it passes
// a wake-up on, so a consumed signal never strands queued tasks.
func (p *Pool) pop() *task {
	p.mu.Lock()
	n := len(p.queue)
	if n == 0 {
		p.mu.Unlock()
		return nil
	}
	t := p.queue[n-1]
	p.queue[n-1] = nil
	p.queue = p.queue[:n-1]
	p.mu.Unlock()

	if n > 1 {
		p.signal()
	}
	return t
}

func (p *Pool) pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue) > 0
}

func (p *Pool) fork(fn func()) *task {
	t := &task{fn: fn, done: make(chan struct{})}
	p.push(t)
	return t
}

// join returns once t is done. Until then the caller helps: it runs whatever
// is queued, and parks only while the queue is empty.
func (p *Pool) join(t *task) {
	for {
		select {
		case <-t.done:
			if p.pending() {
				p.signal()
			}
			return
		default:
		}

		if other := p.pop(); other != nil {
			other.run()
			continue
		}

		select {
		case <-t.done:
		case <-p.wake:
		}
	}
}

// forkJoin applies leaf to every index of [lo, hi), halving the range until
// it fits in one grain.
func (p *Pool) forkJoin(lo, hi int, leaf func(int)) {
	if hi-lo <= p.grain {
		for i := lo; i < hi; i++ {
			leaf(i)
		}
		return
	}

	mid := lo + (hi-lo)/2
	left := p.fork(func() { p.forkJoin(lo, mid, leaf) })
	p.forkJoin(mid, hi, leaf)
	p.join(left)
}
