// Package pool provides typed object pooling.
//
// The engine builds one candidate vector per interaction pair and discards
// most of them, so scratch vectors are recycled through a Floats pool instead
// of being allocated per pair.
//
//	buf := pool.Vectors.Get(rows)
//	defer pool.Vectors.Put(buf)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool is a generic object pool. It wraps sync.Pool with an optional reset
// function and usage statistics, and is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a pool. new is called when the pool is empty; reset, if not
// nil, is called on every object returned with Put.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object, allocating one if the pool is empty
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.gets, 1)
	atomic.AddInt64(&p.stats.inUse, 1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns the number of objects allocated by the pool, the number
// currently checked out, and the number of Get calls served from the pool
// without allocating.
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	allocated = atomic.LoadInt64(&p.stats.allocated)
	gets := atomic.LoadInt64(&p.stats.gets)
	hits = gets - allocated
	if hits < 0 {
		hits = 0
	}
	return allocated, atomic.LoadInt64(&p.stats.inUse), hits
}

// Floats pools float64 vectors. Get returns a vector of exactly the
// requested length; its contents are unspecified.
type Floats struct {
	p *Pool[*[]float64]
}

// NewFloats creates an empty vector pool
func NewFloats() *Floats {
	return &Floats{p: New(
		func() *[]float64 {
			s := make([]float64, 0)
			return &s
		},
		nil,
	)}
}

// Get returns a vector of length n
func (f *Floats) Get(n int) []float64 {
	buf := f.p.Get()
	if cap(*buf) < n {
		*buf = make([]float64, n)
	}
	return (*buf)[:n]
}

// Put returns a vector obtained from Get. The caller must not use it again.
func (f *Floats) Put(v []float64) {
	v = v[:0]
	f.p.Put(&v)
}

// Stats reports the underlying pool statistics
func (f *Floats) Stats() (allocated, inUse, hits int64) {
	return f.p.Stats()
}

// Vectors is the process-wide scratch vector pool
var Vectors = NewFloats()
