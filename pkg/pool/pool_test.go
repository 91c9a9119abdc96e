package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type buffer struct {
	data []byte
}

func TestPoolReset(t *testing.T) {
	p := New(
		func() *buffer { return &buffer{data: make([]byte, 0, 16)} },
		func(b *buffer) { b.data = b.data[:0] },
	)

	b := p.Get()
	b.data = append(b.data, "abc"...)
	allocated, inUse, _ := p.Stats()
	assert.Equal(t, int64(1), allocated)
	assert.Equal(t, int64(1), inUse)

	p.Put(b)
	assert.Empty(t, b.data)
	_, inUse, _ = p.Stats()
	assert.Equal(t, int64(0), inUse)
}

func TestFloatsLength(t *testing.T) {
	f := NewFloats()

	v := f.Get(5)
	require.Len(t, v, 5)
	for i := range v {
		v[i] = float64(i)
	}
	f.Put(v)

	w := f.Get(3)
	assert.Len(t, w, 3)
	f.Put(w)

	big := f.Get(100)
	assert.Len(t, big, 100)
	f.Put(big)

	_, inUse, _ := f.Stats()
	assert.Equal(t, int64(0), inUse)
}

func TestFloatsConcurrent(t *testing.T) {
	f := NewFloats()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				v := f.Get(g + 1)
				v[g] = float64(i)
				f.Put(v)
			}
		}(g)
	}
	wg.Wait()

	allocated, inUse, hits := f.Stats()
	assert.Equal(t, int64(0), inUse)
	assert.Equal(t, int64(800), allocated+hits)
}
