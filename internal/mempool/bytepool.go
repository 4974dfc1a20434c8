package mempool

import (
	"sync"
)

// A sized pool for []byte pixel buffers so per-scan frames and gray images
// do not allocate on every capture.

var bytePools sync.Map // key: size class (int), value: *sync.Pool

// sizeClass rounds n up to the next multiple of 4096 to reduce churn.
func sizeClass(n int) int {
	const step = 4096
	if n <= step {
		return step
	}
	r := (n + step - 1) / step
	return r * step
}

func poolFor(cls int) *sync.Pool {
	pAny, _ := bytePools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]byte, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return nil
	}
	return p
}

// GetBytes retrieves a zeroed []byte buffer of n bytes from the pool.
// The returned slice has length n but may have larger capacity.
// The caller must return it via PutBytes when done.
func GetBytes(n int) []byte {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	p := poolFor(cls)
	if p == nil {
		return make([]byte, n, cls)
	}
	buf, ok := p.Get().([]byte)
	if !ok || cap(buf) < cls {
		buf = make([]byte, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

// PutBytes returns a buffer to the pool. It is safe to pass a nil slice.
// Buffers whose capacity is not a size class are dropped.
func PutBytes(buf []byte) {
	if buf == nil {
		return
	}
	c := cap(buf)
	if c != sizeClass(c) {
		return
	}
	p := poolFor(c)
	if p == nil {
		return
	}
	p.Put(buf[:c]) //nolint:staticcheck
}
