// Package recordarray presents a header-stripped, fixed-record-size region
// of a kvio.File as a random-access array of decoded entries.
package recordarray

import (
	"github.com/valyala/bytebufferpool"

	"github.com/rpcpool/hashindex/kv"
)

// Reader is the minimal surface recordarray needs from its backing file:
// payload-relative reads.
type Reader interface {
	ReadAt(p []byte, payloadOffset int64) (int, error)
}

// Array is a file-backed array of (key, value) entries of fixed encoded
// size entrySize = K_size + V_size. Out-of-bounds indices are a programmer
// error: callers obtain valid bounds from the fan-out table, and Get does
// not itself bounds-check.
type Array[K kv.Key, V kv.Value] struct {
	r          Reader
	entrySize  int64
	keySize    int
	decodeKey  kv.KeyDecoder[K]
	decodeVal  kv.ValueDecoder[V]
}

func New[K kv.Key, V kv.Value](r Reader, keySize, valueSize int, decodeKey kv.KeyDecoder[K], decodeVal kv.ValueDecoder[V]) *Array[K, V] {
	return &Array[K, V]{
		r:         r,
		entrySize: int64(keySize + valueSize),
		keySize:   keySize,
		decodeKey: decodeKey,
		decodeVal: decodeVal,
	}
}

func (a *Array[K, V]) EntrySize() int64 { return a.entrySize }

// Get reads and decodes the entry at index i (the i-th E-byte record in the
// array, 0-based). The scratch read buffer is drawn from a shared pool,
// since interpolation search calls Get repeatedly per lookup.
func (a *Array[K, V]) Get(i int64) (K, V, error) {
	var zeroK K
	var zeroV V

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	bb.B = append(bb.B[:0], make([]byte, a.entrySize)...)

	if _, err := a.r.ReadAt(bb.B, i*a.entrySize); err != nil {
		return zeroK, zeroV, err
	}
	k, err := a.decodeKey(bb.B[:a.keySize])
	if err != nil {
		return zeroK, zeroV, err
	}
	v, err := a.decodeVal(bb.B[a.keySize:])
	if err != nil {
		return zeroK, zeroV, err
	}
	return k, v, nil
}
