// Package fanout implements the coarse hash-prefix partitioning table that
// sits in front of interpolation search: a precomputed mapping from a hash
// prefix to the byte interval of the sorted index file that can possibly
// contain an entry with that hash.
package fanout

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// targetEntriesPerBucket bounds the average number of entries a single
// bucket's interval covers; smaller buckets mean tighter starting intervals
// for interpolation search at the cost of a larger table.
const targetEntriesPerBucket = 8

const unset = -1

// Table is a built, queryable fan-out table. The zero value is not usable;
// construct one with Build.
type Table struct {
	prefixBits uint
	entrySize  int64
	low        []int64
	high       []int64
}

// Build allocates a fan-out table sized from the expected number of entries
// it will index. hashSize is the bit width of the hash domain (64 for a
// uint64 hash). The table starts with every bucket empty; callers populate
// it with Update during a merge and must call Finalize before Search is
// valid.
func Build(hashSize uint, entrySize int64, expectedEntries int) *Table {
	numBuckets := 1
	if expectedEntries > 0 {
		numBuckets = (expectedEntries + targetEntriesPerBucket - 1) / targetEntriesPerBucket
		if numBuckets < 1 {
			numBuckets = 1
		}
	}
	prefixBits := uint(bits.Len(uint(numBuckets - 1)))
	if prefixBits > hashSize {
		prefixBits = hashSize
	}
	size := 1 << prefixBits
	low := make([]int64, size)
	high := make([]int64, size)
	for i := range low {
		low[i] = unset
		high[i] = unset
	}
	return &Table{prefixBits: prefixBits, entrySize: entrySize, low: low, high: high}
}

func (t *Table) bucket(hash uint64) int {
	if t.prefixBits == 0 {
		return 0
	}
	return int(hash >> (64 - t.prefixBits))
}

// Update records that an entry with the given hash was emitted at
// byteOffset. Calls must arrive in ascending hash order, matching the order
// entries are written to the sorted index during a merge.
func (t *Table) Update(hash uint64, byteOffset int64) {
	b := t.bucket(hash)
	if t.low[b] == unset {
		t.low[b] = byteOffset
	}
	t.high[b] = byteOffset
}

// Finalize fills empty buckets so that Search always returns a valid,
// monotone interval, even for hash prefixes that had no entries. An empty
// bucket is assigned the single-entry interval of the last entry of the
// closest populated bucket before it (or, if none precedes it, of the first
// entry of the closest populated bucket after it; or [0, 0] if the table is
// empty); a query landing there will correctly fail the hash-range check
// in interpolation search's first step.
func (t *Table) Finalize() {
	last := int64(unset)
	for i := range t.low {
		if t.low[i] == unset {
			if last != unset {
				t.low[i] = last
				t.high[i] = last
			}
		} else {
			last = t.high[i]
		}
	}
	next := int64(unset)
	for i := len(t.low) - 1; i >= 0; i-- {
		if t.low[i] == unset {
			if next != unset {
				t.low[i] = next
				t.high[i] = next
			} else {
				t.low[i] = 0
				t.high[i] = 0
			}
		} else {
			next = t.low[i]
		}
	}
}

// Search returns the byte interval, inclusive, enclosing any entry with the
// given hash. Both bounds are multiples of the entry size.
func (t *Table) Search(hash uint64) (lowByte, highByte int64) {
	b := t.bucket(hash)
	return t.low[b], t.high[b]
}

// EncodedSize returns the exact number of bytes Encode will produce, so the
// I/O backend can reserve header room before the fan-out is finalized.
func (t *Table) EncodedSize() int {
	return 4 + 4 + 8 + len(t.low)*16
}

// Encode serializes the table into a compact, size-prefixed blob.
func (t *Table) Encode() []byte {
	buf := make([]byte, t.EncodedSize())
	binary.LittleEndian.PutUint32(buf[0:4], uint32(t.prefixBits))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(t.low)))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(t.entrySize))
	off := 16
	for i := range t.low {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(t.low[i]))
		binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(t.high[i]))
		off += 16
	}
	return buf
}

// Decode parses a blob produced by Encode.
func Decode(b []byte) (*Table, error) {
	if len(b) < 16 {
		return nil, fmt.Errorf("fanout: blob truncated: have %d bytes", len(b))
	}
	prefixBits := binary.LittleEndian.Uint32(b[0:4])
	numBuckets := binary.LittleEndian.Uint32(b[4:8])
	entrySize := binary.LittleEndian.Uint64(b[8:16])
	want := 16 + int(numBuckets)*16
	if len(b) < want {
		return nil, fmt.Errorf("fanout: blob truncated: have %d bytes, want %d", len(b), want)
	}
	low := make([]int64, numBuckets)
	high := make([]int64, numBuckets)
	off := 16
	for i := range low {
		low[i] = int64(binary.LittleEndian.Uint64(b[off : off+8]))
		high[i] = int64(binary.LittleEndian.Uint64(b[off+8 : off+16]))
		off += 16
	}
	return &Table{prefixBits: uint(prefixBits), entrySize: int64(entrySize), low: low, high: high}, nil
}
