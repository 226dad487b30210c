// Package interpsearch implements interpolation search over a file-backed
// array of hash-sorted entries: it predicts the next probe position by
// linear interpolation in hash space rather than bisecting the index range,
// and falls back to a linear scan across runs of equal hash.
package interpsearch

import (
	"math"

	"github.com/rpcpool/hashindex/kv"
	"github.com/rpcpool/hashindex/recordarray"
)

// Search looks up target in arr, restricting the search to the inclusive
// record-index range [lowByte/entrySize, highByte/entrySize] supplied by a
// fan-out lookup. It reports found=false, with no error, for the normal
// negative result of a lookup.
func Search[K kv.Key, V kv.Value](arr *recordarray.Array[K, V], lowByte, highByte int64, target K) (value V, found bool, err error) {
	entrySize := arr.EntrySize()
	lo := lowByte / entrySize
	hi := highByte / entrySize
	h := target.Hash()

	for lo <= hi {
		keyLo, valLo, err := arr.Get(lo)
		if err != nil {
			return value, false, err
		}
		keyHi, valHi, err := arr.Get(hi)
		if err != nil {
			return value, false, err
		}
		hLo, hHi := keyLo.Hash(), keyHi.Hash()

		if h < hLo || h > hHi {
			return value, false, nil
		}
		if hLo == hHi {
			return linearScan(arr, lo, hi, target)
		}

		mid := interpolate(lo, hLo, hi, hHi, h)
		if mid < lo {
			mid = lo
		}
		if mid > hi {
			mid = hi
		}

		var keyMid K
		var valMid V
		switch mid {
		case lo:
			keyMid, valMid = keyLo, valLo
		case hi:
			keyMid, valMid = keyHi, valHi
		default:
			keyMid, valMid, err = arr.Get(mid)
			if err != nil {
				return value, false, err
			}
		}
		hMid := keyMid.Hash()

		switch {
		case hMid < h:
			lo = mid + 1
		case hMid > h:
			hi = mid - 1
		default:
			if keyMid == target {
				return valMid, true, nil
			}
			return scanEqualRun(arr, lo, hi, mid, h, target)
		}
	}
	return value, false, nil
}

// interpolate computes the pivot index using linear interpolation in hash
// space, rounding with round(x) = ceil(x - 0.5) + 0.5 then truncating: a
// deterministic rule that biases toward the lower half and sidesteps
// banker's-rounding inconsistencies across implementations.
func interpolate(lo int64, hLo uint64, hi int64, hHi uint64, h uint64) int64 {
	span := float64(hHi - hLo)
	p := float64(h-hLo) / span
	pivotF := float64(lo) + p*float64(hi-lo)
	rounded := math.Ceil(pivotF-0.5) + 0.5
	return int64(rounded)
}

func linearScan[K kv.Key, V kv.Value](arr *recordarray.Array[K, V], lo, hi int64, target K) (V, bool, error) {
	var zero V
	for i := lo; i <= hi; i++ {
		k, v, err := arr.Get(i)
		if err != nil {
			return zero, false, err
		}
		if k == target {
			return v, true, nil
		}
	}
	return zero, false, nil
}

// scanEqualRun widens outward from mid over the contiguous run of entries
// sharing hash h, since a hash collision can place several distinct keys at
// adjacent indices.
func scanEqualRun[K kv.Key, V kv.Value](arr *recordarray.Array[K, V], lo, hi, mid int64, h uint64, target K) (V, bool, error) {
	var zero V
	for i := mid - 1; i >= lo; i-- {
		k, v, err := arr.Get(i)
		if err != nil {
			return zero, false, err
		}
		if k.Hash() != h {
			break
		}
		if k == target {
			return v, true, nil
		}
	}
	for i := mid + 1; i <= hi; i++ {
		k, v, err := arr.Get(i)
		if err != nil {
			return zero, false, err
		}
		if k.Hash() != h {
			break
		}
		if k == target {
			return v, true, nil
		}
	}
	return zero, false, nil
}
