package fanout

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildUpdateFinalizeSearch(t *testing.T) {
	hashes := []uint64{10, 20, 20, 30, 1000, 1000, 1000, 5000}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	tbl := Build(64, 40, len(hashes))
	for i, h := range hashes {
		tbl.Update(h, int64(i)*40)
	}
	tbl.Finalize()

	for i, h := range hashes {
		lo, hi := tbl.Search(h)
		require.LessOrEqual(t, lo, hi)
		require.Zero(t, lo%40)
		require.Zero(t, hi%40)
		offset := int64(i) * 40
		require.GreaterOrEqual(t, offset, lo)
		require.LessOrEqual(t, offset, hi)
	}
}

func TestEmptyTableSearchIsSane(t *testing.T) {
	tbl := Build(64, 40, 0)
	tbl.Finalize()
	lo, hi := tbl.Search(12345)
	require.Equal(t, lo, hi)
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	tbl := Build(64, 40, 100)
	for i := 0; i < 100; i++ {
		tbl.Update(uint64(i*37), int64(i)*40)
	}
	tbl.Finalize()

	blob := tbl.Encode()
	require.Len(t, blob, tbl.EncodedSize())

	decoded, err := Decode(blob)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		wantLo, wantHi := tbl.Search(uint64(i * 37))
		gotLo, gotHi := decoded.Search(uint64(i * 37))
		require.Equal(t, wantLo, gotLo)
		require.Equal(t, wantHi, gotHi)
	}
}

func TestSearchIsMonotoneAcrossBuckets(t *testing.T) {
	tbl := Build(64, 8, 64)
	for i := 0; i < 64; i++ {
		tbl.Update(uint64(i)<<56, int64(i)*8)
	}
	tbl.Finalize()

	// 64 entries give 8 buckets, so consecutive hashes often share a bucket
	// and its interval; a new bucket's interval starts at or past the end of
	// the previous one.
	var lastLo, lastHi int64 = -1, -1
	for i := 0; i < 64; i++ {
		lo, hi := tbl.Search(uint64(i) << 56)
		require.GreaterOrEqual(t, lo, lastLo)
		require.GreaterOrEqual(t, hi, lastHi)
		if lo != lastLo {
			require.GreaterOrEqual(t, lo, lastHi)
		}
		lastLo, lastHi = lo, hi
	}
}
