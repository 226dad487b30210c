package interpsearch_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/hashindex/fanout"
	"github.com/rpcpool/hashindex/interpsearch"
	"github.com/rpcpool/hashindex/recordarray"
	"github.com/rpcpool/hashindex/testkey"
)

type memReader []byte

func (m memReader) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, m[off:off+int64(len(p))]), nil
}

func buildSortedIndex(t *testing.T, n int) (*recordarray.Array[testkey.Key20, testkey.Value20], *fanout.Table, []testkey.Key20, []testkey.Value20) {
	t.Helper()

	type kv struct {
		k testkey.Key20
		v testkey.Value20
	}
	entries := make([]kv, n)
	for i := 0; i < n; i++ {
		entries[i] = kv{
			k: testkey.NewKey20([]byte{byte(i >> 8), byte(i), 1, 2, 3}),
			v: testkey.NewValue20([]byte{byte(i), 9, 9, 9}),
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].k.Hash() < entries[j].k.Hash() })

	var buf memReader
	tbl := fanout.Build(64, 40, n)
	for _, e := range entries {
		tbl.Update(e.k.Hash(), int64(len(buf)))
		buf = append(buf, e.k.Encode()...)
		buf = append(buf, e.v.Encode()...)
	}
	tbl.Finalize()

	arr := recordarray.New[testkey.Key20, testkey.Value20](buf, 20, 20, testkey.DecodeKey20, testkey.DecodeValue20)

	keys := make([]testkey.Key20, n)
	vals := make([]testkey.Value20, n)
	for i, e := range entries {
		keys[i] = e.k
		vals[i] = e.v
	}
	return arr, tbl, keys, vals
}

func TestSearchFindsEveryInsertedKey(t *testing.T) {
	arr, tbl, keys, vals := buildSortedIndex(t, 500)
	for i, k := range keys {
		lo, hi := tbl.Search(k.Hash())
		v, found, err := interpsearch.Search(arr, lo, hi, k)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, vals[i], v)
	}
}

func TestSearchReportsNotFoundForAbsentKey(t *testing.T) {
	arr, tbl, _, _ := buildSortedIndex(t, 500)
	absent := testkey.NewKey20([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	lo, hi := tbl.Search(absent.Hash())
	_, found, err := interpsearch.Search(arr, lo, hi, absent)
	require.NoError(t, err)
	require.False(t, found)
}
