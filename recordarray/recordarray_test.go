package recordarray_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/hashindex/recordarray"
	"github.com/rpcpool/hashindex/testkey"
)

type memReader []byte

func (m memReader) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, m[off:off+int64(len(p))]), nil
}

func TestGetDecodesEntryAtIndex(t *testing.T) {
	var buf memReader
	var keys []testkey.Key20
	var vals []testkey.Value20
	for i := 0; i < 5; i++ {
		k := testkey.NewKey20([]byte{byte(i), 1, 2, 3})
		v := testkey.NewValue20([]byte{byte(i), 9, 9, 9})
		keys = append(keys, k)
		vals = append(vals, v)
		buf = append(buf, k.Encode()...)
		buf = append(buf, v.Encode()...)
	}

	arr := recordarray.New[testkey.Key20, testkey.Value20](buf, 20, 20, testkey.DecodeKey20, testkey.DecodeValue20)
	for i := range keys {
		k, v, err := arr.Get(int64(i))
		require.NoError(t, err)
		require.Equal(t, keys[i], k)
		require.Equal(t, vals[i], v)
	}
}
