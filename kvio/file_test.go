package kvio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAppendReadAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	f, err := Create(path, Header{Generation: 0})
	require.NoError(t, err)
	defer f.Close()

	off1, err := f.Append([]byte("hello world!!!!!!!!!"))
	require.NoError(t, err)
	require.EqualValues(t, 0, off1)

	off2, err := f.Append([]byte("second entry bytes.."))
	require.NoError(t, err)
	require.EqualValues(t, 20, off2)

	buf := make([]byte, 20)
	_, err = f.ReadAt(buf, off2)
	require.NoError(t, err)
	require.Equal(t, "second entry bytes..", string(buf))

	require.EqualValues(t, 40, f.Size())
}

func TestReopenPreservesHeaderAndPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	blob := []byte{1, 2, 3, 4}
	f, err := Create(path, Header{Generation: 7, FanoutBlob: blob})
	require.NoError(t, err)
	_, err = f.Append([]byte("entrybytes"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f2, err := Open(path, true)
	require.NoError(t, err)
	defer f2.Close()
	require.EqualValues(t, 7, f2.Generation())
	require.Equal(t, blob, f2.FanoutBlob())
	require.EqualValues(t, 10, f2.Size())

	buf := make([]byte, 10)
	_, err = f2.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, "entrybytes", string(buf))
}

func TestWriteGenerationAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	f, err := Create(path, Header{Generation: 0})
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.WriteGeneration(42))
	require.EqualValues(t, 42, f.Generation())

	got, err := f.ReloadGeneration()
	require.NoError(t, err)
	require.EqualValues(t, 42, got)
}

func TestTruncateClearsPayloadNotHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	f, err := Create(path, Header{Generation: 3})
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Append([]byte("some bytes"))
	require.NoError(t, err)
	require.NoError(t, f.Truncate())
	require.EqualValues(t, 0, f.Size())
	require.EqualValues(t, 3, f.Generation())
}

func TestForceOffsetObservesExternalGrowth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	writer, err := Create(path, Header{Generation: 0})
	require.NoError(t, err)
	defer writer.Close()

	reader, err := Open(path, true)
	require.NoError(t, err)
	defer reader.Close()

	_, err = writer.Append([]byte("abcdefghij"))
	require.NoError(t, err)

	require.EqualValues(t, 0, reader.Size())
	newSize, err := reader.ForceOffset()
	require.NoError(t, err)
	require.EqualValues(t, 10, newSize)
}

func TestWriteFanoutBlobRejectsSizeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	f, err := Create(path, Header{Generation: 0, FanoutBlob: []byte{1, 2, 3}})
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.WriteFanoutBlob([]byte{9, 8, 7}))
	require.Error(t, f.WriteFanoutBlob([]byte{1, 2}))
}

func TestAcquireLockExcludesSecondWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	l1, ok, err := AcquireLock(path)
	require.NoError(t, err)
	require.True(t, ok)
	defer l1.Release()

	_, ok2, err := AcquireLock(path)
	require.NoError(t, err)
	require.False(t, ok2)
}
