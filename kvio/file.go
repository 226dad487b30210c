// Package kvio is the I/O backend collaborator the engine is built against:
// an abstract append-only file carrying a small header (generation plus a
// serialized fan-out blob), with create/open, append, read-at-offset,
// write-offset tracking, fsync, clear, rename-over and advisory locking.
// spec.md §2 treats this as an external collaborator; kvio is the concrete
// file-backed implementation the engine is wired against in this module.
package kvio

import (
	"encoding/binary"
	"fmt"
	"os"
)

// File is a single header-plus-payload file shared by both the log and the
// index: same on-disk shape, different lifecycle (the log is appended to
// and truncated; the index is written once by a merge and read forever
// after).
type File struct {
	f          *os.File
	path       string
	readOnly   bool
	headerSize int64
	header     Header
	// payloadSize is the cached length, in bytes, of the region following
	// the header. The writer updates it on every Append; read-only handles
	// refresh it explicitly via ForceOffset, matching the force-refresh
	// write-offset operation required of the I/O backend.
	payloadSize int64
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Create makes a brand new file at path, failing if one already exists, and
// writes the given header.
func Create(path string, header Header) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	enc := header.Encode()
	if _, err := f.WriteAt(enc, 0); err != nil {
		f.Close()
		return nil, err
	}
	adviseRandom(f)
	return &File{
		f:          f,
		path:       path,
		headerSize: int64(len(enc)),
		header:     header,
	}, nil
}

// Open opens an existing file and decodes its header.
func Open(path string, readOnly bool) (*File, error) {
	flag := os.O_RDONLY
	if !readOnly {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	prefix := make([]byte, 16)
	if _, err := f.ReadAt(prefix, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("kvio: reading header prefix of %s: %w", path, err)
	}
	blobLen := binary.LittleEndian.Uint32(prefix[12:16])
	full := make([]byte, 16+int64(blobLen))
	if _, err := f.ReadAt(full, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("kvio: reading header of %s: %w", path, err)
	}
	hdr, headerSize, err := DecodeHeader(full)
	if err != nil {
		f.Close()
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	adviseRandom(f)
	return &File{
		f:           f,
		path:        path,
		readOnly:    readOnly,
		headerSize:  headerSize,
		header:      hdr,
		payloadSize: st.Size() - headerSize,
	}, nil
}

func (f *File) Path() string     { return f.path }
func (f *File) ReadOnly() bool   { return f.readOnly }
func (f *File) Generation() uint64 { return f.header.Generation }
func (f *File) FanoutBlob() []byte { return f.header.FanoutBlob }

// Size returns the cached length of the payload region, i.e. the current
// write offset relative to the start of entries.
func (f *File) Size() int64 { return f.payloadSize }

// Append writes data to the end of the payload region and returns the
// payload-relative offset it was written at.
func (f *File) Append(data []byte) (int64, error) {
	if f.readOnly {
		return 0, fmt.Errorf("kvio: append on read-only file %s", f.path)
	}
	offset := f.payloadSize
	if _, err := f.f.WriteAt(data, f.headerSize+offset); err != nil {
		return 0, err
	}
	f.payloadSize += int64(len(data))
	return offset, nil
}

// ReadAt reads len(p) bytes at a payload-relative offset.
func (f *File) ReadAt(p []byte, payloadOffset int64) (int, error) {
	return f.f.ReadAt(p, f.headerSize+payloadOffset)
}

// ForceOffset re-stats the underlying file and refreshes the cached payload
// size, the "force-refresh offset" operation read-only observers need since
// their view of a writer-owned file is otherwise cached.
func (f *File) ForceOffset() (int64, error) {
	st, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	f.payloadSize = st.Size() - f.headerSize
	return f.payloadSize, nil
}

// ReloadGeneration re-reads only the generation field of the header,
// without touching the (potentially large) fan-out blob, and updates the
// cached value.
func (f *File) ReloadGeneration() (uint64, error) {
	var buf [8]byte
	if _, err := f.f.ReadAt(buf[:], generationOffset); err != nil {
		return 0, err
	}
	f.header.Generation = binary.LittleEndian.Uint64(buf[:])
	return f.header.Generation, nil
}

// WriteGeneration overwrites the generation field of the header in place.
func (f *File) WriteGeneration(g uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], g)
	if _, err := f.f.WriteAt(buf[:], generationOffset); err != nil {
		return err
	}
	f.header.Generation = g
	return nil
}

// WriteFanoutBlob overwrites the header's fan-out blob in place. The new
// blob must be exactly the size of the one the file was created or opened
// with: a merge reserves header room for the finalized fan-out before it
// knows the finalized values, and only the values change between the
// placeholder and the final write, never the encoded size.
func (f *File) WriteFanoutBlob(blob []byte) error {
	if len(blob) != len(f.header.FanoutBlob) {
		return fmt.Errorf("kvio: fanout blob size changed: had %d bytes, got %d", len(f.header.FanoutBlob), len(blob))
	}
	if _, err := f.f.WriteAt(blob, 16); err != nil {
		return err
	}
	f.header.FanoutBlob = blob
	return nil
}

// Sync fsyncs the file.
func (f *File) Sync() error {
	return f.f.Sync()
}

// Truncate clears the payload region, leaving the header (and whatever
// generation value is currently written there) untouched. Callers that
// need to reset the generation too must call WriteGeneration afterward, as
// the engine's Clear (generation 0) and merge (the new generation) do.
func (f *File) Truncate() error {
	if err := f.f.Truncate(f.headerSize); err != nil {
		return err
	}
	f.payloadSize = 0
	return nil
}

func (f *File) Close() error {
	return f.f.Close()
}
