package kvio

import (
	"encoding/binary"
	"fmt"
)

// magic identifies the file format at offset 0. Distinguishing the two file
// kinds is left to the caller (the log and the index use the same header
// shape); this just guards against opening an unrelated file.
var magic = [4]byte{'H', 'K', 'V', '1'}

// Header is the fixed-shape preamble every kvio file starts with: a
// generation counter and an opaque, length-prefixed fan-out blob. kvio does
// not interpret the blob; it is encoded and decoded by the fanout package
// and only carried here.
type Header struct {
	Generation uint64
	FanoutBlob []byte
}

// Size returns the exact number of bytes Encode will produce for this
// header, so callers can reserve header room before writing payload bytes.
func (h Header) Size() int64 {
	return int64(len(magic) + 8 + 4 + len(h.FanoutBlob))
}

func (h Header) Encode() []byte {
	buf := make([]byte, h.Size())
	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint64(buf[4:12], h.Generation)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(h.FanoutBlob)))
	copy(buf[16:], h.FanoutBlob)
	return buf
}

// DecodeHeader reads a Header from the front of b. It returns the number of
// bytes consumed so the caller knows where the payload region begins.
func DecodeHeader(b []byte) (Header, int64, error) {
	if len(b) < 16 {
		return Header{}, 0, fmt.Errorf("kvio: header truncated: have %d bytes, need at least 16", len(b))
	}
	if [4]byte(b[0:4]) != magic {
		return Header{}, 0, fmt.Errorf("kvio: bad magic %q", b[0:4])
	}
	gen := binary.LittleEndian.Uint64(b[4:12])
	blobLen := binary.LittleEndian.Uint32(b[12:16])
	end := 16 + int64(blobLen)
	if int64(len(b)) < end {
		return Header{}, 0, fmt.Errorf("kvio: fanout blob truncated: have %d bytes, need %d", len(b), end)
	}
	blob := make([]byte, blobLen)
	copy(blob, b[16:end])
	return Header{Generation: gen, FanoutBlob: blob}, end, nil
}

// generationOffset is the fixed byte offset of the generation field within
// any encoded header, used to rewrite it in place without touching the
// fan-out blob that follows it.
const generationOffset = 4
