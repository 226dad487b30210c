// Package testkey provides example fixed-size Key/Value implementations
// used by the engine's tests and by the CLI. They are not part of the
// core: callers of the engine supply their own Key/Value types; these
// exist only because something concrete has to stand in for them.
package testkey

import (
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Key20 is a 20-byte fixed key, the shape used throughout the package's
// end-to-end tests.
type Key20 [20]byte

func NewKey20(b []byte) Key20 {
	var k Key20
	copy(k[:], b)
	return k
}

func (k Key20) Encode() []byte { return k[:] }

func (k Key20) Hash() uint64 { return xxhash.Sum64(k[:]) }

func (k Key20) String() string { return hex.EncodeToString(k[:]) }

func DecodeKey20(b []byte) (Key20, error) {
	var k Key20
	if len(b) != len(k) {
		return k, fmt.Errorf("testkey: invalid Key20 encoding: got %d bytes, want %d", len(b), len(k))
	}
	copy(k[:], b)
	return k, nil
}

// Value20 is a 20-byte fixed value, paired with Key20 in the tests.
type Value20 [20]byte

func NewValue20(b []byte) Value20 {
	var v Value20
	copy(v[:], b)
	return v
}

func (v Value20) Encode() []byte { return v[:] }

func DecodeValue20(b []byte) (Value20, error) {
	var v Value20
	if len(b) != len(v) {
		return v, fmt.Errorf("testkey: invalid Value20 encoding: got %d bytes, want %d", len(b), len(v))
	}
	copy(v[:], b)
	return v, nil
}
