//go:build linux

package kvio

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseRandom tells the OS the index file will be accessed by interpolation
// search rather than scanned sequentially, mirroring compactindexsized.Open's
// use of fadvise on the sized index file.
func adviseRandom(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM)
}
