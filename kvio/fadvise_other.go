//go:build !linux

package kvio

import "os"

// adviseRandom is a no-op on platforms without fadvise.
func adviseRandom(f *os.File) {}
