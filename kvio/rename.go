package kvio

import (
	"os"
	"path/filepath"
)

// RenameOver atomically replaces newPath with oldPath's contents (the
// temporary merge file taking the place of the live index file) and fsyncs
// the containing directory so the rename itself survives a crash.
func RenameOver(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}
	dir, err := os.Open(filepath.Dir(newPath))
	if err != nil {
		return err
	}
	defer dir.Close()
	return dir.Sync()
}
