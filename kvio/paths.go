package kvio

import (
	"path/filepath"

	"github.com/google/uuid"
)

// indexDirName is the directory under a database's root path that holds
// the on-disk layout:
//
//	root/index/log           — append-only log file
//	root/index/data          — sorted index file
//	root/index/merge.<uuid>  — temporary merge target (renamed over data)
//	root/index/lock          — advisory lock file
const indexDirName = "index"

func IndexDir(root string) string {
	return filepath.Join(root, indexDirName)
}

func LogPath(root string) string {
	return filepath.Join(IndexDir(root), "log")
}

func DataPath(root string) string {
	return filepath.Join(IndexDir(root), "data")
}

func LockPath(root string) string {
	return filepath.Join(IndexDir(root), "lock")
}

// MergeTempPath returns a fresh, collision-free path for a temporary merge
// target. A random suffix avoids colliding with a stale "merge" file left
// behind by a process that crashed mid-merge, so a crashed writer's restart
// doesn't need to reason about cleaning up someone else's temp file.
func MergeTempPath(root string) string {
	return filepath.Join(IndexDir(root), "merge."+uuid.NewString())
}
