package engine

import (
	"github.com/rpcpool/hashindex/errs"
	"github.com/rpcpool/hashindex/fanout"
	"github.com/rpcpool/hashindex/kvio"
	"github.com/rpcpool/hashindex/metrics"
	"github.com/rpcpool/hashindex/recordarray"
)

// syncLog is called at the start of every read operation on a read-only
// engine. It detects merges via the generation counter in the log header
// and resynchronizes the mirror and index accordingly, without taking any
// lock: the writer's rename and this read are coordinated purely through
// the generation value and the log's write offset.
func (e *Engine[K, V]) syncLog() error {
	if e.log == nil {
		logPath := kvio.LogPath(e.root)
		if !kvio.Exists(logPath) {
			return nil
		}
		f, err := kvio.Open(logPath, true)
		if err != nil {
			return err
		}
		e.log = f
		if err := e.loadLogEntries(); err != nil {
			return err
		}
		e.generation = f.Generation()
		e.cachedLogOffset = f.Size()
		return nil
	}

	observedGen, err := e.log.ReloadGeneration()
	if err != nil {
		return err
	}
	newOffset, err := e.log.ForceOffset()
	if err != nil {
		return err
	}
	oldOffset := e.cachedLogOffset

	switch {
	case observedGen != e.generation:
		e.mirror = make(map[K]V)
		if err := e.loadLogRange(0, newOffset); err != nil {
			return err
		}
		if e.index != nil {
			if err := e.index.Close(); err != nil {
				return err
			}
			e.index, e.fan, e.arr = nil, nil, nil
		}
		if observedGen != 0 {
			idx, err := kvio.Open(kvio.DataPath(e.root), true)
			if err != nil {
				return err
			}
			fan, err := fanout.Decode(idx.FanoutBlob())
			if err != nil {
				idx.Close()
				return err
			}
			e.index = idx
			e.fan = fan
			e.arr = recordarray.New[K, V](idx, e.keySize, e.valSize, e.decodeKey, e.decodeVal)
		}
		e.generation = observedGen
		e.cachedLogOffset = newOffset
		metrics.SyncLogResyncsTotal.WithLabelValues(e.root).Inc()
		log.Infow("sync_log resynced", "root", e.root, "generation", observedGen)

	case newOffset > oldOffset:
		if err := e.loadLogRange(oldOffset, newOffset); err != nil {
			return err
		}
		e.cachedLogOffset = newOffset

	case newOffset < oldOffset:
		log.Warnw("sync_log observed log shrink", "root", e.root, "old_offset", oldOffset, "new_offset", newOffset)
		return errs.ErrInvariant
	}
	return nil
}
