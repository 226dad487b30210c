package engine

import (
	"fmt"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/rpcpool/hashindex/fanout"
	"github.com/rpcpool/hashindex/kvio"
	"github.com/rpcpool/hashindex/metrics"
	"github.com/rpcpool/hashindex/recordarray"
)

// merge folds the log mirror into a fresh sorted index and advances the
// generation. It is triggered by a log-size overflow in Replace or
// directly by ForceMerge.
func (e *Engine[K, V]) merge() error {
	start := time.Now()
	defer func() {
		metrics.MergeDurationHistogram.WithLabelValues(e.root).Observe(time.Since(start).Seconds())
	}()

	newGen := e.generation + 1

	snapshot := make([]entry[K, V], 0, len(e.mirror))
	for k, v := range e.mirror {
		snapshot = append(snapshot, entry[K, V]{key: k, hash: k.Hash(), value: v})
	}
	e.sortSnapshot(snapshot)

	var existingCount int64
	if e.arr != nil {
		existingCount = e.index.Size() / e.entrySize
	}
	logCount := int64(len(snapshot))
	fanSize := int(existingCount + logCount)

	fan := fanout.Build(64, e.entrySize, fanSize)
	placeholder := fan.Encode()

	tempPath := kvio.MergeTempPath(e.root)
	temp, err := kvio.Create(tempPath, kvio.Header{Generation: newGen, FanoutBlob: placeholder})
	if err != nil {
		return fmt.Errorf("hashindex: creating merge file: %w", err)
	}

	emit := func(k K, h uint64, v V) error {
		offset := temp.Size()
		fan.Update(h, offset)

		bb := bytebufferpool.Get()
		defer bytebufferpool.Put(bb)
		bb.B = append(bb.B[:0], k.Encode()...)
		bb.B = append(bb.B, v.Encode()...)

		_, err := temp.Append(bb.B)
		return err
	}

	// Index entries sharing the same key_hash (a hash collision across
	// distinct keys, per kv.Key's contract) must be compared against the
	// log run for that hash as a group: draining the log run against only
	// the first index entry in the group would leave later same-hash index
	// entries wrongly unchecked against log entries already consumed.
	var j int64
	for i := int64(0); i < existingCount; {
		idxKey, idxVal, err := e.arr.Get(i)
		if err != nil {
			temp.Close()
			return err
		}
		idxHash := idxKey.Hash()

		for j < logCount && snapshot[j].hash < idxHash {
			if err := emit(snapshot[j].key, snapshot[j].hash, snapshot[j].value); err != nil {
				temp.Close()
				return err
			}
			j++
		}

		idxRun := []entry[K, V]{{key: idxKey, hash: idxHash, value: idxVal}}
		i++
		for i < existingCount {
			k2, v2, err := e.arr.Get(i)
			if err != nil {
				temp.Close()
				return err
			}
			if k2.Hash() != idxHash {
				break
			}
			idxRun = append(idxRun, entry[K, V]{key: k2, hash: idxHash, value: v2})
			i++
		}

		logRunStart := j
		for j < logCount && snapshot[j].hash == idxHash {
			if err := emit(snapshot[j].key, snapshot[j].hash, snapshot[j].value); err != nil {
				temp.Close()
				return err
			}
			j++
		}
		logRun := snapshot[logRunStart:j]

		for _, ie := range idxRun {
			collided := false
			for _, le := range logRun {
				if le.key == ie.key {
					collided = true
					break
				}
			}
			if !collided {
				if err := emit(ie.key, ie.hash, ie.value); err != nil {
					temp.Close()
					return err
				}
			}
		}
	}
	for ; j < logCount; j++ {
		if err := emit(snapshot[j].key, snapshot[j].hash, snapshot[j].value); err != nil {
			temp.Close()
			return err
		}
	}

	fan.Finalize()
	if err := temp.WriteFanoutBlob(fan.Encode()); err != nil {
		temp.Close()
		return err
	}
	if err := temp.Sync(); err != nil {
		temp.Close()
		return err
	}
	if err := temp.Close(); err != nil {
		return err
	}

	dataPath := kvio.DataPath(e.root)
	if err := kvio.RenameOver(tempPath, dataPath); err != nil {
		return fmt.Errorf("hashindex: renaming merge file over index: %w", err)
	}

	if e.index != nil {
		if err := e.index.Close(); err != nil {
			return err
		}
	}
	newIndex, err := kvio.Open(dataPath, true)
	if err != nil {
		return err
	}
	e.index = newIndex
	e.fan = fan
	e.arr = recordarray.New[K, V](newIndex, e.keySize, e.valSize, e.decodeKey, e.decodeVal)

	if err := e.log.Truncate(); err != nil {
		return err
	}
	if err := e.log.WriteGeneration(newGen); err != nil {
		return err
	}
	e.mirror = make(map[K]V)
	e.generation = newGen
	e.cachedLogOffset = 0

	metrics.MergesTotal.WithLabelValues(e.root).Inc()
	metrics.Generation.WithLabelValues(e.root).Set(float64(newGen))
	metrics.LogEntries.WithLabelValues(e.root).Set(0)

	log.Infow("merge complete", "root", e.root, "generation", newGen, "entries", existingCount+logCount)
	return nil
}
