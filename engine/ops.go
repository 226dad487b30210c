package engine

import (
	"errors"
	"os"

	"github.com/rpcpool/hashindex/errs"
	"github.com/rpcpool/hashindex/interpsearch"
	"github.com/rpcpool/hashindex/kvio"
	"github.com/rpcpool/hashindex/metrics"
)

// Replace appends (k, v) to the log, updates the in-memory mirror, and
// triggers a merge if the log has grown past its configured budget.
func (e *Engine[K, V]) Replace(k K, v V) error {
	if e.closed {
		return errs.ErrClosed
	}
	if e.cfg.readOnly {
		return errs.ErrReadOnly
	}
	encKey := k.Encode()
	if len(encKey) != e.keySize {
		return errs.ErrInvalidKeySize{Got: len(encKey), Want: e.keySize}
	}
	encVal := v.Encode()
	if len(encVal) != e.valSize {
		return errs.ErrInvalidValueSize{Got: len(encVal), Want: e.valSize}
	}

	rec := make([]byte, 0, e.entrySize)
	rec = append(rec, encKey...)
	rec = append(rec, encVal...)
	if _, err := e.log.Append(rec); err != nil {
		return err
	}
	e.mirror[k] = v
	e.cachedLogOffset = e.log.Size()
	metrics.LogEntries.WithLabelValues(e.root).Set(float64(len(e.mirror)))

	if e.log.Size() > int64(e.cfg.logSize)*e.entrySize {
		return e.merge()
	}
	return nil
}

// Find looks up k, checking the in-memory mirror before falling back to
// interpolation search over the sorted index.
func (e *Engine[K, V]) Find(k K) (V, error) {
	var zero V
	if e.closed {
		return zero, errs.ErrClosed
	}
	if e.cfg.readOnly {
		if err := e.syncLog(); err != nil {
			return zero, err
		}
	}
	if e.log == nil {
		return zero, errs.ErrNotFound
	}
	if v, ok := e.mirror[k]; ok {
		return v, nil
	}
	if e.arr == nil {
		return zero, errs.ErrNotFound
	}
	lowByte, highByte := e.fan.Search(k.Hash())
	v, found, err := interpsearch.Search(e.arr, lowByte, highByte, k)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, errs.ErrNotFound
	}
	return v, nil
}

// Mem reports whether k is present, mapping *not found* to false.
func (e *Engine[K, V]) Mem(k K) (bool, error) {
	_, err := e.Find(k)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Visitor is called once per (key, value) pair during Iter. Returning false
// stops iteration early.
type Visitor[K any, V any] func(k K, v V) bool

// Iter visits every entry in the log mirror, then every entry in the index
// file in file order. It does not deduplicate: a key shadowed in the
// mirror is still visited again when the stale index entry is reached.
func (e *Engine[K, V]) Iter(visit Visitor[K, V]) error {
	if e.closed {
		return errs.ErrClosed
	}
	if e.cfg.readOnly {
		if err := e.syncLog(); err != nil {
			return err
		}
	}
	for k, v := range e.mirror {
		if !visit(k, v) {
			return nil
		}
	}
	if e.arr == nil {
		return nil
	}
	n := e.index.Size() / e.entrySize
	for i := int64(0); i < n; i++ {
		k, v, err := e.arr.Get(i)
		if err != nil {
			return err
		}
		if !visit(k, v) {
			return nil
		}
	}
	return nil
}

// Flush fsyncs the log file, durably committing all completed writes.
func (e *Engine[K, V]) Flush() error {
	if e.closed {
		return errs.ErrClosed
	}
	if e.cfg.readOnly {
		return errs.ErrReadOnly
	}
	return e.log.Sync()
}

// Clear resets the engine to empty: generation back to 0, log truncated and
// mirror emptied, index dropped. Not durable on its own; a subsequent
// merge recreates the index. Readers must reopen or sync_log to observe
// the reset.
func (e *Engine[K, V]) Clear() error {
	if e.closed {
		return errs.ErrClosed
	}
	if e.cfg.readOnly {
		return errs.ErrReadOnly
	}
	if err := e.log.Truncate(); err != nil {
		return err
	}
	if err := e.log.WriteGeneration(0); err != nil {
		return err
	}
	e.mirror = make(map[K]V)
	e.generation = 0
	if e.index != nil {
		if err := e.index.Close(); err != nil {
			return err
		}
		e.index, e.fan, e.arr = nil, nil, nil
		if err := removeIfExists(kvio.DataPath(e.root)); err != nil {
			return err
		}
	}
	metrics.Generation.WithLabelValues(e.root).Set(0)
	metrics.LogEntries.WithLabelValues(e.root).Set(0)
	return nil
}

// ForceMerge folds the log into a fresh index immediately, instead of
// waiting for the log to grow past its configured budget. It is a no-op if
// there is nothing to merge: no witness entry exists in the mirror and no
// existing index entry exists either.
func (e *Engine[K, V]) ForceMerge() error {
	if e.closed {
		return errs.ErrClosed
	}
	if e.cfg.readOnly {
		return errs.ErrReadOnly
	}
	if len(e.mirror) == 0 && (e.index == nil || e.index.Size() == 0) {
		return nil
	}
	return e.merge()
}

func removeIfExists(path string) error {
	if !kvio.Exists(path) {
		return nil
	}
	return os.Remove(path)
}
