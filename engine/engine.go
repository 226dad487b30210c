// Package engine is the core of the index: it owns the log file and its
// in-memory mirror, the sorted index file and its fan-out, the generation
// counter, the merge algorithm and the read-only sync algorithm, and
// exposes the public open/clear/find/mem/replace/iter/force_merge/flush/close
// operations.
package engine

import (
	"fmt"
	"os"
	"sort"

	logging "github.com/ipfs/go-log/v2"

	"github.com/rpcpool/hashindex/errs"
	"github.com/rpcpool/hashindex/fanout"
	"github.com/rpcpool/hashindex/kv"
	"github.com/rpcpool/hashindex/kvio"
	"github.com/rpcpool/hashindex/recordarray"
)

var log = logging.Logger("hashindex")

// entry is an in-flight (key, hash, value) tuple used while snapshotting the
// log mirror for a merge. key_hash is never persisted; it is recomputed
// from the decoded key everywhere else, but a merge sorts by it repeatedly
// so it is cached here for the duration of the merge.
type entry[K kv.Key, V kv.Value] struct {
	key   K
	hash  uint64
	value V
}

// Engine is generic over the external Key and Value types; the I/O backend
// is a concrete collaborator (kvio.File) rather than a third type
// parameter, since unlike Key/Value it carries no per-instance type
// information the engine needs to thread through generically.
type Engine[K kv.Key, V kv.Value] struct {
	root string
	cfg  config

	keySize   int
	valSize   int
	entrySize int64

	decodeKey kv.KeyDecoder[K]
	decodeVal kv.ValueDecoder[V]

	log             *kvio.File
	index           *kvio.File
	fan             *fanout.Table
	arr             *recordarray.Array[K, V]
	cachedLogOffset int64

	mirror     map[K]V
	generation uint64

	lock *kvio.Lock

	closed bool
}

// Open opens or creates an engine rooted at root. keySize and valSize are
// the fixed encoded byte lengths of K and V; decodeKey/decodeVal invert
// K.Encode/V.Encode.
func Open[K kv.Key, V kv.Value](root string, keySize, valSize int, decodeKey kv.KeyDecoder[K], decodeVal kv.ValueDecoder[V], opts ...Option) (*Engine[K, V], error) {
	cfg := defaultConfig()
	cfg.apply(opts)

	if err := os.MkdirAll(kvio.IndexDir(root), 0o755); err != nil {
		return nil, fmt.Errorf("hashindex: creating index dir: %w", err)
	}

	e := &Engine[K, V]{
		root:      root,
		cfg:       cfg,
		keySize:   keySize,
		valSize:   valSize,
		entrySize: int64(keySize + valSize),
		decodeKey: decodeKey,
		decodeVal: decodeVal,
		mirror:    make(map[K]V),
	}

	if !cfg.readOnly {
		lock, ok, err := kvio.AcquireLock(kvio.LockPath(root))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.ErrLocked
		}
		e.lock = lock
	}

	logPath := kvio.LogPath(root)
	switch {
	case kvio.Exists(logPath):
		f, err := kvio.Open(logPath, cfg.readOnly)
		if err != nil {
			e.releaseLock()
			return nil, err
		}
		e.log = f
		if err := e.loadLogEntries(); err != nil {
			e.releaseLock()
			return nil, err
		}
		e.generation = f.Generation()
		e.cachedLogOffset = f.Size()
	case !cfg.readOnly:
		f, err := kvio.Create(logPath, kvio.Header{Generation: 0})
		if err != nil {
			e.releaseLock()
			return nil, err
		}
		e.log = f
	default:
		// readonly and the log does not exist yet: log is absent until a
		// writer creates it; sync_log will pick it up later.
	}

	if err := e.openIndex(); err != nil {
		e.releaseLock()
		return nil, err
	}

	if cfg.fresh && !cfg.readOnly {
		if err := e.Clear(); err != nil {
			e.releaseLock()
			return nil, err
		}
	}

	log.Infow("opened engine", "root", root, "readonly", cfg.readOnly, "generation", e.generation)
	return e, nil
}

func (e *Engine[K, V]) openIndex() error {
	dataPath := kvio.DataPath(e.root)
	if !kvio.Exists(dataPath) {
		e.index, e.fan, e.arr = nil, nil, nil
		return nil
	}
	idx, err := kvio.Open(dataPath, true)
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
	return nil
}

func (e *Engine[K, V]) loadLogEntries() error {
	e.mirror = make(map[K]V)
	return e.loadLogRange(0, e.log.Size())
}

func (e *Engine[K, V]) loadLogRange(from, to int64) error {
	if to <= from {
		return nil
	}
	buf := make([]byte, to-from)
	if _, err := e.log.ReadAt(buf, from); err != nil {
		return fmt.Errorf("hashindex: reading log range: %w", err)
	}
	for off := int64(0); off+e.entrySize <= int64(len(buf)); off += e.entrySize {
		rec := buf[off : off+e.entrySize]
		k, err := e.decodeKey(rec[:e.keySize])
		if err != nil {
			return fmt.Errorf("hashindex: decoding log key: %w", err)
		}
		v, err := e.decodeVal(rec[e.keySize:])
		if err != nil {
			return fmt.Errorf("hashindex: decoding log value: %w", err)
		}
		e.mirror[k] = v
	}
	return nil
}

func (e *Engine[K, V]) releaseLock() {
	if e.lock != nil {
		e.lock.Release()
		e.lock = nil
	}
}

// Close releases the engine's file handles and advisory lock. Instance
// cache reference counting lives in package instancecache; Close here is
// unconditional teardown of a single owned engine.
func (e *Engine[K, V]) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	var firstErr error
	if e.log != nil && !e.cfg.readOnly {
		if err := e.log.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.log != nil {
		if err := e.log.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.index != nil {
		if err := e.index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.releaseLock()
	return firstErr
}

func (e *Engine[K, V]) Root() string { return e.root }

func (e *Engine[K, V]) sortSnapshot(entries []entry[K, V]) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].hash < entries[j].hash
	})
}
