// Package instancecache provides the process-wide deduplication of open
// engines by (root, mode): at most one engine exists per (canonicalized
// root path, read-only flag), shared across callers via a reference count.
package instancecache

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rpcpool/hashindex/engine"
	"github.com/rpcpool/hashindex/kv"
	"github.com/rpcpool/hashindex/kvio"
	"github.com/rpcpool/hashindex/metrics"
)

type key struct {
	root     string
	readOnly bool
}

type entry[K kv.Key, V kv.Value] struct {
	eng       *engine.Engine[K, V]
	instances int
}

// Cache is a mutex-guarded (root, mode) -> engine map. The zero value is
// ready to use. A Cache is parameterized over one Key/Value pair; an
// application embedding multiple differently-typed indexes uses one Cache
// per pair.
type Cache[K kv.Key, V kv.Value] struct {
	mu      sync.Mutex
	entries map[key]*entry[K, V]
}

func New[K kv.Key, V kv.Value]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[key]*entry[K, V])}
}

// Handle is a non-owning reference to a cached engine. Close decrements the
// cache's reference count rather than closing the engine directly, so a
// still-open sibling handle keeps the engine alive.
type Handle[K kv.Key, V kv.Value] struct {
	cache  *Cache[K, V]
	k      key
	eng    *engine.Engine[K, V]
	closed bool
}

func (h *Handle[K, V]) Engine() *engine.Engine[K, V] { return h.eng }

// Close is idempotent: a second Close on the same handle is a no-op.
func (h *Handle[K, V]) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.cache.release(h.k)
}

// Open returns a handle to the shared engine for (root, readOnly),
// constructing it if it does not already exist. If index_dir(root) does not
// exist, any cached entries for that root are evicted first so a fresh open
// is forced.
func (c *Cache[K, V]) Open(root string, keySize, valSize int, decodeKey kv.KeyDecoder[K], decodeVal kv.ValueDecoder[V], opts ...engine.Option) (*Handle[K, V], error) {
	canon, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("instancecache: canonicalizing root %s: %w", root, err)
	}

	mode := engine.ProbeOptions(opts)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		c.entries = make(map[key]*entry[K, V])
	}

	if !kvio.Exists(kvio.IndexDir(canon)) {
		c.evictLocked(canon)
	}

	k := key{root: canon, readOnly: mode.ReadOnly}
	if ent, ok := c.entries[k]; ok && ent.instances > 0 {
		ent.instances++
		metrics.OpenInstances.WithLabelValues(canon, modeLabel(mode.ReadOnly)).Set(float64(ent.instances))
		if mode.Fresh && !mode.ReadOnly {
			if err := ent.eng.Clear(); err != nil {
				ent.instances--
				return nil, err
			}
		}
		return &Handle[K, V]{cache: c, k: k, eng: ent.eng}, nil
	}

	eng, err := engine.Open[K, V](canon, keySize, valSize, decodeKey, decodeVal, opts...)
	if err != nil {
		return nil, err
	}
	c.entries[k] = &entry[K, V]{eng: eng, instances: 1}
	metrics.OpenInstances.WithLabelValues(canon, modeLabel(mode.ReadOnly)).Set(1)
	return &Handle[K, V]{cache: c, k: k, eng: eng}, nil
}

func (c *Cache[K, V]) release(k key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[k]
	if !ok {
		return nil
	}
	ent.instances--
	metrics.OpenInstances.WithLabelValues(k.root, modeLabel(k.readOnly)).Set(float64(ent.instances))
	if ent.instances > 0 {
		return nil
	}
	delete(c.entries, k)
	return ent.eng.Close()
}

// evictLocked drops both the writable and read-only cache entries for root
// without closing their engines forcibly; it is only called when the
// index directory is already gone, meaning there is nothing left for those
// engines to own on disk.
func (c *Cache[K, V]) evictLocked(root string) {
	delete(c.entries, key{root: root, readOnly: false})
	delete(c.entries, key{root: root, readOnly: true})
}

func modeLabel(readOnly bool) string {
	if readOnly {
		return "readonly"
	}
	return "writable"
}
