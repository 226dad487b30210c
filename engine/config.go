package engine

// config holds the engine construction options, built by functional
// options the way store.New's config/Option pair does.
type config struct {
	fresh    bool
	readOnly bool
	// logSize bounds the log file in entries (not bytes); Replace derives
	// the byte budget from it as logSize * entry size.
	logSize int
}

// Option configures an Engine at Open time.
type Option func(*config)

// WithFresh truncates any existing data on open, starting from empty.
func WithFresh(fresh bool) Option {
	return func(c *config) { c.fresh = fresh }
}

// WithReadOnly opens the engine as a read-only observer. Read-only handles
// never write to the log or index and resynchronize from disk at the start
// of every read.
func WithReadOnly(readOnly bool) Option {
	return func(c *config) { c.readOnly = readOnly }
}

// WithLogSize sets the soft log budget in entries. Exceeding it on a write
// triggers a merge after the write completes.
func WithLogSize(entries int) Option {
	return func(c *config) { c.logSize = entries }
}

func defaultConfig() config {
	return config{logSize: 4096}
}

func (c *config) apply(opts []Option) {
	for _, o := range opts {
		o(c)
	}
}

// OpenMode is the subset of engine configuration visible to instancecache:
// enough to compute a cache key and decide whether a reused cache entry
// needs clearing, without exposing the unexported config type.
type OpenMode struct {
	ReadOnly bool
	Fresh    bool
}

// ProbeOptions applies opts to a default configuration and reports the
// resulting open mode.
func ProbeOptions(opts []Option) OpenMode {
	cfg := defaultConfig()
	cfg.apply(opts)
	return OpenMode{ReadOnly: cfg.readOnly, Fresh: cfg.fresh}
}
