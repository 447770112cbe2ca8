package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/orieg/edu-policy-navigator-sub001/internal/cluster"
	"github.com/orieg/edu-policy-navigator-sub001/internal/lookup"
	"github.com/orieg/edu-policy-navigator-sub001/internal/search"
)

// Snapshot is one fully constructed generation of the service's read path:
// the loaded corpus, the engine built over it, and the lookup index. All of
// it is immutable; reload means building a new Snapshot and swapping.
type Snapshot struct {
	Corpus   *Corpus
	Engine   *search.Engine
	Store    *cluster.Store
	Lookup   *lookup.Index
	LoadedAt time.Time
}

// Manager owns the current Snapshot behind an atomic pointer. Readers grab
// the pointer once per request and never see a half-loaded state; a failed
// reload keeps the previous snapshot serving.
type Manager struct {
	path    string
	logger  *zap.Logger
	workers int

	lookupEnabled bool
	lookupPath    string
	fuzziness     int

	current atomic.Pointer[Snapshot]
	loadMu  sync.Mutex

	// Superseded lookup indexes. Requests that grabbed an earlier snapshot may
	// still be reading them, so they stay open until Close.
	gen     uint64
	retired []*lookup.Index
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger attaches a logger used for load diagnostics and passed
// down to the structures each snapshot builds.
func WithManagerLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithSearchWorkers caps the engine's stage-2 fan-out.
func WithSearchWorkers(n int) ManagerOption {
	return func(m *Manager) { m.workers = n }
}

// WithLookup enables the name-lookup index. indexPath "" keeps it in memory;
// otherwise each loaded snapshot builds its index under a fresh subdirectory
// of indexPath, so a reload never touches the files an earlier snapshot still
// reads from.
func WithLookup(indexPath string, fuzziness int) ManagerOption {
	return func(m *Manager) {
		m.lookupEnabled = true
		m.lookupPath = indexPath
		m.fuzziness = fuzziness
	}
}

// NewManager creates a manager for the corpus at path. Call Load before
// Snapshot.
func NewManager(path string, opts ...ManagerOption) *Manager {
	m := &Manager{path: path}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads the corpus from disk, builds a fresh engine and lookup index,
// and swaps them in atomically. On error the previous snapshot, if any,
// stays current.
func (m *Manager) Load() error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	start := time.Now()
	c, err := Load(m.path, m.logger)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	var indexOpts []cluster.IndexOption
	var storeOpts []cluster.StoreOption
	var engineOpts []search.Option
	if m.logger != nil {
		indexOpts = append(indexOpts, cluster.WithIndexLogger(m.logger))
		storeOpts = append(storeOpts, cluster.WithStoreLogger(m.logger))
		engineOpts = append(engineOpts, search.WithLogger(m.logger))
	}
	if m.workers > 0 {
		engineOpts = append(engineOpts, search.WithWorkers(m.workers))
	}

	index, err := cluster.NewCentroidIndex(c.Dimensions, c.Centroids, indexOpts...)
	if err != nil {
		return fmt.Errorf("build centroid index: %w", err)
	}
	store, err := cluster.NewStore(c.Dimensions, c.Records, storeOpts...)
	if err != nil {
		return fmt.Errorf("build cluster store: %w", err)
	}
	engine, err := search.NewEngine(index, store, engineOpts...)
	if err != nil {
		return fmt.Errorf("build search engine: %w", err)
	}

	snap := &Snapshot{
		Corpus:   c,
		Engine:   engine,
		Store:    store,
		LoadedAt: time.Now(),
	}
	if m.lookupEnabled {
		var lookupOpts []lookup.Option
		if m.lookupPath != "" {
			if m.gen == 0 {
				// First load of this process: generations left behind by a
				// previous run are stale, nothing holds them open yet.
				if err := os.RemoveAll(m.lookupPath); err != nil {
					return fmt.Errorf("clear lookup index dir: %w", err)
				}
			}
			m.gen++
			genPath := filepath.Join(m.lookupPath, strconv.FormatUint(m.gen, 10))
			lookupOpts = append(lookupOpts, lookup.WithPath(genPath))
		}
		if m.fuzziness > 0 {
			lookupOpts = append(lookupOpts, lookup.WithFuzziness(m.fuzziness))
		}
		if m.logger != nil {
			lookupOpts = append(lookupOpts, lookup.WithLogger(m.logger))
		}
		snap.Lookup, err = lookup.New(c.AllDocuments(), lookupOpts...)
		if err != nil {
			return fmt.Errorf("build lookup index: %w", err)
		}
	}

	old := m.current.Swap(snap)
	if old != nil && old.Lookup != nil {
		// Retire rather than close: a request that loaded the old snapshot
		// before the swap may still be searching it.
		m.retired = append(m.retired, old.Lookup)
	}
	if m.logger != nil {
		m.logger.Info("corpus snapshot loaded",
			zap.String("path", c.Path),
			zap.String("format", string(c.Format)),
			zap.Int("dimensions", c.Dimensions),
			zap.Int("clusters", len(c.Records)),
			zap.Int("documents", c.NumDocuments()),
			zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}

// Snapshot returns the current snapshot, or nil before the first successful
// Load.
func (m *Manager) Snapshot() *Snapshot {
	return m.current.Load()
}

// Path returns the corpus path the manager loads from.
func (m *Manager) Path() string { return m.path }

// Close releases the current snapshot's resources along with every lookup
// index retired by earlier reloads. Callers must be done with all snapshots.
func (m *Manager) Close() error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	var firstErr error
	for _, idx := range m.retired {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.retired = nil
	snap := m.current.Swap(nil)
	if snap != nil && snap.Lookup != nil {
		if err := snap.Lookup.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
