package vectorindex

import (
	"os"
	"path/filepath"
	"sync"

	"college-chatbot-platform/internal/logger"
)

// Manager owns the live set of named indices (one per QA domain plus the
// document index). Readers always see a complete index: rebuilds prepare
// a new Index off to the side and swap it in under the write lock.
type Manager struct {
	dir string

	mu      sync.RWMutex
	indices map[string]*Index
}

func NewManager(dir string) *Manager {
	return &Manager{
		dir:     dir,
		indices: make(map[string]*Index),
	}
}

// Path returns the on-disk location for a named index.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, name+".idx")
}

// Get returns the named index, lazily loading it from disk on first use.
// A missing index file yields a cached empty index rather than an error,
// so callers degrade to their no-knowledge responses.
func (m *Manager) Get(name string) *Index {
	m.mu.RLock()
	idx, ok := m.indices[name]
	m.mu.RUnlock()
	if ok {
		return idx
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok := m.indices[name]; ok {
		return idx
	}

	idx, err := Load(m.Path(name))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("Failed to load index", "name", name, "error", err)
		} else {
			logger.Warn("Index not found, serving empty", "name", name)
		}
		idx = &Index{}
	}
	m.indices[name] = idx
	return idx
}

// Swap atomically replaces the named index in memory.
func (m *Manager) Swap(name string, idx *Index) {
	m.mu.Lock()
	m.indices[name] = idx
	m.mu.Unlock()
}

// Persist saves the index to disk and then swaps it live. The in-memory
// swap only happens after a successful write so a failed save never
// leaves memory and disk disagreeing.
func (m *Manager) Persist(name string, idx *Index) error {
	if err := idx.Save(m.Path(name)); err != nil {
		return err
	}
	m.Swap(name, idx)
	logger.Info("Index persisted", "name", name, "vectors", idx.Len())
	return nil
}

// Warmup preloads the given indices so the first query does not pay the
// disk read.
func (m *Manager) Warmup(names []string) {
	for _, name := range names {
		idx := m.Get(name)
		logger.Info("Index warmed", "name", name, "vectors", idx.Len())
	}
}
