package index

import "sync"

// Loader rebuilds the entries of one conversation's index from persistent
// storage, in insertion order.
type Loader func(conversationID uint) ([]Entry, error)

// Manager owns one index per conversation. An index missing from the map (for
// example after a restart) is hydrated through the loader on first use.
type Manager struct {
	mu      sync.Mutex
	loader  Loader
	indexes map[uint]*Index
}

func NewManager(loader Loader) *Manager {
	return &Manager{
		loader:  loader,
		indexes: make(map[uint]*Index),
	}
}

// Get returns the conversation's index, hydrating it from storage when it is
// not resident. The returned index may be empty.
func (m *Manager) Get(conversationID uint) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ix, ok := m.indexes[conversationID]; ok {
		return ix, nil
	}
	entries, err := m.loader(conversationID)
	if err != nil {
		return nil, err
	}
	ix := New()
	ix.Append(entries)
	m.indexes[conversationID] = ix
	return ix, nil
}

// Invalidate drops the resident index so the next Get rebuilds it from
// storage. Used after document deletion, which is not an append.
func (m *Manager) Invalidate(conversationID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indexes, conversationID)
}
