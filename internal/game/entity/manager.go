package entity

import (
	"slices"
	"sync"
)

// Manager keeps the NPCs of one map. It is safe for concurrent use; the NPCs
// it returns are not.
type Manager struct {
	mu     sync.RWMutex
	npcs   map[uint32]*NPC
	nextID uint32
}

// NewManager creates an empty NPC registry.
func NewManager() *Manager {
	return &Manager{
		npcs:   make(map[uint32]*NPC),
		nextID: 1,
	}
}

// Add registers an NPC. An NPC with ID 0 is assigned the next free id.
// Adding an id that already exists replaces the previous NPC.
func (m *Manager) Add(n *NPC) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.ID == 0 {
		for m.npcs[m.nextID] != nil {
			m.nextID++
		}
		n.ID = m.nextID
	}
	if n.ID >= m.nextID {
		m.nextID = n.ID + 1
	}
	m.npcs[n.ID] = n
}

// Remove removes an NPC.
func (m *Manager) Remove(id uint32) {
	m.mu.Lock()
	delete(m.npcs, id)
	m.mu.Unlock()
}

// Get returns an NPC by ID, or nil.
func (m *Manager) Get(id uint32) *NPC {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.npcs[id]
}

// ByName returns the first NPC, in id order, with the given name.
func (m *Manager) ByName(name string) *NPC {
	for _, n := range m.All() {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// All returns every NPC sorted by id.
func (m *Manager) All() []*NPC {
	m.mu.RLock()
	result := make([]*NPC, 0, len(m.npcs))
	for _, n := range m.npcs {
		result = append(result, n)
	}
	m.mu.RUnlock()

	slices.SortFunc(result, func(a, b *NPC) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return result
}

// CountByAction returns the number of NPCs in the given action.
func (m *Manager) CountByAction(a Action) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, n := range m.npcs {
		if n.Action == a {
			count++
		}
	}
	return count
}

// Count returns the number of NPCs.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.npcs)
}

// Clear removes every NPC.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.npcs = make(map[uint32]*NPC)
	m.nextID = 1
	m.mu.Unlock()
}
