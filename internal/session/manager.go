package session

import "sync"

// Manager holds one machine per chat. Machines are created lazily and are
// fully isolated from each other; the lock only guards the map itself.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Machine
	factory  func() *Machine
}

// NewManager creates a manager that builds machines with the given factory.
func NewManager(factory func() *Machine) *Manager {
	return &Manager{
		sessions: make(map[int64]*Machine),
		factory:  factory,
	}
}

// Get returns the machine for a chat, creating it on first use.
func (m *Manager) Get(chatID int64) *Machine {
	m.mu.RLock()
	machine, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if ok {
		return machine
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if machine, ok := m.sessions[chatID]; ok {
		return machine
	}
	machine = m.factory()
	m.sessions[chatID] = machine
	return machine
}

// Clear removes a chat's machine.
func (m *Manager) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}
