package model

import (
	"sync"

	"github.com/gramlinux/GramManager/system/shared"
)

// Model tracks the last known feature values and which writes are in flight.
// It holds no widgets
type Model struct {
	mu      sync.Mutex
	order   []string
	states  map[string]shared.State
	pending map[string]bool
}

func New(states []shared.State) *Model {
	m := &Model{
		states:  make(map[string]shared.State),
		pending: make(map[string]bool),
	}
	m.Update(states)
	return m
}

// Update replaces the known states, e.g. after a refresh
func (m *Model) Update(states []shared.State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range states {
		if _, ok := m.states[s.Key]; !ok {
			m.order = append(m.order, s.Key)
		}
		m.states[s.Key] = s
	}
}

func (m *Model) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

func (m *Model) State(key string) (shared.State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.states[key]
	return s, ok
}

// Available reports whether the control for key should be sensitive
func (m *Model) Available(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.states[key]
	return ok && s.Available && !m.pending[key]
}

func (m *Model) Pending(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pending[key]
}

// Begin marks a write of value to key as in flight. It returns false when
// the write should not be started
func (m *Model) Begin(key, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.states[key]
	if !ok || !s.Available || m.pending[key] {
		return false
	}
	if s.Value == value {
		return false
	}
	m.pending[key] = true
	return true
}

// Finish completes the write started by Begin and returns the value the
// control should show. On failure that is the value from before the write
func (m *Model) Finish(key string, result shared.State, err error) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pending, key)
	s := m.states[key]
	if err != nil {
		return s.Value
	}
	if result.Key == key {
		s = result
	}
	m.states[key] = s
	return s.Value
}

// BatteryLabel formats a charge limit value for the dropdown
func BatteryLabel(value string) string {
	return value + "%"
}
