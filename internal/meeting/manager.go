package meeting

import (
	"errors"
	"sync"
)

// ErrNoContext is returned by operations that need an active meeting context
// when none has been set.
var ErrNoContext = errors.New("meeting: no active context")

// Manager owns the active meeting context and the history of previous ones.
// All methods are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	current *Context
	history []*Context
}

// NewManager returns an empty Manager with no active context.
func NewManager() *Manager {
	return &Manager{}
}

// Set installs ctx as the active context. Any previously active context is
// moved to the history.
func (m *Manager) Set(ctx *Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.history = append(m.history, m.current)
	}
	m.current = ctx
}

// Current returns a snapshot of the active context, or ErrNoContext when
// none is set. Mutating the returned value does not affect the managed
// context; use [Manager.Update] for that.
func (m *Manager) Current() (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoContext
	}
	return m.current.clone(), nil
}

// Update runs fn against the active context while holding the manager lock.
// Returns ErrNoContext when no context is set.
func (m *Manager) Update(fn func(*Context)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoContext
	}
	fn(m.current)
	return nil
}

// Clear retires the active context into the history. Clearing with no active
// context is a no-op.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.history = append(m.history, m.current)
		m.current = nil
	}
}

// History returns snapshots of all retired contexts, oldest first.
func (m *Manager) History() []*Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Context, len(m.history))
	for i, c := range m.history {
		out[i] = c.clone()
	}
	return out
}
