package refresh

import (
	"context"
	"fmt"
	"sync"
)

// Forgetter drops all held state for an item. The reconciler satisfies this.
type Forgetter interface {
	Forget(item string)
}

// Manager owns the active sessions and supports switching the tracked item
// set at runtime. Teardown is deterministic: Release returns only after the
// old session has stopped producing events and its state is gone.
type Manager struct {
	opts  Options
	state Forgetter

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager. All sessions share opts.
func NewManager(opts Options, state Forgetter) *Manager {
	return &Manager{
		opts:     opts,
		state:    state,
		sessions: make(map[string]*Session),
	}
}

// Track starts a session for an item. Tracking an already-tracked item is a
// no-op.
func (m *Manager) Track(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[itemID]; ok {
		return nil
	}

	session := NewSession(itemID, m.opts)
	if err := session.Start(ctx); err != nil {
		return err
	}
	m.sessions[itemID] = session
	return nil
}

// Release stops an item's session and drops its state.
func (m *Manager) Release(itemID string) {
	m.mu.Lock()
	session, ok := m.sessions[itemID]
	delete(m.sessions, itemID)
	m.mu.Unlock()

	if !ok {
		return
	}
	session.Stop()
	if m.state != nil {
		m.state.Forget(itemID)
	}
}

// Switch atomically swaps one tracked item for another. The old session is
// fully stopped before the new one loads, so events from the two never
// interleave.
func (m *Manager) Switch(ctx context.Context, oldItem, newItem string) error {
	if oldItem == newItem {
		return nil
	}
	m.Release(oldItem)
	if err := m.Track(ctx, newItem); err != nil {
		return fmt.Errorf("switch to item %s: %w", newItem, err)
	}
	return nil
}

// Tracked reports whether an item currently has a session.
func (m *Manager) Tracked(itemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[itemID]
	return ok
}

// Close stops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}
