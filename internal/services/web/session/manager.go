package session

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// Manager hands out one shared Cell per browser session. Cells are reference
// counted and dropped once the last request holding them releases.
type Manager struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	cells map[string]*Cell
}

// NewManager creates a manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now, cells: map[string]*Cell{}}
}

// Acquire returns the cell for sessionID and takes a reference on it. Every
// Acquire must be paired with Release. A blank id yields a detached cell that
// never holds a token.
func (m *Manager) Acquire(sessionID string) *Cell {
	sessionID = strings.TrimSpace(sessionID)
	if m == nil || sessionID == "" {
		return &Cell{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cell, ok := m.cells[sessionID]
	if !ok {
		cell = &Cell{manager: m, id: sessionID}
		m.cells[sessionID] = cell
	}
	cell.refs++
	return cell
}

// Active reports how many cells are currently referenced.
func (m *Manager) Active() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cells)
}

func (m *Manager) release(cell *Cell) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cell.refs <= 0 {
		return
	}
	cell.refs--
	if cell.refs == 0 && m.cells[cell.id] == cell {
		delete(m.cells, cell.id)
	}
}

// Cell is the token holder for one browser session. Reads are served from
// the cell once loaded; writes go through to the store.
type Cell struct {
	manager *Manager
	id      string
	refs    int // guarded by manager.mu

	mu     sync.Mutex
	loaded bool
	token  string
}

// ID returns the browser-session id, or "" for a detached cell.
func (c *Cell) ID() string {
	if c == nil {
		return ""
	}
	return c.id
}

// Token returns the current token. Store failures are logged and reported as
// no token.
func (c *Cell) Token(ctx context.Context) (string, bool) {
	if c == nil || c.manager == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(ctx); err != nil {
		log.Printf("session: load token: %v", err)
		return "", false
	}
	return c.token, c.token != ""
}

func (c *Cell) loadLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	record, ok, err := c.manager.store.Get(ctx, c.id)
	if err != nil {
		return err
	}
	if ok {
		c.token = record.Token
	}
	c.loaded = true
	return nil
}

// Set replaces the token. The cell keeps its previous view if the store
// rejects the write.
func (c *Cell) Set(ctx context.Context, token string) error {
	if c == nil || c.manager == nil {
		return ErrStoreNotConfigured
	}
	token = strings.TrimSpace(token)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.manager.store.Put(ctx, Record{SessionID: c.id, Token: token, UpdatedAt: c.manager.now().UTC()}); err != nil {
		return err
	}
	c.token = token
	c.loaded = true
	return nil
}

// Clear removes the token.
func (c *Cell) Clear(ctx context.Context) error {
	if c == nil || c.manager == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearLocked(ctx)
}

// ClearIf removes the token only while it still equals token, so a late
// failure about an old token cannot wipe a newer one. It reports whether the
// token was cleared.
func (c *Cell) ClearIf(ctx context.Context, token string) (bool, error) {
	if c == nil || c.manager == nil {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// Compare against the store, since a released cell may be stale.
	record, ok, err := c.manager.store.Get(ctx, c.id)
	if err != nil {
		return false, err
	}
	c.token = ""
	if ok {
		c.token = record.Token
	}
	c.loaded = true
	if c.token != token {
		return false, nil
	}
	if err := c.clearLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cell) clearLocked(ctx context.Context) error {
	c.token = ""
	c.loaded = true
	return c.manager.store.Delete(ctx, c.id)
}

// Release drops the caller's reference. It is safe to call on a detached cell.
func (c *Cell) Release() {
	if c == nil || c.manager == nil {
		return
	}
	c.manager.release(c)
}
