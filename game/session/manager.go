package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/wricardo/fibtiles/game/engine"
	"github.com/wricardo/fibtiles/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager keeps the live sessions in memory, keyed by lower-cased id, and
// mirrors them to an optional SessionPersistence. It is safe for concurrent use.
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	mu          sync.RWMutex
}

// NewManager returns a memory-only manager
func NewManager() *Manager {
	return NewManagerWithPersistence(nil)
}

// NewManagerWithPersistence returns a manager that saves sessions to store
func NewManagerWithPersistence(store SessionPersistence) *Manager {
	return &Manager{
		sessions:    make(map[string]*service.Session),
		persistence: store,
	}
}

// Create starts a game for config under id. An empty id gets a random
// 4-hex-digit one.
func (m *Manager) Create(id string, config *engine.GameConfig) (*service.Session, error) {
	if id == "" {
		id = m.generateSessionID()
	}
	if !validSessionID(id) {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}

	now := time.Now()
	sess := &service.Session{
		ID:             id,
		Engine:         eng,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[strings.ToLower(id)] = sess
	m.store(sess, "create")

	return sess, nil
}

// Get finds a session by id, ignoring case. Sessions missing from memory are
// loaded from persistence and cached.
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	sess, _, ok := m.lookup(id)
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	if m.persistence == nil || !validSessionID(id) || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}
	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, _, ok := m.lookup(id); ok {
		return sess, nil
	}
	m.sessions[strings.ToLower(id)] = loaded
	return loaded, nil
}

// GetOrCreate returns the session for id, creating it with config if it does not exist
func (m *Manager) GetOrCreate(id string, config *engine.GameConfig) (*service.Session, error) {
	sess, err := m.Get(id)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, ErrSessionNotFound):
		return m.Create(id, config)
	default:
		return nil, err
	}
}

// List returns the sessions held in memory, in no particular order
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Values(m.sessions)
}

// Delete drops a session from memory and from persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, key, inMemory := m.lookup(id)
	if inMemory {
		delete(m.sessions, key)
	}

	stored := m.persistence != nil && validSessionID(id) && m.persistence.Exists(id)
	if stored {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
	}
	if !inMemory && !stored {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory evicts a session but leaves its persisted copy alone
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, key, ok := m.lookup(id)
	if !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	return nil
}

// UpdateLastAccessed stamps the session with the current time and saves it
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, _, ok := m.lookup(id)
	if !ok {
		return ErrSessionNotFound
	}
	sess.LastAccessedAt = time.Now()
	m.store(sess, "access update")
	return nil
}

// LastAccessed reads a session's access time. UpdateLastAccessed writes it
// under m.mu, so readers must come through here.
func (m *Manager) LastAccessed(id string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, _, ok := m.lookup(id)
	if !ok {
		return time.Time{}, ErrSessionNotFound
	}
	return sess.LastAccessedAt, nil
}

// Save writes one session to persistence. It is a no-op without a store.
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, _, ok := m.lookup(id)
	if !ok {
		return ErrSessionNotFound
	}
	return m.persistence.Save(sess)
}

// CleanupExpiredSessions evicts sessions idle for longer than maxAge and
// returns how many were removed. Persisted copies are kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	expired := lo.PickBy(m.sessions, func(_ string, sess *service.Session) bool {
		return sess.LastAccessedAt.Before(cutoff)
	})
	for key := range expired {
		delete(m.sessions, key)
	}

	if len(expired) > 0 {
		log.Debug().Int("removed", len(expired)).Dur("max_age", maxAge).Msg("expired idle sessions")
	}
	return len(expired)
}

// Count returns the number of sessions in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions pulls every stored session that is not already in memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("list stored sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if m.sessionExists(id) {
			continue
		}
		sess, err := m.persistence.Load(id)
		if err != nil {
			log.Warn().Err(err).Str("session", id).Msg("skipping unreadable session")
			continue
		}
		m.sessions[strings.ToLower(id)] = sess
		loaded++
	}

	if loaded > 0 {
		log.Info().Int("count", loaded).Msg("loaded persisted sessions")
	}
	return nil
}

// SaveAllSessions writes every in-memory session, reporting how many failed
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	failed := 0
	for _, sess := range m.sessions {
		if err := m.persistence.Save(sess); err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Msg("failed to save session")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to save %d sessions", failed)
	}
	return nil
}

// store persists sess if a store is configured. Failures are logged. Callers hold m.mu.
func (m *Manager) store(sess *service.Session, after string) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(sess); err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msgf("failed to persist session after %s", after)
	}
}

// lookup finds a session by its lower-cased id, then by the id as given, and
// returns the map key holding it. Callers hold m.mu.
func (m *Manager) lookup(id string) (*service.Session, string, bool) {
	for _, key := range []string{strings.ToLower(id), id} {
		if sess, ok := m.sessions[key]; ok {
			return sess, key, true
		}
	}
	return nil, "", false
}

func (m *Manager) sessionExists(id string) bool {
	_, _, ok := m.lookup(id)
	return ok
}

// generateSessionID picks a random 4-hex-digit id not already in use
func (m *Manager) generateSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for {
		id := hex.EncodeToString(frand.Bytes(2))
		if !m.sessionExists(id) {
			return id
		}
	}
}

// validSessionID accepts short ids made of letters, digits, '-' and '_'.
// Ids become file names and SQL keys, so nothing else is allowed.
func validSessionID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
