package state

import "sync"

type editKey struct {
	userID   int64
	entityID int
}

type memoryManager struct {
	mu    sync.RWMutex
	users map[int64]*UserSession
	edits map[editKey]*EditSession
	seq   uint64
}

// NewMemoryManager constructs the in-memory Manager.
func NewMemoryManager() Manager {
	return &memoryManager{
		users: make(map[int64]*UserSession),
		edits: make(map[editKey]*EditSession),
	}
}

func (m *memoryManager) userLocked(userID int64) *UserSession {
	sess, ok := m.users[userID]
	if !ok {
		sess = &UserSession{CurrentPage: 1, CurrentFilter: "all"}
		m.users[userID] = sess
	}
	return sess
}

// UserSession returns the user's navigation state, creating the default one.
func (m *memoryManager) UserSession(userID int64) UserSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.userLocked(userID)
}

func (m *memoryManager) UpdateUserSession(userID int64, fn func(*UserSession)) UserSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.userLocked(userID)
	if fn != nil {
		fn(sess)
	}
	return *sess
}

// EditSession returns the session for the pair, creating an idle one.
func (m *memoryManager) EditSession(userID int64, entityID int) EditSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := editKey{userID, entityID}
	sess, ok := m.edits[key]
	if !ok {
		sess = &EditSession{UserID: userID, EntityID: entityID}
		m.edits[key] = sess
	}
	return sess.clone()
}

func (m *memoryManager) LookupEditSession(userID int64, entityID int) (EditSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.edits[editKey{userID, entityID}]
	if !ok {
		return EditSession{}, false
	}
	return sess.clone(), true
}

// StartEdit enters mode for the pair with fresh staged data and marks it as
// the user's most recent session.
func (m *memoryManager) StartEdit(userID int64, entityID int, mode Mode, messageID int) EditSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	sess := &EditSession{
		UserID:    userID,
		EntityID:  entityID,
		Mode:      mode,
		MessageID: messageID,
		seq:       m.seq,
	}
	m.edits[editKey{userID, entityID}] = sess
	return sess.clone()
}

func (m *memoryManager) UpdateEditSession(userID int64, entityID int, fn func(*EditSession)) (EditSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.edits[editKey{userID, entityID}]
	if !ok {
		return EditSession{}, false
	}
	if fn != nil {
		fn(sess)
		sess.UserID, sess.EntityID = userID, entityID
	}
	return sess.clone(), true
}

// ActiveEditSession returns the user's most recently entered session that is
// editing a field.
func (m *memoryManager) ActiveEditSession(userID int64) (EditSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *EditSession
	for key, sess := range m.edits {
		if key.userID != userID || !sess.Active() {
			continue
		}
		if best == nil || sess.seq > best.seq {
			best = sess
		}
	}
	if best == nil {
		return EditSession{}, false
	}
	return best.clone(), true
}

func (m *memoryManager) ClearEditSession(userID int64, entityID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.edits, editKey{userID, entityID})
}

// ClearUser drops the navigation state and every edit session of the user.
func (m *memoryManager) ClearUser(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
	for key := range m.edits {
		if key.userID == userID {
			delete(m.edits, key)
		}
	}
}
