package state

import (
	"sync"
	"time"
)

// DefaultTTL время, после которого брошенный диалог забывается
const DefaultTTL = 30 * time.Minute

// Manager хранит незавершённые диалоги пользователей в памяти
type Manager struct {
	mu      sync.RWMutex
	dialogs map[int64]Dialog // telegramID -> Dialog
	ttl     time.Duration
	now     func() time.Time
}

// NewManager создаёт менеджер; ttl <= 0 означает DefaultTTL
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		dialogs: make(map[int64]Dialog),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get возвращает активный диалог пользователя
func (m *Manager) Get(telegramID int64) (Dialog, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.dialogs[telegramID]
	if !ok || m.expired(d) {
		return Dialog{}, false
	}
	return d, true
}

// GetState получает текущее состояние пользователя
func (m *Manager) GetState(telegramID int64) UserState {
	d, ok := m.Get(telegramID)
	if !ok {
		return StateNone
	}
	return d.State
}

// Start начинает диалог, заменяя предыдущий
func (m *Manager) Start(telegramID int64, d Dialog) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d.State == StateNone {
		delete(m.dialogs, telegramID)
		return
	}
	d.StartedAt = m.now()
	m.dialogs[telegramID] = d
}

// Clear завершает диалог пользователя
func (m *Manager) Clear(telegramID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.dialogs, telegramID)
}

// Cleanup удаляет просроченные диалоги и возвращает их количество
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, d := range m.dialogs {
		if m.expired(d) {
			delete(m.dialogs, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) expired(d Dialog) bool {
	return m.now().Sub(d.StartedAt) > m.ttl
}
