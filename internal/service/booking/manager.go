package booking

import (
	"sync"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
)

// Manager хранит открытый мастер записи каждого пользователя.
// У пользователя не больше одного мастера: новый заменяет старый.
type Manager struct {
	deps      Deps
	mu        sync.RWMutex
	workflows map[int64]*Workflow
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:      deps,
		workflows: make(map[int64]*Workflow),
	}
}

// Begin открывает новый мастер для пользователя. Ошибки мастера
// показываются через notifier, если он задан.
func (m *Manager) Begin(telegramID int64, gateway Gateway, session *model.Session, notifier service.Notifier) *Workflow {
	deps := m.deps
	if notifier != nil {
		deps.Notifier = notifier
	}
	w := NewWorkflow(gateway, session, deps)

	m.mu.Lock()
	m.workflows[telegramID] = w
	m.mu.Unlock()

	return w
}

// Get возвращает открытый мастер пользователя
func (m *Manager) Get(telegramID int64) (*Workflow, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.workflows[telegramID]
	if !ok || w.Finished() {
		return nil, false
	}
	return w, true
}

// Finish закрывает мастер пользователя
func (m *Manager) Finish(telegramID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workflows, telegramID)
}
