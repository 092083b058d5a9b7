package appointments

import (
	"sync"

	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
)

// Manager хранит список записей каждого пользователя
type Manager struct {
	deps   Deps
	mu     sync.RWMutex
	models map[int64]*ViewModel
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:   deps,
		models: make(map[int64]*ViewModel),
	}
}

// Open создаёт новый список для пользователя, заменяя прежний
func (m *Manager) Open(telegramID int64, gateway Gateway, session *model.Session, notifier service.Notifier) *ViewModel {
	deps := m.deps
	if notifier != nil {
		deps.Notifier = notifier
	}
	vm := NewViewModel(gateway, session, deps)

	m.mu.Lock()
	m.models[telegramID] = vm
	m.mu.Unlock()

	return vm
}

// Get возвращает открытый список пользователя
func (m *Manager) Get(telegramID int64) (*ViewModel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vm, ok := m.models[telegramID]
	return vm, ok
}

// Drop забывает список пользователя
func (m *Manager) Drop(telegramID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.models, telegramID)
}
