package store

import (
	"sort"
	"sync"
)

// Registry — реестр именованных store'ов.
// Используется при сборке процессоров и в admin API.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]Store
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]Store)}
}

// Register добавляет store в реестр.
// Возвращает ErrDuplicateStore, если имя уже занято.
func (r *Registry) Register(s Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[s.Name()]; ok {
		return ErrDuplicateStore
	}
	r.stores[s.Name()] = s
	return nil
}

// Get возвращает store по имени.
func (r *Registry) Get(name string) (Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[name]
	if !ok {
		return nil, ErrStoreNotFound
	}
	return s, nil
}

// Names возвращает отсортированный список имён зарегистрированных store'ов.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
