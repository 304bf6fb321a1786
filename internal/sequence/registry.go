package sequence

import (
	"errors"
	"sort"
	"sync"
)

// Ошибки пакета.
var (
	// ErrSequenceNotFound — sequence с таким именем не зарегистрирован.
	ErrSequenceNotFound = errors.New("sequence not found")

	// ErrDuplicateSequence — sequence с таким именем уже зарегистрирован.
	ErrDuplicateSequence = errors.New("sequence already registered")
)

// Registry — реестр именованных sequences.
type Registry struct {
	mu        sync.RWMutex
	sequences map[string]Sequence
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{sequences: make(map[string]Sequence)}
}

// Register добавляет sequence под именем name.
func (r *Registry) Register(name string, s Sequence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sequences[name]; ok {
		return ErrDuplicateSequence
	}
	r.sequences[name] = s
	return nil
}

// Lookup возвращает sequence по имени.
func (r *Registry) Lookup(name string) (Sequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sequences[name]
	if !ok {
		return nil, ErrSequenceNotFound
	}
	return s, nil
}

// Names возвращает отсортированный список зарегистрированных имён.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sequences))
	for name := range r.sequences {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
