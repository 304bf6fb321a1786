package processor

import (
	"sort"
	"sync"
)

// Registry — реестр именованных processor'ов.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]*Processor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]*Processor)}
}

// Register добавляет процессор в реестр.
func (r *Registry) Register(p *Processor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.processors[p.Name()]; ok {
		return ErrDuplicateProcessor
	}
	r.processors[p.Name()] = p
	return nil
}

// Get возвращает процессор по имени.
func (r *Registry) Get(name string) (*Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[name]
	if !ok {
		return nil, ErrProcessorNotFound
	}
	return p, nil
}

// List возвращает процессоры, отсортированные по имени.
func (r *Registry) List() []*Processor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Processor, 0, len(r.processors))
	for _, p := range r.processors {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
