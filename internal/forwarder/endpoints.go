package forwarder

import "github.com/shaiso/Courier/internal/domain"

// EndpointMap — статический резолвер endpoint'ов из конфигурации.
type EndpointMap map[string]*domain.Endpoint

// Resolve возвращает endpoint по имени.
func (m EndpointMap) Resolve(name string) (*domain.Endpoint, bool) {
	ep, ok := m[name]
	return ep, ok
}
