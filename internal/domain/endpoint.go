package domain

import "time"

// Endpoint — именованный адрес доставки.
//
// Endpoint'ы описываются в конфигурации и резолвятся по имени:
// либо из параметра процессора (target.endpoint), либо из самого
// сообщения (Message.Endpoint).
type Endpoint struct {
	// Name — имя endpoint'а, по которому его находят процессоры.
	Name string `json:"name"`

	// URL — адрес, на который уходят сообщения.
	URL string `json:"url"`

	// Timeout — таймаут блокирующей отправки.
	// Ноль означает "использовать таймаут транспорта по умолчанию".
	Timeout time.Duration `json:"timeout,omitempty"`

	// BreakerThreshold — число подряд идущих неудач, после которого
	// circuit breaker открывается. Ноль отключает breaker.
	BreakerThreshold uint32 `json:"breaker_threshold,omitempty"`
}
