package forwarder

import "errors"

// Ошибки форвардера.
var (
	// ErrInvalidParameter — параметр процессора не распарсился.
	ErrInvalidParameter = errors.New("invalid forwarder parameter")

	// ErrConsumerUnavailable — store не выдал consumer'а при инициализации.
	ErrConsumerUnavailable = errors.New("message consumer unavailable")
)
