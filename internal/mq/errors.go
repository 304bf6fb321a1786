package mq

import "errors"

// Ошибки пакета.
var (
	// ErrNotConnected — нет живого канала к RabbitMQ.
	ErrNotConnected = errors.New("not connected to RabbitMQ")
)
