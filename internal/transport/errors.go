package transport

import "errors"

// Ошибки транспорта.
var (
	// ErrNilEndpoint — отправка без endpoint'а невозможна.
	ErrNilEndpoint = errors.New("nil endpoint")

	// errStatusFailure помечает ответ с ошибочным статусом для
	// учёта в circuit breaker'е. Наружу не возвращается: форвардер
	// видит ошибку через SenderError на самом ответе.
	errStatusFailure = errors.New("endpoint returned error status")
)
