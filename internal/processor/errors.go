package processor

import "errors"

// Ошибки пакета.
var (
	// ErrProcessorNotFound — процессор с таким именем не зарегистрирован.
	ErrProcessorNotFound = errors.New("message processor not found")

	// ErrDuplicateProcessor — процессор с таким именем уже зарегистрирован.
	ErrDuplicateProcessor = errors.New("message processor already registered")
)
