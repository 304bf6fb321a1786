package repo

import "errors"

// Общие ошибки репозитория.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")
)
