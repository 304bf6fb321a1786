package store

import "errors"

// Ошибки message store.
var (
	// ErrConsumerClosed — consumer закрыт, операции недоступны.
	ErrConsumerClosed = errors.New("consumer is closed")

	// ErrNoPendingMessage — нечего подтверждать: FetchNext ещё не выдал сообщение.
	ErrNoPendingMessage = errors.New("no message pending acknowledgement")

	// ErrStoreNotFound — store с таким именем не зарегистрирован.
	ErrStoreNotFound = errors.New("store not found")

	// ErrDuplicateStore — store с таким именем уже зарегистрирован.
	ErrDuplicateStore = errors.New("store already registered")
)
