package store

import (
	"context"

	"github.com/shaiso/Courier/internal/domain"
)

// Store — именованное хранилище сообщений, ожидающих доставки.
type Store interface {
	// Name возвращает имя store'а.
	Name() string

	// Consumer создаёт нового consumer'а для этого store.
	Consumer() (Consumer, error)

	// Producer создаёт нового producer'а для этого store.
	Producer() (Producer, error)

	// Depth возвращает текущее число сообщений в store.
	// Возвращает -1, если backend не умеет считать размер.
	Depth(ctx context.Context) (int, error)
}

// Consumer — читающая сторона message store.
//
// Контракт:
//   - FetchNext отдаёт голову очереди, не удаляя её из store
//   - Acknowledge удаляет последнее выданное сообщение
//   - до Acknowledge повторный FetchNext возвращает то же сообщение
//
// Consumer не потокобезопасен: каждым экземпляром владеет ровно
// один форвардер.
type Consumer interface {
	// FetchNext возвращает следующее сообщение или nil, если store пуст.
	FetchNext(ctx context.Context) (*domain.Message, error)

	// Acknowledge подтверждает доставку последнего выданного сообщения.
	Acknowledge(ctx context.Context) error

	// IsAlive сообщает, живо ли соединение consumer'а со store.
	IsAlive() bool

	// Close освобождает ресурсы consumer'а.
	Close() error
}

// Producer — пишущая сторона message store.
type Producer interface {
	// Enqueue кладёт сообщение в хвост очереди.
	Enqueue(ctx context.Context, msg *domain.Message) error
}
