package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Courier/internal/domain"
)

// InMemory — message store в памяти процесса.
// Подходит для тестов и конфигураций без внешнего брокера.
// Содержимое теряется при рестарте.
type InMemory struct {
	name string

	mu       sync.Mutex
	messages []*domain.Message
}

// NewInMemory создаёт пустой in-memory store.
func NewInMemory(name string) *InMemory {
	return &InMemory{name: name}
}

// Name возвращает имя store'а.
func (s *InMemory) Name() string { return s.name }

// Consumer создаёт consumer'а поверх этого store.
func (s *InMemory) Consumer() (Consumer, error) {
	return &memoryConsumer{store: s}, nil
}

// Producer создаёт producer'а поверх этого store.
func (s *InMemory) Producer() (Producer, error) {
	return &memoryProducer{store: s}, nil
}

// Depth возвращает текущее число сообщений.
func (s *InMemory) Depth(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages), nil
}

func (s *InMemory) enqueue(msg *domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *InMemory) peek() *domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[0]
}

// remove удаляет голову очереди, если там всё ещё сообщение с данным ID.
func (s *InMemory) remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 || s.messages[0].ID != id {
		return false
	}
	s.messages = s.messages[1:]
	return true
}

// memoryConsumer держит последнее выданное сообщение до подтверждения.
type memoryConsumer struct {
	store   *InMemory
	current *domain.Message
	closed  bool
}

func (c *memoryConsumer) FetchNext(ctx context.Context) (*domain.Message, error) {
	if c.closed {
		return nil, ErrConsumerClosed
	}
	c.current = c.store.peek()
	return c.current, nil
}

func (c *memoryConsumer) Acknowledge(ctx context.Context) error {
	if c.closed {
		return ErrConsumerClosed
	}
	if c.current == nil {
		return ErrNoPendingMessage
	}
	c.store.remove(c.current.ID)
	c.current = nil
	return nil
}

func (c *memoryConsumer) IsAlive() bool { return !c.closed }

func (c *memoryConsumer) Close() error {
	c.closed = true
	c.current = nil
	return nil
}

type memoryProducer struct {
	store *InMemory
}

func (p *memoryProducer) Enqueue(ctx context.Context, msg *domain.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	p.store.enqueue(msg)
	return nil
}
