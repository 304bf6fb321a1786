package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/store"
)

// Store — message store поверх таблицы PostgreSQL. Сообщения
// переживают рестарт процесса: строка удаляется только после
// подтверждения доставки.
type Store struct {
	name   string
	repo   *MessageRepo
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore создаёт store поверх пула соединений и готовит схему.
func NewStore(ctx context.Context, name string, pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if err := ensureSchema(ctx, pool); err != nil {
		return nil, err
	}
	return &Store{
		name:   name,
		repo:   NewMessageRepo(pool),
		pool:   pool,
		logger: logger,
	}, nil
}

// Name возвращает имя store.
func (s *Store) Name() string {
	return s.name
}

// Consumer возвращает consumer таблицы.
func (s *Store) Consumer() (store.Consumer, error) {
	return &consumer{store: s}, nil
}

// Producer возвращает producer таблицы.
func (s *Store) Producer() (store.Producer, error) {
	return &producer{store: s}, nil
}

// Depth возвращает число сообщений, ожидающих в store.
func (s *Store) Depth(ctx context.Context) (int, error) {
	return s.repo.CountByStore(ctx, s.name)
}

// consumer читает голову таблицы. Держит не больше одного
// неподтверждённого сообщения; используется из одной горутины.
type consumer struct {
	store   *Store
	current *domain.Message
	closed  bool
}

// FetchNext возвращает головное сообщение, не удаляя его из таблицы.
// Повторный вызов без Acknowledge возвращает то же сообщение.
func (c *consumer) FetchNext(ctx context.Context) (*domain.Message, error) {
	if c.closed {
		return nil, store.ErrConsumerClosed
	}
	if c.current != nil {
		return c.current, nil
	}

	msg, err := c.store.repo.Head(ctx, c.store.name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.current = msg
	return c.current, nil
}

// Acknowledge удаляет показанное сообщение из таблицы.
// Уже удалённая извне строка считается подтверждённой.
func (c *consumer) Acknowledge(ctx context.Context) error {
	if c.closed {
		return store.ErrConsumerClosed
	}
	if c.current == nil {
		return store.ErrNoPendingMessage
	}

	if err := c.store.repo.Delete(ctx, c.current.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	c.current = nil
	return nil
}

// IsAlive сообщает, отвечает ли база.
func (c *consumer) IsAlive() bool {
	if c.closed {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.store.pool.Ping(ctx) == nil
}

// Close освобождает consumer. Неподтверждённое сообщение остаётся
// в таблице и будет выдано следующему consumer'у.
func (c *consumer) Close() error {
	c.closed = true
	c.current = nil
	return nil
}

// producer вставляет сообщения в таблицу store.
type producer struct {
	store *Store
}

// Enqueue кладёт сообщение в конец очереди.
func (p *producer) Enqueue(ctx context.Context, msg *domain.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	if err := p.store.repo.Insert(ctx, p.store.name, msg); err != nil {
		return err
	}

	p.store.logger.Debug("enqueued message",
		"store", p.store.name,
		"message_id", msg.ID,
	)

	return nil
}

// ensureSchema создаёт таблицу сообщений, если её ещё нет.
// Идемпотентна: каждый store на общем пуле вызывает её при создании.
func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const table = `
		CREATE TABLE IF NOT EXISTS messages (
			id           UUID PRIMARY KEY,
			store_name   TEXT NOT NULL,
			endpoint     TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL DEFAULT '',
			headers      JSONB,
			body         BYTEA,
			received_at  TIMESTAMPTZ NOT NULL
		)
	`
	const index = `
		CREATE INDEX IF NOT EXISTS messages_store_received_idx
		ON messages (store_name, received_at)
	`

	if _, err := pool.Exec(ctx, table); err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}
	if _, err := pool.Exec(ctx, index); err != nil {
		return fmt.Errorf("create messages index: %w", err)
	}
	return nil
}
