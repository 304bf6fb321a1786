package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/store"
)

// Store — message store поверх очереди RabbitMQ.
type Store struct {
	name   string
	queue  string
	conn   *Connection
	logger *slog.Logger
}

// NewStore создаёт store поверх очереди queue, объявляя её вместе
// с DLQ.
func NewStore(name, queue string, conn *Connection, logger *slog.Logger) (*Store, error) {
	if err := DeclareStoreQueue(conn, queue); err != nil {
		return nil, err
	}
	return &Store{name: name, queue: queue, conn: conn, logger: logger}, nil
}

// Name возвращает имя store.
func (s *Store) Name() string {
	return s.name
}

// Consumer возвращает consumer очереди.
func (s *Store) Consumer() (store.Consumer, error) {
	return &consumer{store: s}, nil
}

// Producer возвращает producer очереди.
func (s *Store) Producer() (store.Producer, error) {
	return &producer{store: s}, nil
}

// Depth возвращает число сообщений, ожидающих в очереди.
func (s *Store) Depth(ctx context.Context) (int, error) {
	ch := s.conn.Channel()
	if ch == nil {
		return 0, ErrNotConnected
	}
	q, err := ch.QueueInspect(s.queue)
	if err != nil {
		return 0, fmt.Errorf("inspect queue %s: %w", s.queue, err)
	}
	return q.Messages, nil
}

// consumer — pull-consumer очереди. Держит не больше одного
// неподтверждённого сообщения; используется из одной горутины.
type consumer struct {
	store   *Store
	pending *amqp.Delivery
	current *domain.Message
	closed  bool
}

// FetchNext возвращает головное сообщение, не удаляя его из очереди.
// Повторный вызов без Acknowledge возвращает то же сообщение.
func (c *consumer) FetchNext(ctx context.Context) (*domain.Message, error) {
	if c.closed {
		return nil, store.ErrConsumerClosed
	}
	if c.current != nil {
		return c.current, nil
	}

	ch := c.store.conn.Channel()
	if ch == nil {
		return nil, ErrNotConnected
	}

	for {
		raw, ok, err := ch.Get(c.store.queue, false)
		if err != nil {
			return nil, fmt.Errorf("get from queue %s: %w", c.store.queue, err)
		}
		if !ok {
			return nil, nil
		}

		var msg domain.Message
		if err := json.Unmarshal(raw.Body, &msg); err != nil {
			// Повреждённое сообщение уводим в DLQ и берём следующее
			c.store.logger.Error("failed to unmarshal message, sending to DLQ",
				"store", c.store.name,
				"error", err,
			)
			if nackErr := raw.Nack(false, false); nackErr != nil {
				return nil, fmt.Errorf("nack poison message: %w", nackErr)
			}
			continue
		}

		c.pending = &raw
		c.current = &msg
		return c.current, nil
	}
}

// Acknowledge удаляет показанное сообщение из очереди.
func (c *consumer) Acknowledge(ctx context.Context) error {
	if c.closed {
		return store.ErrConsumerClosed
	}
	if c.pending == nil {
		return store.ErrNoPendingMessage
	}
	if err := c.pending.Ack(false); err != nil {
		return fmt.Errorf("ack message: %w", err)
	}
	c.pending = nil
	c.current = nil
	return nil
}

// IsAlive сообщает, живо ли соединение с брокером.
func (c *consumer) IsAlive() bool {
	return !c.closed && c.store.conn.IsConnected()
}

// Close возвращает неподтверждённое сообщение в очередь.
func (c *consumer) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	pending := c.pending
	c.pending = nil
	c.current = nil
	if pending != nil {
		if err := pending.Nack(false, true); err != nil {
			return fmt.Errorf("requeue pending message: %w", err)
		}
	}
	return nil
}

// producer публикует сообщения в очередь store через exchange.
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

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := p.store.conn.Channel()
	if ch == nil {
		return ErrNotConnected
	}

	err = ch.PublishWithContext(
		ctx,
		ExchangeMessages, // exchange
		p.store.queue,    // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт брокера
			MessageId:    msg.ID.String(),
			Timestamp:    msg.ReceivedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", ExchangeMessages, p.store.queue, err)
	}

	p.store.logger.Debug("enqueued message",
		"store", p.store.name,
		"message_id", msg.ID,
	)

	return nil
}
