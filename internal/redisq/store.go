package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/store"
)

const (
	// fieldMessage — поле записи stream'а с JSON сообщения.
	fieldMessage = "message"

	// consumerName — имя consumer'а в группе. Оно фиксировано:
	// store читает один форвардер, а записи из PEL выдаются
	// только consumer'у с тем же именем.
	consumerName = "forwarder"

	// readBlock — ожидание новых записей при пустом stream'е,
	// чтобы цикл доставки не крутился вхолостую.
	readBlock = 100 * time.Millisecond
)

// Store — message store поверх Redis Stream.
type Store struct {
	name   string
	stream string
	group  string
	client *redis.Client
	logger *slog.Logger
}

// NewStore создаёт store поверх stream'а, заводя consumer group
// с начала stream'а.
func NewStore(ctx context.Context, name, stream, group string, client *redis.Client, logger *slog.Logger) (*Store, error) {
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group %s/%s: %w", stream, group, err)
	}
	return &Store{
		name:   name,
		stream: stream,
		group:  group,
		client: client,
		logger: logger,
	}, nil
}

// Name возвращает имя store.
func (s *Store) Name() string {
	return s.name
}

// Consumer возвращает consumer stream'а.
func (s *Store) Consumer() (store.Consumer, error) {
	return &consumer{store: s}, nil
}

// Producer возвращает producer stream'а.
func (s *Store) Producer() (store.Producer, error) {
	return &producer{store: s}, nil
}

// Depth возвращает число записей в stream'е. Подтверждённые
// записи удаляются, так что длина stream'а и есть глубина очереди.
func (s *Store) Depth(ctx context.Context) (int, error) {
	n, err := s.client.XLen(ctx, s.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("xlen %s: %w", s.stream, err)
	}
	return int(n), nil
}

// remove подтверждает запись и удаляет её из stream'а.
func (s *Store) remove(ctx context.Context, id string) error {
	if err := s.client.XAck(ctx, s.stream, s.group, id).Err(); err != nil {
		return fmt.Errorf("ack entry %s: %w", id, err)
	}
	if err := s.client.XDel(ctx, s.stream, id).Err(); err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	return nil
}

// consumer читает голову stream'а. Держит не больше одной
// неподтверждённой записи; используется из одной горутины.
type consumer struct {
	store     *Store
	currentID string
	current   *domain.Message
	closed    bool
}

// FetchNext возвращает головное сообщение, не удаляя его из stream'а.
// Повторный вызов без Acknowledge возвращает то же сообщение.
func (c *consumer) FetchNext(ctx context.Context) (*domain.Message, error) {
	if c.closed {
		return nil, store.ErrConsumerClosed
	}
	if c.current != nil {
		return c.current, nil
	}

	for {
		entry, err := c.read(ctx)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, nil
		}

		msg, err := decodeEntry(entry)
		if err != nil {
			// Повреждённую запись выбрасываем и берём следующую
			c.store.logger.Error("failed to decode stream entry, discarding",
				"store", c.store.name,
				"error", err,
			)
			if remErr := c.store.remove(ctx, entry.ID); remErr != nil {
				return nil, remErr
			}
			continue
		}

		c.currentID = entry.ID
		c.current = msg
		return c.current, nil
	}
}

// read забирает одну запись: сначала из PEL, затем новую.
func (c *consumer) read(ctx context.Context) (*redis.XMessage, error) {
	res, err := c.store.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.store.group,
		Consumer: consumerName,
		Streams:  []string{c.store.stream, "0"},
		Count:    1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read pending from stream %s: %w", c.store.stream, err)
	}
	if entry := firstEntry(res); entry != nil {
		return entry, nil
	}

	res, err = c.store.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.store.group,
		Consumer: consumerName,
		Streams:  []string{c.store.stream, ">"},
		Count:    1,
		Block:    readBlock,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read from stream %s: %w", c.store.stream, err)
	}
	return firstEntry(res), nil
}

// Acknowledge удаляет показанное сообщение из stream'а.
func (c *consumer) Acknowledge(ctx context.Context) error {
	if c.closed {
		return store.ErrConsumerClosed
	}
	if c.current == nil {
		return store.ErrNoPendingMessage
	}

	if err := c.store.remove(ctx, c.currentID); err != nil {
		return err
	}
	c.currentID = ""
	c.current = nil
	return nil
}

// IsAlive сообщает, отвечает ли Redis.
func (c *consumer) IsAlive() bool {
	if c.closed {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.store.client.Ping(ctx).Err() == nil
}

// Close освобождает consumer. Неподтверждённая запись остаётся
// в PEL и будет выдана следующему consumer'у.
func (c *consumer) Close() error {
	c.closed = true
	c.currentID = ""
	c.current = nil
	return nil
}

// producer добавляет сообщения в stream store.
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

	err = p.store.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.store.stream,
		Values: map[string]interface{}{fieldMessage: string(body)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd to %s: %w", p.store.stream, err)
	}

	p.store.logger.Debug("enqueued message",
		"store", p.store.name,
		"message_id", msg.ID,
	)

	return nil
}

// --- Helpers ---

func firstEntry(streams []redis.XStream) *redis.XMessage {
	for i := range streams {
		if len(streams[i].Messages) > 0 {
			return &streams[i].Messages[0]
		}
	}
	return nil
}

func decodeEntry(entry *redis.XMessage) (*domain.Message, error) {
	raw, ok := entry.Values[fieldMessage].(string)
	if !ok {
		return nil, fmt.Errorf("entry %s: missing %q field", entry.ID, fieldMessage)
	}
	var msg domain.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal entry %s: %w", entry.ID, err)
	}
	return &msg, nil
}
