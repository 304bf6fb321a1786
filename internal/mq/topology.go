package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchanges.
const (
	// ExchangeMessages — сообщения store'ов, routing key = имя очереди.
	ExchangeMessages = "courier.messages"

	// ExchangeDLQ — повреждённые сообщения.
	ExchangeDLQ = "courier.dlq"
)

// DLQName возвращает имя DLQ-очереди для очереди store.
func DLQName(queue string) string {
	return "dlq." + queue
}

// DeclareStoreQueue объявляет очередь store вместе с её DLQ.
// Объявление идемпотентно: повторный вызов с теми же аргументами
// безопасен.
func DeclareStoreQueue(conn *Connection, queue string) error {
	ch := conn.Channel()
	if ch == nil {
		return ErrNotConnected
	}

	for _, ex := range []string{ExchangeMessages, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			ex,       // name
			"direct", // type
			true,     // durable
			false,    // auto-deleted
			false,    // internal
			false,    // no-wait
			nil,      // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}

	// Очередь store: повреждённые сообщения уходят в DLQ
	dlq := DLQName(queue)
	args := amqp.Table{
		"x-dead-letter-exchange":    ExchangeDLQ,
		"x-dead-letter-routing-key": dlq,
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, queue, ExchangeMessages, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", queue, ExchangeMessages, err)
	}

	// Сама DLQ-очередь
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, dlq, ExchangeDLQ, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", dlq, ExchangeDLQ, err)
	}

	return nil
}
