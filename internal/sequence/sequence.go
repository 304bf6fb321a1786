package sequence

import (
	"context"
	"log/slog"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/store"
)

// Sequence — именованный обработчик сообщений.
type Sequence interface {
	// Mediate обрабатывает сообщение.
	Mediate(ctx context.Context, msg *domain.Message) error
}

// Func — адаптер, превращающий функцию в Sequence.
type Func func(ctx context.Context, msg *domain.Message) error

// Mediate вызывает f(ctx, msg).
func (f Func) Mediate(ctx context.Context, msg *domain.Message) error {
	return f(ctx, msg)
}

// NewLogSequence возвращает sequence, который пишет сообщение в лог.
// Дефолтный обработчик, когда в конфигурации не задан специализированный.
func NewLogSequence(logger *slog.Logger, level slog.Level) Sequence {
	return Func(func(ctx context.Context, msg *domain.Message) error {
		logger.Log(ctx, level, "sequence invoked",
			"message_id", msg.ID,
			"endpoint", msg.Endpoint,
			"status_code", msg.StatusCode,
			"sender_error", msg.SenderError,
		)
		return nil
	})
}

// NewStoreSequence возвращает sequence, который перекладывает копию
// сообщения в другой store. Обычная привязка для fault.sequence:
// неудачные сообщения уходят в dead letter store.
func NewStoreSequence(producer store.Producer) Sequence {
	return Func(func(ctx context.Context, msg *domain.Message) error {
		return producer.Enqueue(ctx, msg.Clone())
	})
}
