package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Courier/internal/domain"
)

// MessageRepo — репозиторий для работы с messages.
type MessageRepo struct {
	pool *pgxpool.Pool
}

// NewMessageRepo создаёт новый MessageRepo.
func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Insert сохраняет сообщение в указанный store.
func (r *MessageRepo) Insert(ctx context.Context, storeName string, msg *domain.Message) error {
	headersJSON, err := json.Marshal(msg.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	query := `
		INSERT INTO messages (id, store_name, endpoint, content_type, headers, body, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		msg.ID,
		storeName,
		msg.Endpoint,
		msg.ContentType,
		headersJSON,
		msg.Body,
		msg.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Head возвращает самое старое сообщение store.
func (r *MessageRepo) Head(ctx context.Context, storeName string) (*domain.Message, error) {
	query := `
		SELECT id, endpoint, content_type, headers, body, received_at
		FROM messages
		WHERE store_name = $1
		ORDER BY received_at ASC, id ASC
		LIMIT 1
	`
	return r.scanMessage(r.pool.QueryRow(ctx, query, storeName))
}

// Delete удаляет сообщение по ID.
func (r *MessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStore возвращает число сообщений в store.
func (r *MessageRepo) CountByStore(ctx context.Context, storeName string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE store_name = $1
	`, storeName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// --- Helpers ---

func (r *MessageRepo) scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	var headersJSON []byte

	err := row.Scan(
		&msg.ID,
		&msg.Endpoint,
		&msg.ContentType,
		&headersJSON,
		&msg.Body,
		&msg.ReceivedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}

	if headersJSON != nil {
		if err := json.Unmarshal(headersJSON, &msg.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
	}

	return &msg, nil
}
