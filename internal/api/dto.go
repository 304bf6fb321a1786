package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/processor"
)

// Processor DTOs

// ProcessorResponse — ответ с processor'ом.
type ProcessorResponse struct {
	Name               string `json:"name"`
	Store              string `json:"store"`
	Status             string `json:"status"`
	TargetEndpoint     string `json:"target_endpoint,omitempty"`
	CronExpression     string `json:"cron_expression,omitempty"`
	IntervalMS         int64  `json:"interval_ms"`
	RetryIntervalMS    int64  `json:"retry_interval_ms"`
	MaxDeliverAttempts int    `json:"max_deliver_attempts"`
	Depth              int    `json:"depth"`
}

// NewProcessorResponse конвертирует processor.Processor в ProcessorResponse.
// depth = -1, если глубину store прочитать не удалось.
func NewProcessorResponse(p *processor.Processor, depth int) ProcessorResponse {
	params := p.Params()
	return ProcessorResponse{
		Name:               p.Name(),
		Store:              p.StoreName(),
		Status:             p.Status().String(),
		TargetEndpoint:     params.TargetEndpoint,
		CronExpression:     params.CronExpression,
		IntervalMS:         params.Interval.Milliseconds(),
		RetryIntervalMS:    params.RetryInterval.Milliseconds(),
		MaxDeliverAttempts: params.MaxDeliverAttempts,
		Depth:              depth,
	}
}

// Store DTOs

// StoreResponse — ответ со store'ом.
type StoreResponse struct {
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

// Message DTOs

// EnqueueMessageRequest — запрос на постановку сообщения в store.
type EnqueueMessageRequest struct {
	Endpoint    string            `json:"endpoint,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        json.RawMessage   `json:"body,omitempty"`
}

// MessageResponse — ответ с принятым сообщением.
type MessageResponse struct {
	ID          uuid.UUID `json:"id"`
	Store       string    `json:"store"`
	Endpoint    string    `json:"endpoint,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

// NewMessageResponse конвертирует domain.Message в MessageResponse.
func NewMessageResponse(storeName string, msg *domain.Message) MessageResponse {
	return MessageResponse{
		ID:          msg.ID,
		Store:       storeName,
		Endpoint:    msg.Endpoint,
		ContentType: msg.ContentType,
		ReceivedAt:  msg.ReceivedAt,
	}
}
