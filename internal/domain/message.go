package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message — единица доставки внутри message store.
//
// Message попадает в store когда:
// - продюсер кладёт его через Producer.Enqueue (API, CLI, приложение)
// - доставка не удалась и сообщение осталось в голове очереди
//
// Message доставляется Forwarder'ом на HTTP endpoint.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID uuid.UUID `json:"id"`

	// Endpoint — имя целевого endpoint'а для этого конкретного сообщения.
	// Пустое значение означает "использовать endpoint процессора".
	Endpoint string `json:"endpoint,omitempty"`

	// ContentType — MIME-тип тела (например "application/json").
	ContentType string `json:"content_type,omitempty"`

	// Headers — транспортные заголовки, которые уйдут вместе с сообщением.
	Headers map[string]string `json:"headers,omitempty"`

	// Body — полезная нагрузка сообщения.
	Body []byte `json:"body,omitempty"`

	// StatusCode — HTTP-статус ответа. Заполняется транспортом
	// на ответном сообщении, на исходном всегда 0.
	StatusCode int `json:"status_code,omitempty"`

	// SenderError — флаг ошибки блокирующей отправки.
	// Транспорт выставляет его на ответе, когда доставка прошла,
	// но endpoint ответил ошибочным статусом.
	SenderError bool `json:"sender_error,omitempty"`

	// ErrorMessage — текст ошибки отправки, сопровождает SenderError.
	ErrorMessage string `json:"error_message,omitempty"`

	// NonErrorStatus — HTTP-статусы, которые транспорт не считает ошибкой
	// для этого сообщения. Заполняется форвардером перед отправкой.
	NonErrorStatus []int `json:"non_error_status,omitempty"`

	// ReceivedAt — время попадания сообщения в store.
	ReceivedAt time.Time `json:"received_at"`
}

// Clone возвращает глубокую копию сообщения.
// Каждая попытка доставки работает со свежей копией, чтобы
// транспорт не испортил оригинал для следующей попытки.
func (m *Message) Clone() *Message {
	c := *m
	if m.Headers != nil {
		c.Headers = make(map[string]string, len(m.Headers))
		for k, v := range m.Headers {
			c.Headers[k] = v
		}
	}
	if m.Body != nil {
		c.Body = make([]byte, len(m.Body))
		copy(c.Body, m.Body)
	}
	if m.NonErrorStatus != nil {
		c.NonErrorStatus = make([]int, len(m.NonErrorStatus))
		copy(c.NonErrorStatus, m.NonErrorStatus)
	}
	return &c
}

// ClearSenderError снимает с сообщения признак ошибки отправки.
// Вызывается перед новым циклом доставки, чтобы устаревший флаг
// от прошлой неудачи не классифицировал свежий ответ как ошибочный.
func (m *Message) ClearSenderError() {
	m.SenderError = false
	m.ErrorMessage = ""
}

// IsNonErrorStatus возвращает true, если код входит в список
// статусов, не считающихся ошибкой для этого сообщения.
func (m *Message) IsNonErrorStatus(code int) bool {
	for _, sc := range m.NonErrorStatus {
		if sc == code {
			return true
		}
	}
	return false
}
