package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shaiso/Courier/internal/domain"
)

const (
	// defaultTimeout — таймаут блокирующей отправки по умолчанию.
	defaultTimeout = 30 * time.Second

	// defaultResetTimeout — время, через которое открытый breaker
	// пробует пропустить запрос снова.
	defaultResetTimeout = 30 * time.Second

	// maxReplyBody ограничивает размер читаемого тела ответа.
	maxReplyBody = 1 << 20 // 1 MiB
)

// Config — настройки BlockingSender.
type Config struct {
	// Timeout — таймаут запроса, если endpoint не задал свой.
	Timeout time.Duration

	// BreakerResetTimeout — время до перехода открытого breaker'а в half-open.
	BreakerResetTimeout time.Duration

	// Logger — логгер. nil означает slog.Default().
	Logger *slog.Logger
}

// BlockingSender доставляет сообщения по HTTP и ждёт ответ.
// Безопасен для конкурентного использования несколькими форвардерами.
type BlockingSender struct {
	client       *http.Client
	logger       *slog.Logger
	resetTimeout time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBlockingSender создаёт sender с дефолтами для незаполненных полей.
func NewBlockingSender(cfg Config) *BlockingSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BreakerResetTimeout <= 0 {
		cfg.BreakerResetTimeout = defaultResetTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &BlockingSender{
		client:       &http.Client{Timeout: cfg.Timeout},
		logger:       cfg.Logger,
		resetTimeout: cfg.BreakerResetTimeout,
		breakers:     make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Send отправляет сообщение на endpoint и возвращает ответ.
//
// nil-ответ без ошибки означает one-way доставку (202/204): ответа
// не будет, доставка считается успешной.
func (s *BlockingSender) Send(ctx context.Context, ep *domain.Endpoint, msg *domain.Message) (*domain.Message, error) {
	if ep == nil {
		return nil, ErrNilEndpoint
	}
	if ep.BreakerThreshold == 0 {
		return s.send(ctx, ep, msg)
	}

	res, err := s.breaker(ep).Execute(func() (any, error) {
		reply, sendErr := s.send(ctx, ep, msg)
		if sendErr != nil {
			return nil, sendErr
		}
		if reply != nil && reply.SenderError {
			// Ошибка уровня endpoint'а: breaker её считает,
			// но наружу уходит сам ответ
			return reply, errStatusFailure
		}
		return reply, nil
	})

	switch {
	case err == nil:
		if res == nil {
			return nil, nil
		}
		return res.(*domain.Message), nil
	case errors.Is(err, errStatusFailure):
		return res.(*domain.Message), nil
	default:
		return nil, err
	}
}

func (s *BlockingSender) send(ctx context.Context, ep *domain.Endpoint, msg *domain.Message) (*domain.Message, error) {
	if ep.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ep.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(msg.Body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if msg.ContentType != "" {
		req.Header.Set("Content-Type", msg.ContentType)
	} else {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "Courier/1.0")
	req.Header.Set("X-Message-ID", msg.ID.String())
	for key, value := range msg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	// One-way: endpoint принял сообщение, ответа не будет
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	reply := &domain.Message{
		ID:          msg.ID,
		Endpoint:    ep.Name,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		StatusCode:  resp.StatusCode,
		ReceivedAt:  time.Now(),
	}
	if resp.StatusCode >= http.StatusBadRequest && !msg.IsNonErrorStatus(resp.StatusCode) {
		reply.SenderError = true
		reply.ErrorMessage = fmt.Sprintf("endpoint %s returned status %d %s",
			ep.Name, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return reply, nil
}

// breaker лениво создаёт circuit breaker для endpoint'а.
func (s *BlockingSender) breaker(ep *domain.Endpoint) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if br, ok := s.breakers[ep.Name]; ok {
		return br
	}

	threshold := ep.BreakerThreshold
	br := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        ep.Name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     s.resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			s.logger.Warn("circuit breaker state changed",
				slog.String("endpoint", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	s.breakers[ep.Name] = br
	return br
}
