package forwarder

import (
	"context"
	"fmt"

	"github.com/shaiso/Courier/internal/domain"
)

// prepareToRetry применяет политику retry после неудачной попытки.
// Пауза между попытками делается только когда повтор действительно
// будет: терминальные решения (сброс, деактивация) не спят.
func (s *Service) prepareToRetry(ctx context.Context, msg *domain.Message) error {
	if s.terminated.Load() {
		return nil
	}

	if s.params.MaxDeliverAttempts > 0 {
		s.attemptCount++
		if s.attemptCount >= s.params.MaxDeliverAttempts {
			if s.params.DropOnLimit {
				return s.dropMessageAndContinue(ctx)
			}
			s.Terminate()
			s.deactivateProcessor(ctx, msg)
			s.logger.Debug("message processor stopped after reaching max delivery attempts",
				"processor", s.owner.Name(),
				"max_attempts", s.params.MaxDeliverAttempts)
			return nil
		}
	}

	s.stats.Retried()
	s.logger.Debug("failed to send the message, retrying",
		"processor", s.owner.Name(),
		"attempt_count", s.attemptCount,
		"retry_interval", s.params.RetryInterval)
	s.sleep(ctx, s.params.RetryInterval)
	return nil
}

// dropMessageAndContinue убирает сообщение, исчерпавшее попытки,
// и оставляет процессор работать дальше.
func (s *Service) dropMessageAndContinue(ctx context.Context) error {
	if err := s.consumer.Acknowledge(ctx); err != nil {
		return fmt.Errorf("acknowledge dropped message: %w", err)
	}
	s.attemptCount = 0
	s.succeeded = true
	s.stats.Dropped()
	s.logger.Info("removed the failed message and continued the message processor",
		"processor", s.owner.Name())
	return nil
}
