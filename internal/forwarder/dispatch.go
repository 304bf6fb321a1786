package forwarder

import (
	"context"
	"fmt"

	"github.com/shaiso/Courier/internal/domain"
)

// deliver доводит одно сообщение до терминального исхода: оно либо
// подтверждено (успех или сброс), либо процессор деактивирован.
func (s *Service) deliver(ctx context.Context, original *domain.Message) {
	s.logger.Debug("sending the message to the endpoint",
		"processor", s.owner.Name(), "message_id", original.ID)

	ep := s.resolveEndpoint(original)
	if ep == nil {
		// Доставлять некуда: сообщение убирается из store
		s.logger.Warn("no target endpoint resolved, removing the message from the store",
			"processor", s.owner.Name(), "message_id", original.ID)
		if err := s.consumer.Acknowledge(ctx); err != nil {
			s.logger.Error("failed to acknowledge the message",
				"processor", s.owner.Name(), "error", err)
		}
		return
	}

	codes := s.params.NumericNonRetryCodes()

	for !s.succeeded && !s.terminated.Load() && ctx.Err() == nil {
		if err := s.attemptOnce(ctx, original, ep, codes); err != nil {
			// Ошибка инфраструктуры цикла (ack, sequence): сообщение
			// остаётся неподтверждённым до следующего вызова
			s.logger.Error("message processor failed to deliver the message",
				"processor", s.owner.Name(), "message_id", original.ID, "error", err)
			return
		}
	}
}

// attemptOnce выполняет одну попытку доставки и применяет политику
// retry при неуспехе. Ошибка означает прерывание всего цикла.
func (s *Service) attemptOnce(ctx context.Context, original *domain.Message, ep *domain.Endpoint, codes []int) error {
	// Каждая попытка работает со свежей копией сообщения: транспорт
	// не должен портить оригинал для следующих попыток
	attempt := original.Clone()
	attempt.NonErrorStatus = codes

	var reply *domain.Message
	var sendErr error
	if s.consumer != nil && s.consumer.IsAlive() {
		reply, sendErr = s.sender.Send(ctx, ep, attempt)
	}
	// Попытка считается состоявшейся сразу после отправки, даже если
	// consumer умер и отправка была пропущена: иначе цикл уходит в
	// горячий retry
	s.succeeded = true

	if sendErr != nil {
		outcome := ClassifySendError(sendErr, s.params.NonRetryStatusCodes)
		if outcome.Kind != OutcomeNonRetryable {
			s.succeeded = false
			s.logger.Error("blocking sender failed to send the message to the endpoint",
				"processor", s.owner.Name(), "endpoint", ep.Name, "error", sendErr)
			if err := s.mediate(ctx, s.params.FaultSequence, "fault", attempt); err != nil {
				return err
			}
		}
		// Неповторяемая ошибка отправки: попытка считается успешной,
		// ниже сообщение подтверждается в one-way ветке
	}

	if s.succeeded {
		if reply == nil {
			// One-way доставка: ответа не будет
			if err := s.acknowledge(ctx, ep); err != nil {
				return err
			}
		} else {
			outcome := ClassifyReply(reply, s.params.NonRetryStatusCodes)
			switch {
			case reply.SenderError && outcome.Kind == OutcomeNonRetryable:
				// Терминальный неуспех без повтора: ответ уходит в
				// reply sequence, сообщение остаётся неподтверждённым
				if err := s.mediate(ctx, s.params.ReplySequence, "reply", reply); err != nil {
					return err
				}

			case outcome.Kind == OutcomeSuccess:
				if err := s.mediate(ctx, s.params.ReplySequence, "reply", reply); err != nil {
					return err
				}
				if err := s.acknowledge(ctx, ep); err != nil {
					return err
				}

			default:
				s.succeeded = false
				s.logger.Error("endpoint replied with a delivery error",
					"processor", s.owner.Name(), "endpoint", ep.Name,
					"status_code", reply.StatusCode, "reason", outcome.Reason)
				if err := s.mediate(ctx, s.params.FaultSequence, "fault", reply); err != nil {
					return err
				}
			}
		}
	}

	if !s.succeeded {
		s.stats.Failed()
		return s.prepareToRetry(ctx, attempt)
	}
	return nil
}

// acknowledge подтверждает доставленное сообщение и сбрасывает счётчик.
func (s *Service) acknowledge(ctx context.Context, ep *domain.Endpoint) error {
	if err := s.consumer.Acknowledge(ctx); err != nil {
		return fmt.Errorf("acknowledge: %w", err)
	}
	s.attemptCount = 0
	s.stats.Delivered()
	s.logger.Debug("successfully sent the message to the endpoint",
		"processor", s.owner.Name(), "endpoint", ep.Name)
	return nil
}

// resolveEndpoint находит endpoint доставки: сначала по параметрам
// процессора, затем по самому сообщению.
func (s *Service) resolveEndpoint(msg *domain.Message) *domain.Endpoint {
	name := s.params.TargetEndpoint
	if name == "" {
		name = msg.Endpoint
	}
	if name == "" || s.endpoints == nil {
		return nil
	}
	ep, ok := s.endpoints.Resolve(name)
	if !ok {
		return nil
	}
	return ep
}

// mediate прогоняет сообщение через sequence с данным именем.
// Отсутствие привязки или самой sequence — не ошибка: пишется
// предупреждение, доставка продолжается.
func (s *Service) mediate(ctx context.Context, name, kind string, msg *domain.Message) error {
	if name == "" || s.sequences == nil {
		s.logger.Warn("failed to send the message through the sequence: no sequence bound",
			"processor", s.owner.Name(), "kind", kind)
		return nil
	}
	seq, err := s.sequences.Lookup(name)
	if err != nil {
		s.logger.Warn("failed to send the message through the sequence: sequence does not exist",
			"processor", s.owner.Name(), "kind", kind, "sequence", name)
		return nil
	}
	if err := seq.Mediate(ctx, msg); err != nil {
		return fmt.Errorf("%s sequence %q: %w", kind, name, err)
	}
	return nil
}

// deactivateProcessor выключает владеющий процессор, прогнав сообщение
// через deactivate sequence.
func (s *Service) deactivateProcessor(ctx context.Context, msg *domain.Message) {
	if msg != nil {
		if err := s.mediate(ctx, s.params.DeactivateSequence, "deactivate", msg); err != nil {
			s.logger.Error("deactivate sequence failed",
				"processor", s.owner.Name(), "error", err)
		}
	}
	s.owner.Deactivate()
	s.stats.Deactivated()
}
