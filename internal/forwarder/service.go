package forwarder

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/sequence"
	"github.com/shaiso/Courier/internal/store"
)

// Константы планирования.
const (
	// initialGraceDelay — одноразовая пауза перед первой итерацией
	// процессора, описанного в конфигурации неактивным.
	initialGraceDelay = time.Second

	// throttleSlice — квант одного вызова Run в throttle-режиме:
	// дальше поток возвращается внешнему триггеру.
	throttleSlice = time.Second

	// inlineSleepFloor — интервалы короче этого порога досыпаются
	// внутри вызова, внешний планировщик такие не принимает.
	inlineSleepFloor = time.Second
)

// Owner — владеющий процессор глазами worker'а.
type Owner interface {
	// Name возвращает имя процессора.
	Name() string

	// IsDeactivated сообщает, выключен ли процессор.
	IsDeactivated() bool

	// Deactivate выключает процессор. Вызывается worker'ом при
	// исчерпании попыток доставки или панике в цикле.
	Deactivate()
}

// Sender — блокирующая отправка сообщения на endpoint.
type Sender interface {
	Send(ctx context.Context, ep *domain.Endpoint, msg *domain.Message) (*domain.Message, error)
}

// EndpointResolver — поиск endpoint'а по имени.
type EndpointResolver interface {
	Resolve(name string) (*domain.Endpoint, bool)
}

// SequenceResolver — поиск sequence по имени.
// *sequence.Registry подходит без адаптера.
type SequenceResolver interface {
	Lookup(name string) (sequence.Sequence, error)
}

// Stats — счётчики исходов доставки. Реализация в telemetry.
type Stats interface {
	Delivered()
	Failed()
	Retried()
	Dropped()
	Deactivated()
}

type noopStats struct{}

func (noopStats) Delivered()   {}
func (noopStats) Failed()      {}
func (noopStats) Retried()     {}
func (noopStats) Dropped()     {}
func (noopStats) Deactivated() {}

// Config — зависимости и параметры Service.
type Config struct {
	// Params — разобранные параметры форвардера.
	Params Params

	// Owner — владеющий процессор.
	Owner Owner

	// Consumer — фабрика consumer'а store. Вызывается один раз,
	// при ленивой инициализации первого Run.
	Consumer func() (store.Consumer, error)

	// Sender — блокирующий транспорт.
	Sender Sender

	// Endpoints — резолвер endpoint'ов.
	Endpoints EndpointResolver

	// Sequences — резолвер sequences. nil допустим: все привязки
	// считаются отсутствующими.
	Sequences SequenceResolver

	// StartInactive — процессор описан неактивным при старте хоста.
	StartInactive bool

	// Stats — счётчики доставки (опционально).
	Stats Stats

	// Logger — логгер. nil означает slog.Default().
	Logger *slog.Logger
}

// Service — worker доставки одного процессора.
//
// Экземпляр одноразовый: после терминации (исчерпание попыток,
// деактивация) он не возобновляется, при реактивации процессор
// создаёт новый экземпляр с чистым состоянием.
type Service struct {
	params     Params
	owner      Owner
	consumerFn func() (store.Consumer, error)
	sender     Sender
	endpoints  EndpointResolver
	sequences  SequenceResolver
	stats      Stats
	logger     *slog.Logger

	// Состояние цикла. attemptCount и succeeded принадлежат горутине
	// Run; terminated переключается и снаружи, только в true.
	attemptCount  int
	succeeded     bool
	initialized   bool
	startInactive bool
	terminated    atomic.Bool

	consumer store.Consumer
}

// New создаёт Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stats := cfg.Stats
	if stats == nil {
		stats = noopStats{}
	}
	return &Service{
		params:        cfg.Params,
		owner:         cfg.Owner,
		consumerFn:    cfg.Consumer,
		sender:        cfg.Sender,
		endpoints:     cfg.Endpoints,
		sequences:     cfg.Sequences,
		startInactive: cfg.StartInactive,
		stats:         stats,
		logger:        logger,
	}
}

// Run выполняет один вызов worker'а. Блокирует вызывающую горутину:
// каждое взятое сообщение доводится до терминального исхода.
// Семантика do-while: хотя бы одна итерация на вызов.
//
// Ошибка возвращается только из инициализации. Ошибки доставки
// обрабатываются политикой retry внутри.
func (s *Service) Run(ctx context.Context) error {
	startTime := time.Now()

	if s.startInactive {
		// Одноразовая пауза: хост ещё поднимается и деактивация
		// процессора могла не успеть примениться
		s.sleep(ctx, initialGraceDelay)
		s.startInactive = false
	}

	if err := s.init(); err != nil {
		return err
	}

	for {
		s.resetCycle()

		if s.owner.IsDeactivated() {
			s.terminated.Store(true)
			s.logger.Debug("exiting since the message processor is deactivated",
				"processor", s.owner.Name())
			break
		}

		if stop := s.iterate(ctx); stop {
			break
		}

		s.logger.Debug("exiting the iteration", "processor", s.owner.Name())

		// Пейсинг cron-режима: пауза между сообщениями
		if s.params.CronMode() {
			s.sleep(ctx, s.params.ThrottleInterval)
		}

		// Интервалы короче кванта планировщика досыпаются на месте
		if iv := s.params.Interval; iv > 0 && iv < inlineSleepFloor {
			s.sleep(ctx, iv)
		}

		// Вызов выбрал свой квант: поток возвращается триггеру
		if s.params.Throttle && time.Since(startTime) > throttleSlice {
			break
		}

		if s.terminated.Load() || ctx.Err() != nil ||
			!(s.params.Throttle || s.params.CronMode()) {
			break
		}
	}

	s.logger.Debug("exiting service of the message processor",
		"processor", s.owner.Name())
	return nil
}

// iterate выполняет одну итерацию: fetch и, при наличии сообщения,
// полный цикл доставки. Возвращает true, когда вызов надо завершить
// (cron-режим выбрал store до дна).
func (s *Service) iterate(ctx context.Context) (stop bool) {
	var msg *domain.Message
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("delivery cycle panicked, deactivating the message processor",
				"processor", s.owner.Name(),
				"panic", r,
				"stack", string(debug.Stack()))
			s.deactivateProcessor(ctx, msg)
		}
	}()

	var err error
	msg, err = s.consumer.FetchNext(ctx)
	if err != nil {
		s.logger.Error("failed to fetch a message from the store",
			"processor", s.owner.Name(), "error", err)
		return false
	}
	if msg == nil {
		s.logger.Debug("no messages were received",
			"processor", s.owner.Name())
		// Очередь пуста: в cron-режиме вызов завершается, следующий
		// придёт по расписанию
		return s.params.CronMode()
	}

	// Маркер ошибки прошлой отправки не должен классифицировать
	// свежую доставку
	msg.ClearSenderError()

	s.deliver(ctx, msg)
	return false
}

// init лениво выполняет одноразовую инициализацию: получает
// consumer'а store. Повторные вызовы — no-op.
func (s *Service) init() error {
	if s.initialized {
		return nil
	}
	c, err := s.consumerFn()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConsumerUnavailable, err)
	}
	s.consumer = c
	s.initialized = true
	return nil
}

// resetCycle сбрасывает состояние перед очередным циклом доставки.
func (s *Service) resetCycle() {
	s.succeeded = false
	s.attemptCount = 0
}

// Terminate навсегда завершает работу этого экземпляра worker'а.
func (s *Service) Terminate() {
	s.terminated.Store(true)
	s.logger.Debug("terminated the job of the message processor",
		"processor", s.owner.Name())
}

// IsTerminated сообщает, терминирован ли worker.
func (s *Service) IsTerminated() bool {
	return s.terminated.Load()
}

// Close освобождает consumer store. Вызывается владельцем после
// терминации worker'а; до инициализации — no-op.
func (s *Service) Close() error {
	if s.consumer == nil {
		return nil
	}
	return s.consumer.Close()
}

// sleep ждёт d или отмену контекста. Отмена лишь сокращает сон:
// решение о завершении принимают проверки в цикле.
func (s *Service) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
