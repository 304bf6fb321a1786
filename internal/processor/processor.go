package processor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/forwarder"
	"github.com/shaiso/Courier/internal/scheduler"
	"github.com/shaiso/Courier/internal/store"
)

// Processor хостит worker доставки одного форвардера.
type Processor struct {
	name    string
	params  forwarder.Params
	trigger *scheduler.Trigger

	store     store.Store
	sender    forwarder.Sender
	endpoints forwarder.EndpointResolver
	sequences forwarder.SequenceResolver
	stats     forwarder.Stats
	logger    *slog.Logger

	// Lifecycle
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex

	// kick будит горутину расписания раньше срока (реактивация)
	kick chan struct{}

	// Статус и текущий worker. Защищены mu.
	mu      sync.RWMutex
	status  domain.ProcessorStatus
	service *forwarder.Service
}

// Config — конфигурация Processor.
type Config struct {
	// Name — имя процессора, уникально в рамках хоста.
	Name string

	// Params — параметры форвардера.
	Params forwarder.Params

	// Store — источник сообщений.
	Store store.Store

	// Sender — блокирующий транспорт.
	Sender forwarder.Sender

	// Endpoints — резолвер endpoint'ов.
	Endpoints forwarder.EndpointResolver

	// Sequences — резолвер sequences (опционально).
	Sequences forwarder.SequenceResolver

	// Active — начальный статус процессора из конфигурации.
	Active bool

	// Stats — счётчики доставки (опционально).
	Stats forwarder.Stats

	// Logger
	Logger *slog.Logger
}

// New создаёт Processor. Cron-выражение проверяется здесь:
// процессор с нечитаемым расписанием не создаётся.
func New(cfg Config) (*Processor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	trigger, err := scheduler.NewTrigger(cfg.Params.Interval, cfg.Params.CronExpression)
	if err != nil {
		return nil, err
	}

	status := domain.ProcessorStatusPaused
	if cfg.Active {
		status = domain.ProcessorStatusActive
	}

	p := &Processor{
		name:      cfg.Name,
		params:    cfg.Params,
		trigger:   trigger,
		store:     cfg.Store,
		sender:    cfg.Sender,
		endpoints: cfg.Endpoints,
		sequences: cfg.Sequences,
		stats:     cfg.Stats,
		logger:    logger,
		kick:      make(chan struct{}, 1),
		status:    status,
	}

	// Для процессора, описанного неактивным, первый worker несёт
	// стартовую паузу и терминируется сам
	p.service = p.newService(!cfg.Active)
	return p, nil
}

// Start запускает горутину расписания процессора.
func (p *Processor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancelFunc = cancel

	p.logger.Info("starting message processor",
		"processor", p.name,
		"store", p.store.Name(),
		"trigger", p.trigger.String(),
		"status", p.Status(),
	)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runLoop(ctx)
	}()

	return nil
}

// Stop останавливает процессор и освобождает consumer store.
func (p *Processor) Stop() {
	p.stoppedMu.Lock()
	p.stopped = true
	p.stoppedMu.Unlock()

	p.logger.Info("stopping message processor...", "processor", p.name)

	if p.cancelFunc != nil {
		p.cancelFunc()
	}

	// Ждём завершения горутины расписания
	p.wg.Wait()

	p.mu.Lock()
	svc := p.service
	p.mu.Unlock()
	if svc != nil {
		svc.Terminate()
		if err := svc.Close(); err != nil {
			p.logger.Warn("failed to close the store consumer",
				"processor", p.name, "error", err)
		}
	}

	p.logger.Info("message processor stopped", "processor", p.name)
}

// IsStopped проверяет, остановлен ли процессор.
func (p *Processor) IsStopped() bool {
	p.stoppedMu.RLock()
	defer p.stoppedMu.RUnlock()
	return p.stopped
}

// Name возвращает имя процессора.
func (p *Processor) Name() string {
	return p.name
}

// StoreName возвращает имя store процессора.
func (p *Processor) StoreName() string {
	return p.store.Name()
}

// Params возвращает параметры форвардера.
func (p *Processor) Params() forwarder.Params {
	return p.params
}

// Status возвращает текущий статус процессора.
func (p *Processor) Status() domain.ProcessorStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// IsDeactivated сообщает, выключен ли процессор.
func (p *Processor) IsDeactivated() bool {
	return p.Status() != domain.ProcessorStatusActive
}

// Depth возвращает число сообщений, ожидающих в store процессора.
func (p *Processor) Depth(ctx context.Context) (int, error) {
	return p.store.Depth(ctx)
}

// Activate переводит процессор в ACTIVE. Прежний worker терминирован
// и не возобновляется — на его место ставится новый с чистым
// состоянием цикла. Повторная активация — no-op.
func (p *Processor) Activate() {
	p.mu.Lock()
	if p.status == domain.ProcessorStatusActive {
		p.mu.Unlock()
		return
	}
	p.status = domain.ProcessorStatusActive
	old := p.service
	p.service = p.newService(false)
	p.mu.Unlock()

	if old != nil {
		old.Terminate()
		if err := old.Close(); err != nil {
			p.logger.Warn("failed to close the store consumer",
				"processor", p.name, "error", err)
		}
	}

	// Будим расписание: доставка продолжается сразу, не дожидаясь
	// следующего срока триггера
	select {
	case p.kick <- struct{}{}:
	default:
	}

	p.logger.Info("activated the message processor", "processor", p.name)
}

// Deactivate переводит процессор в PAUSED и терминирует текущий
// worker. Неподтверждённые сообщения остаются в store. Вызывается
// как API, так и самим worker'ом при исчерпании бюджета попыток.
func (p *Processor) Deactivate() {
	p.mu.Lock()
	if p.status == domain.ProcessorStatusPaused {
		p.mu.Unlock()
		return
	}
	p.status = domain.ProcessorStatusPaused
	svc := p.service
	p.mu.Unlock()

	if svc != nil {
		svc.Terminate()
	}

	p.logger.Info("deactivated the message processor", "processor", p.name)
}

// newService собирает worker доставки для этого процессора.
func (p *Processor) newService(startInactive bool) *forwarder.Service {
	return forwarder.New(forwarder.Config{
		Params:        p.params,
		Owner:         p,
		Consumer:      func() (store.Consumer, error) { return p.store.Consumer() },
		Sender:        p.sender,
		Endpoints:     p.endpoints,
		Sequences:     p.sequences,
		StartInactive: startInactive,
		Stats:         p.stats,
		Logger:        p.logger,
	})
}

// runLoop — цикл расписания: ждёт следующий срок триггера и вызывает
// worker. Вызовы строго последовательны; терминированный worker
// выходит сам на первой проверке, отдельного ветвления по статусу
// здесь нет.
func (p *Processor) runLoop(ctx context.Context) {
	// Первый вызов сразу при старте
	p.invoke(ctx)

	for {
		timer := time.NewTimer(time.Until(p.trigger.Next(time.Now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.kick:
			timer.Stop()
		case <-timer.C:
		}
		p.invoke(ctx)
	}
}

// invoke запускает текущий worker процессора.
func (p *Processor) invoke(ctx context.Context) {
	p.mu.RLock()
	svc := p.service
	p.mu.RUnlock()
	if svc == nil {
		return
	}
	if err := svc.Run(ctx); err != nil {
		p.logger.Error("message processor service failed to start",
			"processor", p.name, "error", err)
	}
}
