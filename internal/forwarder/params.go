package forwarder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Имена параметров процессора.
const (
	ParamMaxDeliverAttempts  = "max.delivery.attempts"
	ParamRetryInterval       = "retry.interval"
	ParamReplySequence       = "reply.sequence"
	ParamFaultSequence       = "fault.sequence"
	ParamDeactivateSequence  = "deactivate.sequence"
	ParamTargetEndpoint      = "target.endpoint"
	ParamThrottle            = "throttle"
	ParamCronExpression      = "cron.expression"
	ParamThrottleInterval    = "throttle.interval"
	ParamNonRetryStatusCodes = "non.retry.status.codes"
	ParamMaxDeliveryDrop     = "max.delivery.drop"
	ParamInterval            = "interval"
)

// Дефолты параметров.
const (
	defaultRetryInterval      = time.Second
	defaultInterval           = time.Second
	defaultMaxDeliverAttempts = -1
)

// Params — разобранные параметры форвардера.
type Params struct {
	// MaxDeliverAttempts — предел попыток доставки одного сообщения.
	// Значение <= 0 означает «без предела».
	MaxDeliverAttempts int

	// RetryInterval — пауза между попытками доставки.
	RetryInterval time.Duration

	// ReplySequence — имя sequence для успешных ответов.
	ReplySequence string

	// FaultSequence — имя sequence для ошибок доставки.
	FaultSequence string

	// DeactivateSequence — имя sequence, вызываемой при деактивации.
	DeactivateSequence string

	// TargetEndpoint — имя endpoint'а доставки. Приоритетнее
	// endpoint'а, указанного в самом сообщении.
	TargetEndpoint string

	// Throttle — режим длительного владения вызовом: worker сам крутит
	// цикл, возвращая поток планировщику после кванта в 1s.
	Throttle bool

	// CronExpression — cron-расписание запусков. Пустая строка
	// означает интервальный режим.
	CronExpression string

	// ThrottleInterval — пауза между сообщениями в cron-режиме.
	// Отрицательное значение означает «не задана»: без неё
	// cron-режим не включается.
	ThrottleInterval time.Duration

	// NonRetryStatusCodes — токены, классифицирующие текст ошибки
	// отправки как неповторяемую ошибку. Сопоставление подстрочное.
	NonRetryStatusCodes []string

	// DropOnLimit — при исчерпании попыток сбросить сообщение и
	// продолжить, вместо деактивации процессора.
	DropOnLimit bool

	// Interval — период запуска циклов доставки.
	Interval time.Duration
}

// DefaultParams возвращает параметры со значениями по умолчанию.
func DefaultParams() Params {
	return Params{
		MaxDeliverAttempts: defaultMaxDeliverAttempts,
		RetryInterval:      defaultRetryInterval,
		Throttle:           true,
		ThrottleInterval:   -1,
		Interval:           defaultInterval,
	}
}

// ParseParams разбирает строковые параметры процессора.
// Неразборчивое числовое значение — ошибка: процессор с такими
// параметрами не должен запускаться.
func ParseParams(raw map[string]string) (Params, error) {
	p := DefaultParams()

	if v, ok := raw[ParamMaxDeliverAttempts]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Params{}, fmt.Errorf("%w: %s=%q", ErrInvalidParameter, ParamMaxDeliverAttempts, v)
		}
		p.MaxDeliverAttempts = n
	}

	if v, ok := raw[ParamRetryInterval]; ok {
		d, err := parseMillis(v)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %s=%q", ErrInvalidParameter, ParamRetryInterval, v)
		}
		p.RetryInterval = d
	}

	p.ReplySequence = raw[ParamReplySequence]
	p.FaultSequence = raw[ParamFaultSequence]
	p.DeactivateSequence = raw[ParamDeactivateSequence]
	p.TargetEndpoint = raw[ParamTargetEndpoint]

	if v, ok := raw[ParamThrottle]; ok {
		p.Throttle = strings.EqualFold(v, "true")
	}

	p.CronExpression = raw[ParamCronExpression]

	// throttle.interval имеет смысл только вместе с cron-расписанием
	if p.CronExpression != "" {
		if v, ok := raw[ParamThrottleInterval]; ok {
			d, err := parseMillis(v)
			if err != nil {
				return Params{}, fmt.Errorf("%w: %s=%q", ErrInvalidParameter, ParamThrottleInterval, v)
			}
			p.ThrottleInterval = d
		}
	}

	if v, ok := raw[ParamNonRetryStatusCodes]; ok {
		for _, tok := range strings.Split(v, ",") {
			tok = strings.TrimSpace(tok)
			if tok != "" {
				p.NonRetryStatusCodes = append(p.NonRetryStatusCodes, tok)
			}
		}
	}

	if v, ok := raw[ParamMaxDeliveryDrop]; ok {
		p.DropOnLimit = v == "Enabled" && p.MaxDeliverAttempts > 0
	}

	if v, ok := raw[ParamInterval]; ok {
		d, err := parseMillis(v)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %s=%q", ErrInvalidParameter, ParamInterval, v)
		}
		p.Interval = d
	}

	return p, nil
}

// CronMode сообщает, работает ли форвардер по cron-расписанию.
// Для этого нужны и выражение, и throttle-пауза.
func (p Params) CronMode() bool {
	return p.CronExpression != "" && p.ThrottleInterval >= 0
}

// NumericNonRetryCodes возвращает числовые значения non-retry токенов
// для передачи транспорту. Нечисловые токены пропускаются.
func (p Params) NumericNonRetryCodes() []int {
	var codes []int
	for _, tok := range p.NonRetryStatusCodes {
		if n, err := strconv.Atoi(tok); err == nil {
			codes = append(codes, n)
		}
	}
	return codes
}

// parseMillis парсит целое число миллисекунд.
func parseMillis(v string) (time.Duration, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}
