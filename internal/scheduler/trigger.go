package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// minInterval — нижняя граница периода триггера. Более короткие
// интервалы worker досыпает внутри вызова, триггер их не дробит.
const minInterval = time.Second

// Trigger — источник моментов запуска процессора: фиксированный
// интервал либо cron-выражение.
type Trigger struct {
	interval time.Duration
	schedule cron.Schedule // nil для интервального триггера
	expr     string
}

// NewTrigger создаёт триггер. Непустой cronExpr имеет приоритет над
// интервалом. Интервал короче minInterval поднимается до minInterval.
func NewTrigger(interval time.Duration, cronExpr string) (*Trigger, error) {
	if cronExpr != "" {
		schedule, err := cronParser.Parse(cronExpr)
		if err != nil {
			return nil, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
		}
		return &Trigger{schedule: schedule, expr: cronExpr}, nil
	}
	if interval < minInterval {
		interval = minInterval
	}
	return &Trigger{interval: interval}, nil
}

// Next возвращает следующий момент запуска после from.
func (t *Trigger) Next(from time.Time) time.Time {
	if t.schedule != nil {
		return t.schedule.Next(from)
	}
	return from.Add(t.interval)
}

// IsCron сообщает, запускается ли триггер по cron-выражению.
func (t *Trigger) IsCron() bool {
	return t.schedule != nil
}

// String описывает триггер для логов.
func (t *Trigger) String() string {
	if t.schedule != nil {
		return fmt.Sprintf("cron(%s)", t.expr)
	}
	return fmt.Sprintf("every %s", t.interval)
}
