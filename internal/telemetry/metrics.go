package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики доставки. Общие для всех процессоров хоста, различаются
// label'ом processor.
var (
	deliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_messages_delivered_total",
		Help: "Messages delivered to the endpoint and acknowledged",
	}, []string{"processor"})

	failedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_delivery_attempts_failed_total",
		Help: "Delivery attempts that ended with a retryable error",
	}, []string{"processor"})

	retriedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_delivery_retries_total",
		Help: "Delivery attempts scheduled for a retry",
	}, []string{"processor"})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_messages_dropped_total",
		Help: "Messages removed after exhausting the delivery attempts",
	}, []string{"processor"})

	deactivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_processor_deactivations_total",
		Help: "Processor deactivations caused by delivery failures",
	}, []string{"processor"})
)

// ProcessorStats — счётчики доставки одного процессора.
// Реализует forwarder.Stats.
type ProcessorStats struct {
	name string
}

// StatsFor возвращает счётчики процессора name.
func StatsFor(processor string) *ProcessorStats {
	return &ProcessorStats{name: processor}
}

func (s *ProcessorStats) Delivered()   { deliveredTotal.WithLabelValues(s.name).Inc() }
func (s *ProcessorStats) Failed()      { failedTotal.WithLabelValues(s.name).Inc() }
func (s *ProcessorStats) Retried()     { retriedTotal.WithLabelValues(s.name).Inc() }
func (s *ProcessorStats) Dropped()     { droppedTotal.WithLabelValues(s.name).Inc() }
func (s *ProcessorStats) Deactivated() { deactivationsTotal.WithLabelValues(s.name).Inc() }

// RegisterStoreDepth публикует gauge глубины store. depth читается
// при каждом scrape.
func RegisterStoreDepth(storeName string, depth func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "courier_store_depth",
		Help:        "Messages waiting in the store",
		ConstLabels: prometheus.Labels{"store": storeName},
	}, depth)
}
