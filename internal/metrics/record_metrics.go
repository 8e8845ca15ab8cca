// Package metrics содержит Prometheus-метрики операций над записями.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordMetrics содержит метрики операций над коллекциями записей.
type RecordMetrics struct {
	// Счётчик операций по виду записи, операции и коду результата
	operations *prometheus.CounterVec

	// Длительность операций
	operationDuration *prometheus.HistogramVec

	// Текущий размер коллекций
	records *prometheus.GaugeVec

	// События изменений, поставленные в outbox
	changeEvents *prometheus.CounterVec
}

// NewRecordMetrics создаёт метрики в DefaultRegisterer.
func NewRecordMetrics() *RecordMetrics {
	return NewRecordMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewRecordMetricsWithRegisterer создаёт метрики в указанном реестре. Повторная
// регистрация возвращает уже существующие коллекторы.
func NewRecordMetricsWithRegisterer(registerer prometheus.Registerer) *RecordMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &RecordMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "logistics_record_operations_total",
			Help: "Total number of record operations by kind, operation and result code",
		}, []string{"kind", "operation", "code"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "logistics_record_operation_duration_seconds",
			Help:    "Duration of record operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"kind", "operation"}),
		records: registerGaugeVec(registerer, prometheus.GaugeOpts{
			Name: "logistics_records",
			Help: "Current number of stored records by kind",
		}, []string{"kind"}),
		changeEvents: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "logistics_change_events_total",
			Help: "Total number of change events enqueued to the outbox",
		}, []string{"kind", "type"}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGaugeVec(registerer prometheus.Registerer, opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	collector := prometheus.NewGaugeVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.GaugeVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// ObserveOperation учитывает завершённую операцию. Безопасен для nil.
func (m *RecordMetrics) ObserveOperation(kind, operation, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(kind, operation, code).Inc()
	m.operationDuration.WithLabelValues(kind, operation).Observe(duration.Seconds())
}

// SetRecordCount выставляет текущий размер коллекции.
func (m *RecordMetrics) SetRecordCount(kind string, count int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(kind).Set(float64(count))
}

// RecordChangeEvent увеличивает счётчик событий outbox.
func (m *RecordMetrics) RecordChangeEvent(kind, eventType string) {
	if m == nil {
		return
	}
	m.changeEvents.WithLabelValues(kind, eventType).Inc()
}
