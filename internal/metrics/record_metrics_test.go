package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRecordMetricsWithRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewRecordMetricsWithRegisterer(reg)

	if metrics == nil {
		t.Fatal("NewRecordMetricsWithRegisterer should not return nil")
	}
	if metrics.operations == nil {
		t.Error("operations counter vec should not be nil")
	}
	if metrics.operationDuration == nil {
		t.Error("operationDuration histogram vec should not be nil")
	}
	if metrics.records == nil {
		t.Error("records gauge vec should not be nil")
	}
	if metrics.changeEvents == nil {
		t.Error("changeEvents counter vec should not be nil")
	}
}

func TestNewRecordMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewRecordMetricsWithRegisterer(reg)
	second := NewRecordMetricsWithRegisterer(reg)

	if first.operations != second.operations {
		t.Fatal("expected second instance to reuse registered operations collector")
	}

	second.ObserveOperation("order", "create", "OK", time.Millisecond)

	metric := &dto.Metric{}
	if err := first.operations.WithLabelValues("order", "create", "OK").Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}
}

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewRecordMetricsWithRegisterer(reg)

	metrics.ObserveOperation("container", "get", "OK", 10*time.Millisecond)
	metrics.ObserveOperation("container", "get", "NOT_FOUND", 20*time.Millisecond)
	metrics.ObserveOperation("container", "get", "OK", 30*time.Millisecond)

	okMetric := &dto.Metric{}
	if err := metrics.operations.WithLabelValues("container", "get", "OK").Write(okMetric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if okMetric.Counter.GetValue() != 2.0 {
		t.Errorf("expected 2 successful operations, got %f", okMetric.Counter.GetValue())
	}

	histMetric := &dto.Metric{}
	observer := metrics.operationDuration.WithLabelValues("container", "get")
	if err := observer.(prometheus.Histogram).Write(histMetric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if histMetric.Histogram.GetSampleCount() != 3 {
		t.Errorf("expected 3 samples, got %d", histMetric.Histogram.GetSampleCount())
	}
	sum := histMetric.Histogram.GetSampleSum()
	if sum < 0.059 || sum > 0.061 {
		t.Errorf("expected sum around 0.06, got %f", sum)
	}
}

func TestSetRecordCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewRecordMetricsWithRegisterer(reg)

	metrics.SetRecordCount("good", 7)
	metrics.SetRecordCount("good", 4)

	metric := &dto.Metric{}
	if err := metrics.records.WithLabelValues("good").Write(metric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if metric.Gauge.GetValue() != 4.0 {
		t.Errorf("expected gauge value 4.0, got %f", metric.Gauge.GetValue())
	}
}

func TestRecordChangeEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewRecordMetricsWithRegisterer(reg)

	metrics.RecordChangeEvent("order", "record.created")
	metrics.RecordChangeEvent("order", "record.created")

	metric := &dto.Metric{}
	if err := metrics.changeEvents.WithLabelValues("order", "record.created").Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestNilRecordMetricsIsNoop(t *testing.T) {
	var metrics *RecordMetrics

	metrics.ObserveOperation("order", "list", "OK", time.Millisecond)
	metrics.SetRecordCount("order", 1)
	metrics.RecordChangeEvent("order", "record.deleted")
}
