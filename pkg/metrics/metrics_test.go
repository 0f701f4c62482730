package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMetricsSplitSuccessAndFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.Observe("stock-sweep", 250*time.Millisecond, nil)
	m.Observe("stock-sweep", 10*time.Millisecond, errors.New("db down"))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 1.0, value(t, mfs, "dairyfeed_job_success_total", "job", "stock-sweep"))
	assert.Equal(t, 1.0, value(t, mfs, "dairyfeed_job_failure_total", "job", "stock-sweep"))

	mf := find(mfs, "dairyfeed_job_duration_seconds")
	require.NotNil(t, mf)
	assert.EqualValues(t, 2, mf.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestStockMetricsFlagLowStock(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStockMetrics(reg)

	m.ObserveStock("Rumput", decimal.RequireFromString("15"), decimal.RequireFromString("20"))
	m.ObserveStock("Dedak", decimal.RequireFromString("40"), decimal.RequireFromString("5"))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 15.0, value(t, mfs, "dairyfeed_feed_stock_kg", "feed", "Rumput"))
	assert.Equal(t, 1.0, value(t, mfs, "dairyfeed_feed_stock_low", "feed", "Rumput"))
	assert.Equal(t, 0.0, value(t, mfs, "dairyfeed_feed_stock_low", "feed", "Dedak"))
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.ObserveRequest("POST", "/api/dailyFeedItem", 201, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, 1.0, value(t, mfs, "dairyfeed_http_requests_total", "status", "201"))
}

func TestNilRegistererIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewJobMetrics(nil).Observe("x", time.Second, nil)
		NewStockMetrics(nil).ObserveStock("x", decimal.Zero, decimal.Zero)
		NewHTTPMetrics(nil).ObserveRequest("GET", "/", 200, time.Second)
	})
}

func value(t *testing.T, mfs []*dto.MetricFamily, name, label, labelValue string) float64 {
	t.Helper()
	mf := find(mfs, name)
	require.NotNil(t, mf, "metric %s not found", name)
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == labelValue {
				if metric.GetGauge() != nil {
					return metric.GetGauge().GetValue()
				}
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s missing label %s=%s", name, label, labelValue)
	return 0
}

func find(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
