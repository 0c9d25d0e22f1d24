// Package metrics exports walk-forward validation results to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Manager owns the validation metrics and their registry
// 배치 작업이므로 scrape 대신 실행 종료 시 Pushgateway 로 push
type Manager struct {
	namespace       string
	registry        *prometheus.Registry
	gatewayURL      string
	job             string
	doer            push.HTTPDoer
	durationBuckets []float64

	stepRMSE           *prometheus.GaugeVec
	meanRMSE           *prometheus.GaugeVec
	importanceFailures *prometheus.CounterVec
	runsTotal          *prometheus.CounterVec
	runDuration        prometheus.Histogram
	lastSuccessUnix    prometheus.Gauge
}

// NewManager creates a metrics manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "walkforward",
		registry:        prometheus.NewRegistry(),
		job:             "walkforward_validation",
		durationBuckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// initializeMetrics registers every collector on the manager's registry
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.stepRMSE = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "step_rmse",
		Help:      "Out-of-sample RMSE per model and time step",
	}, []string{"model", "step"})

	m.meanRMSE = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "mean_rmse",
		Help:      "Mean RMSE across the horizon per score column",
	}, []string{"model"})

	m.importanceFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "importance_failures_total",
		Help:      "Importance extractions that failed and were skipped",
	}, []string{"model"})

	m.runsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "runs_total",
		Help:      "Validation runs by outcome",
	}, []string{"status"})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full validation run",
		Buckets:   m.durationBuckets,
	})

	m.lastSuccessUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful validation run",
	})
}

// Registry returns the underlying registry
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// ResetRun clears the per-run score gauges
// 장기 실행 프로세스에서 이전 실행의 점수가 다음 push 에 섞이지 않게 실행 시작 시 호출
func (m *Manager) ResetRun() {
	m.stepRMSE.Reset()
	m.meanRMSE.Reset()
}

// ObserveStep records one step's RMSE
func (m *Manager) ObserveStep(model string, step int, rmse float64) {
	m.stepRMSE.WithLabelValues(model, strconv.Itoa(step)).Set(rmse)
}

// ObserveMean records a score column's horizon mean
func (m *Manager) ObserveMean(model string, mean float64) {
	m.meanRMSE.WithLabelValues(model).Set(mean)
}

// ImportanceFailed counts a skipped importance extraction
func (m *Manager) ImportanceFailed(model string) {
	m.importanceFailures.WithLabelValues(model).Inc()
}

// RunFinished records the outcome and duration of a run
func (m *Manager) RunFinished(d time.Duration, err error) {
	m.runDuration.Observe(d.Seconds())
	if err != nil {
		m.runsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.runsTotal.WithLabelValues("success").Inc()
	m.lastSuccessUnix.SetToCurrentTime()
}

// Push sends the registry to the Pushgateway grouped by run ID
// Pushgateway 가 설정되지 않았으면 no-op
func (m *Manager) Push(ctx context.Context, runID string) error {
	if m.gatewayURL == "" {
		return nil
	}

	pusher := push.New(m.gatewayURL, m.job).Gatherer(m.registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if m.doer != nil {
		pusher = pusher.Client(m.doer)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", m.gatewayURL, err)
	}
	return nil
}
