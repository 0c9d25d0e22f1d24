package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Option applies a configuration option to the Manager
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry uses the given registry instead of a fresh one
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// WithPushGateway enables pushing to the given Pushgateway URL under job
func WithPushGateway(url, job string) Option {
	return func(m *Manager) {
		m.gatewayURL = url
		if job != "" {
			m.job = job
		}
	}
}

// WithHTTPDoer sets the HTTP client used for pushes (기본: http.DefaultClient)
func WithHTTPDoer(doer push.HTTPDoer) Option {
	return func(m *Manager) {
		m.doer = doer
	}
}

// WithDurationBuckets sets the run-duration histogram buckets in seconds
func WithDurationBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.durationBuckets = buckets
		}
	}
}
