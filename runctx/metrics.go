// Copyright 2026 The Latticeproof Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runctx

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector handles metrics collection for a CEGAR run.
// Implementations must be safe for concurrent use.
//
// Use NoOpMetrics when metrics are disabled for zero overhead.
type MetricsCollector interface {
	// Inc increments the named counter by 1, creating it on first use.
	Inc(name string)

	// Set sets the named gauge to value, creating it on first use.
	Set(name string, value float64)

	// Observe records value in the named histogram, creating it on first use.
	Observe(name string, value float64)
}

// PrometheusMetrics backs MetricsCollector with real prometheus
// collectors registered against reg. Metric names are created lazily
// the first time they are seen, since cegar.Run does not know its full
// metric vocabulary up front the way a typical instrumented service does.
type PrometheusMetrics struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewPrometheusMetrics builds a PrometheusMetrics registering into reg.
func NewPrometheusMetrics(reg *prometheus.Registry) *PrometheusMetrics {
	return &PrometheusMetrics{
		reg:        reg,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

func (m *PrometheusMetrics) Inc(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: name})
		m.reg.MustRegister(c)
		m.counters[name] = c
	}
	c.Inc()
}

func (m *PrometheusMetrics) Set(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gauges[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: name})
		m.reg.MustRegister(g)
		m.gauges[name] = g
	}
	g.Set(value)
}

func (m *PrometheusMetrics) Observe(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histograms[name]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{Name: name, Help: name})
		m.reg.MustRegister(h)
		m.histograms[name] = h
	}
	h.Observe(value)
}

// NoOpMetrics discards everything, for callers that do not want metrics.
type NoOpMetrics struct{}

func (NoOpMetrics) Inc(string)               {}
func (NoOpMetrics) Set(string, float64)      {}
func (NoOpMetrics) Observe(string, float64)  {}
