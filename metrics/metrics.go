// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package metrics is a singleton meter registry. It defaults to a no-op
// implementation; calling InitializePrometheusMetrics switches every meter,
// including ones already handed out, to Prometheus.
package metrics

import "net/http"

var metrics Metrics = noopMetrics{}

// Metrics is the meter factory implemented by the no-op and Prometheus
// backends.
type Metrics interface {
	GetOrCreateCountMeter(name string) CountMeter
	GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter
	GetOrCreateGaugeMeter(name string) GaugeMeter
	GetOrCreateHandler() http.Handler
}

// CountMeter is a monotonically increasing counter.
type CountMeter interface {
	Add(int64)
}

// CountVecMeter is a counter with labels.
type CountVecMeter interface {
	AddWithLabel(int64, map[string]string)
}

// GaugeMeter is a value that can move both ways.
type GaugeMeter interface {
	Set(int64)
}

// HTTPHandler returns the handler serving the metrics endpoint.
func HTTPHandler() http.Handler {
	return metrics.GetOrCreateHandler()
}

// Counter returns a named counter, creating it on first use.
// Meters resolve their backend per call, so a meter fetched before
// InitializePrometheusMetrics still reports afterwards.
func Counter(name string) CountMeter {
	return lazyCounter{name}
}

// CounterVec returns a named labeled counter, creating it on first use.
func CounterVec(name string, labels []string) CountVecMeter {
	return lazyCounterVec{name, labels}
}

// Gauge returns a named gauge, creating it on first use.
func Gauge(name string) GaugeMeter {
	return lazyGauge{name}
}

type lazyCounter struct{ name string }

func (c lazyCounter) Add(v int64) {
	metrics.GetOrCreateCountMeter(c.name).Add(v)
}

type lazyCounterVec struct {
	name   string
	labels []string
}

func (c lazyCounterVec) AddWithLabel(v int64, labels map[string]string) {
	metrics.GetOrCreateCountVecMeter(c.name, c.labels).AddWithLabel(v, labels)
}

type lazyGauge struct{ name string }

func (g lazyGauge) Set(v int64) {
	metrics.GetOrCreateGaugeMeter(g.name).Set(v)
}
