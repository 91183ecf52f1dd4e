// Copyright 2025 MagnusDot
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

package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Manager owns the tracer and meter providers for the process. A zero
// or uninitialized Manager degrades to no-op tracing and metrics.
type Manager struct {
	mu     sync.RWMutex
	config Config

	tracerProvider trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       *prometheus.Registry
	metrics        Metrics
}

// NewManager creates a Manager for the given configuration.
func NewManager(cfg Config) *Manager {
	cfg.SetDefaults()
	return &Manager{
		config:  cfg,
		metrics: NoopMetrics{},
	}
}

// NoopManager returns a Manager with tracing and metrics disabled.
func NoopManager() *Manager {
	return NewManager(Config{})
}

// Initialize sets up exporters and providers per the configuration.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tp, err := initTracer(ctx, m.config.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	m.tracerProvider = tp

	if m.config.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		provider, metrics, err := initMetrics(registry, m.config.Metrics)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		m.registry = registry
		m.meterProvider = provider
		m.metrics = metrics
	}

	return nil
}

// GetTracer returns a named tracer from the managed provider.
func (m *Manager) GetTracer(name string) trace.Tracer {
	if m == nil {
		return tracenoop.NewTracerProvider().Tracer(name)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tracerProvider == nil {
		return tracenoop.NewTracerProvider().Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// GetMetrics returns the metrics recorder.
func (m *Manager) GetMetrics() Metrics {
	if m == nil {
		return NoopMetrics{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.metrics == nil {
		return NoopMetrics{}
	}
	return m.metrics
}

// MetricsHandler serves the Prometheus scrape endpoint. When metrics
// are disabled it answers 503.
func (m *Manager) MetricsHandler() http.Handler {
	if m != nil {
		m.mu.RLock()
		registry := m.registry
		m.mu.RUnlock()
		if registry != nil {
			return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("metrics not enabled"))
	})
}

// Shutdown flushes and stops the providers.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if sd, ok := m.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		if err := sd.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if m.meterProvider != nil {
		if err := m.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
