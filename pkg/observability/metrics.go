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
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records the service's domain measurements. All methods are
// safe to call on a nil-backed implementation.
type Metrics interface {
	RecordAgentRun(ctx context.Context, agent string, duration time.Duration, tokens int, err error)
	RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error)
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, tokens int, err error)
	RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

type otelMetrics struct {
	runDuration metric.Float64Histogram
	runsTotal   metric.Int64Counter
	runErrors   metric.Int64Counter
	tokensUsed  metric.Int64Counter

	toolDuration metric.Float64Histogram
	toolCalls    metric.Int64Counter
	toolErrors   metric.Int64Counter

	llmDuration metric.Float64Histogram
	llmTokens   metric.Int64Counter
	llmErrors   metric.Int64Counter

	httpDuration metric.Float64Histogram
	httpRequests metric.Int64Counter
}

// initMetrics builds a meter provider backed by the given Prometheus
// registry and creates the service's instruments on it.
func initMetrics(registry *prometheus.Registry, cfg MetricsConfig) (*sdkmetric.MeterProvider, Metrics, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	meter := provider.Meter(cfg.Namespace)
	ns := cfg.Namespace

	m := &otelMetrics{}

	m.runDuration, err = meter.Float64Histogram(
		ns+"_run_duration_seconds",
		metric.WithDescription("Agent run duration in seconds"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}

	m.runsTotal, err = meter.Int64Counter(
		ns+"_runs_total",
		metric.WithDescription("Total agent runs"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create runs counter: %w", err)
	}

	m.runErrors, err = meter.Int64Counter(
		ns+"_run_errors_total",
		metric.WithDescription("Total failed agent runs"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create run errors counter: %w", err)
	}

	m.tokensUsed, err = meter.Int64Counter(
		ns+"_tokens_used_total",
		metric.WithDescription("Total tokens used by agent runs"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tokens counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		ns+"_tool_execution_duration_seconds",
		metric.WithDescription("Tool execution duration in seconds"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tool duration histogram: %w", err)
	}

	m.toolCalls, err = meter.Int64Counter(
		ns+"_tool_calls_total",
		metric.WithDescription("Total tool calls"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	m.toolErrors, err = meter.Int64Counter(
		ns+"_tool_errors_total",
		metric.WithDescription("Total tool errors"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tool errors counter: %w", err)
	}

	m.llmDuration, err = meter.Float64Histogram(
		ns+"_llm_request_duration_seconds",
		metric.WithDescription("LLM request duration in seconds"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}

	m.llmTokens, err = meter.Int64Counter(
		ns+"_llm_tokens_total",
		metric.WithDescription("Total tokens reported by LLM calls"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm tokens counter: %w", err)
	}

	m.llmErrors, err = meter.Int64Counter(
		ns+"_llm_errors_total",
		metric.WithDescription("Total LLM errors"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm errors counter: %w", err)
	}

	m.httpDuration, err = meter.Float64Histogram(
		ns+"_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	m.httpRequests, err = meter.Int64Counter(
		ns+"_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	return provider, m, nil
}

func (m *otelMetrics) RecordAgentRun(ctx context.Context, agent string, duration time.Duration, tokens int, err error) {
	if m == nil || m.runDuration == nil || m.runsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("agent", agent),
	}

	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.runsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if tokens > 0 && m.tokensUsed != nil {
		m.tokensUsed.Add(ctx, int64(tokens), metric.WithAttributes(attrs...))
	}
	if err != nil && m.runErrors != nil {
		m.runErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *otelMetrics) RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil || m.toolDuration == nil || m.toolCalls == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool", tool),
	}

	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.toolCalls.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil && m.toolErrors != nil {
		m.toolErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *otelMetrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, tokens int, err error) {
	if m == nil || m.llmDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("model", model),
	}

	m.llmDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if tokens > 0 && m.llmTokens != nil {
		m.llmTokens.Add(ctx, int64(tokens), metric.WithAttributes(attrs...))
	}
	if err != nil && m.llmErrors != nil {
		m.llmErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *otelMetrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpDuration == nil || m.httpRequests == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", statusCode),
	}

	m.httpDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.httpRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}
