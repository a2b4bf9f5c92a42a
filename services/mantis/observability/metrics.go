// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the Mantis service.
//
// # Description
//
// Metrics cover the roadmap and chat endpoints and the synthesis pipeline:
//   - Request counters (by endpoint, status)
//   - Error counters (by endpoint, error kind)
//   - Repair attempts (by outcome)
//   - Upstream latency histograms (by call)
//   - Sanitizer rule hits (by rule)
//   - Active WebSocket chat sessions
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint using the registry passed
// to NewMetrics.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// Every Record method is safe to call on a nil *Metrics, which is a no-op.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "mantis"

// Metrics holds all Prometheus collectors for the service.
//
// # Fields
//
//   - RequestsTotal: Counter of requests by endpoint and status
//   - ErrorsTotal: Counter of failed requests by endpoint and error kind
//   - RepairsTotal: Counter of repair attempts by outcome
//   - UpstreamSeconds: Histogram of upstream call latency
//   - SanitizerRulesTotal: Counter of sanitizer rules that changed the text
//   - ActiveChatSessions: Gauge of open WebSocket chat sessions
type Metrics struct {
	// RequestsTotal counts requests. Labels: endpoint, status (success, error)
	RequestsTotal *prometheus.CounterVec

	// ErrorsTotal counts failures. Labels: endpoint, kind
	ErrorsTotal *prometheus.CounterVec

	// RepairsTotal counts repair attempts. Labels: outcome (success, failure)
	RepairsTotal *prometheus.CounterVec

	// UpstreamSeconds measures upstream latency. Labels: call (primary, repair, chat)
	UpstreamSeconds *prometheus.HistogramVec

	// SanitizerRulesTotal counts rule hits. Labels: rule
	SanitizerRulesTotal *prometheus.CounterVec

	// ActiveChatSessions tracks open WebSocket sessions.
	ActiveChatSessions prometheus.Gauge
}

// NewMetrics creates and registers all collectors with reg.
//
// # Inputs
//
//   - reg: Registry to register with. Tests pass a fresh
//     prometheus.NewRegistry(); the server passes its own registry so
//     /metrics exposes exactly these collectors plus the Go runtime ones.
//
// # Limitations
//
//   - Panics if called twice with the same registry (duplicate registration).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Total number of requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "errors_total",
				Help:      "Total failed requests by endpoint and error kind",
			},
			[]string{"endpoint", "kind"},
		),

		RepairsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "repairs_total",
				Help:      "Total repair attempts by outcome",
			},
			[]string{"outcome"},
		),

		UpstreamSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "upstream",
				Name:      "request_duration_seconds",
				Help:      "Upstream completion latency in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
			},
			[]string{"call"},
		),

		SanitizerRulesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "sanitizer_rules_total",
				Help:      "Total sanitizer rules that changed the completion text",
			},
			[]string{"rule"},
		),

		ActiveChatSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "chat",
				Name:      "active_sessions",
				Help:      "Number of open WebSocket chat sessions",
			},
		),
	}
}

// =============================================================================
// Label Values
// =============================================================================

// Endpoint labels requests and errors.
type Endpoint string

const (
	EndpointRoadmap Endpoint = "roadmap"
	EndpointChat    Endpoint = "chat"
	EndpointChatWS  Endpoint = "chat_ws"
)

// Upstream call labels.
const (
	CallPrimary = "primary"
	CallRepair  = "repair"
	CallChat    = "chat"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed request.
func (m *Metrics) RecordRequest(endpoint Endpoint, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records a failed request by error kind.
func (m *Metrics) RecordError(endpoint Endpoint, kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(string(endpoint), kind).Inc()
}

// RecordRepair records the outcome of one repair attempt.
func (m *Metrics) RecordRepair(success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.RepairsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records the latency of one upstream call.
func (m *Metrics) ObserveUpstream(call string, seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamSeconds.WithLabelValues(call).Observe(seconds)
}

// RecordSanitizerRule records that rule changed the text.
func (m *Metrics) RecordSanitizerRule(rule string) {
	if m == nil {
		return
	}
	m.SanitizerRulesTotal.WithLabelValues(rule).Inc()
}

// ChatSessionOpened increments the active session gauge.
func (m *Metrics) ChatSessionOpened() {
	if m == nil {
		return
	}
	m.ActiveChatSessions.Inc()
}

// ChatSessionClosed decrements the active session gauge.
func (m *Metrics) ChatSessionClosed() {
	if m == nil {
		return
	}
	m.ActiveChatSessions.Dec()
}
