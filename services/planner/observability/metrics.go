// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the planner
// service.
//
// # Description
//
// Metrics cover the three session lifecycles: provisioning, turns, and
// cleanup. Exposed via the /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for planner metrics
const plannerSubsystem = "planner"

// PlannerMetrics holds all Prometheus metrics for the planner service.
//
// # Fields
//
//   - ProvisionsTotal: Counter of provisioning attempts by status
//   - TurnsTotal: Counter of conversational turns by status
//   - RunWaitSeconds: Histogram of blocking run wait durations
//   - CleanupDeletesTotal: Counter of resource deletions by resource and status
//   - ActiveSessions: Gauge of sessions currently registered
type PlannerMetrics struct {
	// ProvisionsTotal counts provisioning attempts.
	// Labels: status (success, error)
	ProvisionsTotal *prometheus.CounterVec

	// TurnsTotal counts conversational turns.
	// Labels: status (success, send_failure, timeout)
	TurnsTotal *prometheus.CounterVec

	// RunWaitSeconds measures the blocking wait for run completion.
	// Labels: status (success, send_failure, timeout)
	RunWaitSeconds *prometheus.HistogramVec

	// CleanupDeletesTotal counts remote resource deletions.
	// Labels: resource (agent, vector_store, file), status (deleted, failed)
	CleanupDeletesTotal *prometheus.CounterVec

	// ActiveSessions tracks sessions currently held by the store.
	ActiveSessions prometheus.Gauge
}

// DefaultMetrics is the singleton instance of PlannerMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *PlannerMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Call once at startup;
// a second call panics on duplicate registration.
func InitMetrics() *PlannerMetrics {
	DefaultMetrics = &PlannerMetrics{
		ProvisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: plannerSubsystem,
				Name:      "provisions_total",
				Help:      "Total session provisioning attempts by status",
			},
			[]string{"status"},
		),

		TurnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: plannerSubsystem,
				Name:      "turns_total",
				Help:      "Total conversational turns by status",
			},
			[]string{"status"},
		),

		RunWaitSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: plannerSubsystem,
				Name:      "run_wait_seconds",
				Help:      "Blocking wait for run completion in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),

		CleanupDeletesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: plannerSubsystem,
				Name:      "cleanup_deletes_total",
				Help:      "Total remote resource deletions by resource and status",
			},
			[]string{"resource", "status"},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: plannerSubsystem,
				Name:      "active_sessions",
				Help:      "Sessions currently held by the session store",
			},
		),
	}
	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordTurn records one conversational turn outcome with its wait
// duration in seconds. Safe to call before InitMetrics (no-op).
func (m *PlannerMetrics) RecordTurn(status string, waitSeconds float64) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(status).Inc()
	m.RunWaitSeconds.WithLabelValues(status).Observe(waitSeconds)
}

// RecordProvision records one provisioning outcome.
func (m *PlannerMetrics) RecordProvision(status string) {
	if m == nil {
		return
	}
	m.ProvisionsTotal.WithLabelValues(status).Inc()
}

// RecordCleanup records the outcome of one resource deletion attempt.
func (m *PlannerMetrics) RecordCleanup(resource, status string) {
	if m == nil {
		return
	}
	m.CleanupDeletesTotal.WithLabelValues(resource, status).Inc()
}

// SetActiveSessions updates the active session gauge.
func (m *PlannerMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
