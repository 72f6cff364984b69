// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package plan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// planTracerName is the shared OTel tracer name for the plan service.
// Call sites resolve it with otel.Tracer per span so a provider installed
// after package init still receives the spans.
const planTracerName = "planweave.plan"

// Package-level Prometheus metrics for plan runs. Auto-registered via
// promauto so no explicit registry wiring is needed.
var (
	// planRunsTotal counts completed runs by outcome.
	//
	// Labels:
	//   - status: "success", "graph_error", "execution_error",
	//     "rewrite_error", "plan_source_error", "refine_error"
	planRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planweave",
			Subsystem: "plan",
			Name:      "runs_total",
			Help:      "Total plan runs by outcome.",
		},
		[]string{"status"},
	)

	// planExpressionsParsed tracks how many call expressions a plan carries.
	planExpressionsParsed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "planweave",
			Subsystem: "plan",
			Name:      "expressions_per_plan",
			Help:      "Recognized call expressions per parsed plan.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	// parseDiagnosticsTotal counts skipped (inert) expressions by reason class.
	//
	// Labels:
	//   - reason: "malformed" or "unknown_function"
	parseDiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planweave",
			Subsystem: "plan",
			Name:      "parse_diagnostics_total",
			Help:      "Inert expressions skipped by the parser, by reason.",
		},
		[]string{"reason"},
	)

	// nodeExecDuration measures tool invocation duration per function.
	//
	// Labels:
	//   - function: tool name
	//   - status: "success" or "error"
	nodeExecDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "planweave",
			Subsystem: "plan",
			Name:      "node_duration_seconds",
			Help:      "Duration of tool invocations in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"function", "status"},
	)

	// toolErrorsTotal counts failed tool invocations by function.
	toolErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planweave",
			Subsystem: "plan",
			Name:      "tool_errors_total",
			Help:      "Failed tool invocations by function.",
		},
		[]string{"function"},
	)

	// planRunNodesFailed counts runs that ended with at least one Failed node.
	planRunNodesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "planweave",
			Subsystem: "plan",
			Name:      "runs_with_failed_nodes_total",
			Help:      "Runs that ended with at least one Failed node.",
		},
	)
)
