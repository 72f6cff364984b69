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
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/Planweave/services/plan/tools"
)

// Completer is a text-in/text-out model boundary.
//
// Description:
//
//	Both the Plan Source (first pass: question → abstract plan) and the
//	Refinement Sink (second pass: filled plan → final answer) are this
//	single request/response contract. The shell has no retry logic of its
//	own; cancellation of the run's context propagates into both calls.
type Completer interface {
	// Complete sends one prompt and returns the model's text response.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Shell drives one task end to end: request plan → parse → build graph →
// execute → rewrite → request refined final answer.
//
// Thread Safety: safe for concurrent Solve calls; every run owns its
// ExecutionPlan exclusively and no state is shared across runs.
type Shell struct {
	planSource Completer
	refiner    Completer
	registry   *tools.Registry
	engine     *Engine
	logger     *slog.Logger
}

// ShellOption configures a Shell.
type ShellOption func(*Shell)

// WithShellLogger sets the shell's logger.
func WithShellLogger(logger *slog.Logger) ShellOption {
	return func(s *Shell) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewShell wires a shell from its collaborators.
//
// Inputs:
//
//	planSource - Model boundary producing the abstract plan. Must not be nil.
//	refiner - Model boundary producing the final answer. Must not be nil.
//	registry - Tools available to this run. Must not be nil.
//	engine - Graph walker; typically NewEngine(registry, ...).
func NewShell(planSource, refiner Completer, registry *tools.Registry, engine *Engine, opts ...ShellOption) *Shell {
	s := &Shell{
		planSource: planSource,
		refiner:    refiner,
		registry:   registry,
		engine:     engine,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunReport is the outcome of one Solve call.
//
// On failure the report is still returned alongside the error so callers
// can see the plan text, diagnostics, and any partial results already
// computed for independent branches.
type RunReport struct {
	// RunID uniquely identifies this run in logs and traces.
	RunID string `json:"run_id"`

	// Question is the user's original question.
	Question string `json:"question"`

	// PlanText is the raw abstract plan from the Plan Source.
	PlanText string `json:"plan_text,omitempty"`

	// FilledPlan is the plan text with computed values substituted.
	// Empty if the run failed before rewriting.
	FilledPlan string `json:"filled_plan,omitempty"`

	// Answer is the Refinement Sink's final answer. Empty on failure:
	// a failed run never fabricates an answer from partial results.
	Answer string `json:"answer,omitempty"`

	// Diagnostics lists expressions the parser skipped as inert.
	Diagnostics []ParseDiagnostic `json:"diagnostics,omitempty"`

	// Results is the placeholder → result mapping. On failure it holds
	// the retained partial results for debugging.
	Results map[string]any `json:"results,omitempty"`
}

// Solve runs one task through the full pipeline.
//
// Description:
//
//	Fatal errors (graph construction, execution, rewrite, either model
//	boundary) return a non-nil error tagged for errors.Is against
//	ErrGraph / ErrExecution / ErrRewrite; none are downgraded to a
//	degraded-but-successful answer. A plan containing zero call
//	expressions is valid: it is "filled" unchanged and refined normally.
//
// Inputs:
//
//	ctx - Cancellation propagates to both model boundaries and all tools.
//	question - The natural-language task.
//
// Outputs:
//
//	*RunReport - Always non-nil; on failure it carries diagnostics and
//	partial results.
//	error - Nil only if the full pipeline succeeded.
//
// Thread Safety: safe for concurrent use.
func (s *Shell) Solve(ctx context.Context, question string) (*RunReport, error) {
	runID := uuid.NewString()
	ctx, span := otel.Tracer(planTracerName).Start(ctx, "plan.Solve")
	span.SetAttributes(attribute.String("run_id", runID))
	defer span.End()

	report := &RunReport{RunID: runID, Question: question}
	logger := s.logger.With(slog.String("run_id", runID))

	fail := func(status string, err error) (*RunReport, error) {
		planRunsTotal.WithLabelValues(status).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		logger.Warn("run failed",
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
		return report, err
	}

	// Phase 1: request the abstract plan.
	planText, err := s.planSource.Complete(ctx, BuildPlanPrompt(question, s.registry.Definitions()))
	if err != nil {
		return fail("plan_source_error", fmt.Errorf("plan source: %w", err))
	}
	report.PlanText = planText

	// Phase 2: parse.
	parsed := ParsePlan(planText, s.registry)
	report.Diagnostics = parsed.Diagnostics
	planExpressionsParsed.Observe(float64(len(parsed.Expressions)))
	for _, d := range parsed.Diagnostics {
		reason := "malformed"
		if strings.HasPrefix(d.Reason, "unknown function") {
			reason = "unknown_function"
		}
		parseDiagnosticsTotal.WithLabelValues(reason).Inc()
	}
	logger.Info("plan parsed",
		slog.Int("expressions", len(parsed.Expressions)),
		slog.Int("diagnostics", len(parsed.Diagnostics)),
	)

	// Phase 3: build the graph. Fails before any tool is invoked.
	execPlan, err := BuildPlan(planText, parsed.Expressions)
	if err != nil {
		return fail("graph_error", err)
	}

	// Phase 4: execute.
	execErr := s.engine.Execute(ctx, execPlan)
	report.Results = execPlan.Results()
	if execErr != nil {
		return fail("execution_error", execErr)
	}

	// Phase 5: rewrite.
	filled, err := Fill(execPlan)
	if err != nil {
		return fail("rewrite_error", err)
	}
	report.FilledPlan = filled

	// Phase 6: refine into the final answer.
	answer, err := s.refiner.Complete(ctx, BuildRefinePrompt(question, filled))
	if err != nil {
		return fail("refine_error", fmt.Errorf("refinement sink: %w", err))
	}
	report.Answer = answer

	planRunsTotal.WithLabelValues("success").Inc()
	logger.Info("run complete",
		slog.Int("expressions", len(parsed.Expressions)),
		slog.Int("answer_len", len(answer)),
	)
	return report, nil
}
