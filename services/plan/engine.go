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

// engine.go walks the execution graph. A single coordinator goroutine owns
// every status write; workers only run tool invocations and report back.
// This keeps the shared node arena free of ad hoc concurrent mutation.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/Planweave/services/plan/tools"
)

// DefaultMaxWorkers bounds concurrent tool invocations per plan.
// Unbounded dispatch would let a wide plan overwhelm downstream tool
// services.
const DefaultMaxWorkers = 4

// Engine drives every DependencyNode from Pending to Done or Failed,
// respecting dependency order.
//
// Thread Safety: Engine itself is stateless between runs and safe for
// concurrent use; each Execute call owns its plan exclusively.
type Engine struct {
	registry   *tools.Registry
	maxWorkers int
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxWorkers sets the concurrency limit for tool invocations.
func WithMaxWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxWorkers = n
		}
	}
}

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over the given tool registry.
func NewEngine(registry *tools.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:   registry,
		maxWorkers: DefaultMaxWorkers,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// dispatchItem is the immutable work unit handed to a worker.
type dispatchItem struct {
	id   string
	fn   string
	args []any
	tool tools.Tool
}

// completion is a worker's report back to the coordinator.
type completion struct {
	id       string
	result   any
	err      error
	duration time.Duration
}

// Execute walks the plan's graph to completion or first failure.
//
// Description:
//
//	Repeatedly dispatches nodes whose dependencies are all Done, up to the
//	configured worker bound. Argument references are substituted with the
//	corresponding dependency results at dispatch time. On the first
//	failure, in-flight invocations are allowed to finish (their results
//	are retained for diagnostics) but nothing new is dispatched, and the
//	first failure is returned as an *ExecutionError. An empty plan is a
//	trivially empty success. There is no retry at this layer.
//
// Inputs:
//
//	ctx - Cancellation propagates to every tool invocation.
//	p - The plan to execute; mutated in place (status, results).
//
// Outputs:
//
//	error - Nil on full success; *ExecutionError on the first tool
//	failure; ctx.Err() if the run was canceled before completing.
//
// Thread Safety: p must not be shared with another Execute call.
func (e *Engine) Execute(ctx context.Context, p *ExecutionPlan) error {
	total := len(p.Order)
	ctx, span := otel.Tracer(planTracerName).Start(ctx, "plan.Execute")
	span.SetAttributes(attribute.Int("plan.nodes", total))
	defer span.End()

	if total == 0 {
		return nil
	}

	workers := min(e.maxWorkers, total)
	dispatchCh := make(chan dispatchItem)
	completions := make(chan completion, workers)

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for item := range dispatchCh {
				completions <- e.invoke(ctx, item)
			}
			return nil
		})
	}

	err := e.coordinate(ctx, p, dispatchCh, completions)
	// dispatchCh is closed by coordinate; workers drain and exit.
	g.Wait()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "plan execution failed")
		planRunNodesFailed.Inc()
	}
	return err
}

// coordinate owns the scheduling loop and all node status writes.
func (e *Engine) coordinate(ctx context.Context, p *ExecutionPlan, dispatchCh chan<- dispatchItem, completions <-chan completion) error {
	defer close(dispatchCh)

	waiting := make(map[string]int, len(p.Nodes))
	for _, id := range p.Order {
		waiting[id] = len(p.Nodes[id].Dependencies)
	}
	dependents := p.dependents()

	var ready []string
	for _, id := range p.Order {
		if waiting[id] == 0 {
			p.Nodes[id].Status = StatusReady
			ready = append(ready, id)
		}
	}

	var (
		firstErr  *ExecutionError
		canceled  bool
		inflight  int
		completed int
		seq       int
	)
	done := ctx.Done()

	for completed < len(p.Order) {
		// After a failure or cancellation no new node is dispatched; the
		// loop only collects what is already in flight.
		if (firstErr != nil || canceled) && inflight == 0 {
			break
		}
		if len(ready) == 0 && inflight == 0 {
			// Unreachable for a validated acyclic graph, kept as a guard
			// against coordinator bugs rather than hanging the run.
			return &ExecutionError{
				Placeholder: "",
				Function:    "",
				Err:         fmt.Errorf("scheduler stalled with %d/%d nodes completed", completed, len(p.Order)),
			}
		}

		var (
			sendCh   chan<- dispatchItem
			nextItem dispatchItem
		)
		if len(ready) > 0 && firstErr == nil && !canceled {
			node := p.Nodes[ready[0]]
			args, tool, err := e.prepare(p, node)
			if err != nil {
				// Registry drift between parse and execute; fail the node
				// without a worker round-trip.
				ready = ready[1:]
				node.Status = StatusFailed
				node.Err = err
				completed++
				if firstErr == nil {
					firstErr = &ExecutionError{Placeholder: node.ID, Function: node.Expr.Function, Err: err}
				}
				continue
			}
			node.ResolvedArgs = args
			nextItem = dispatchItem{id: node.ID, fn: node.Expr.Function, args: args, tool: tool}
			sendCh = dispatchCh
		}

		select {
		case sendCh <- nextItem:
			node := p.Nodes[nextItem.id]
			ready = ready[1:]
			node.Status = StatusRunning
			node.DispatchSeq = seq
			seq++
			inflight++

		case c := <-completions:
			inflight--
			completed++
			node := p.Nodes[c.id]
			if c.err != nil {
				node.Status = StatusFailed
				node.Err = c.err
				nodeExecDuration.WithLabelValues(node.Expr.Function, "error").Observe(c.duration.Seconds())
				toolErrorsTotal.WithLabelValues(node.Expr.Function).Inc()
				e.logger.Warn("tool invocation failed",
					slog.String("placeholder", node.ID),
					slog.String("function", node.Expr.Function),
					slog.Duration("duration", c.duration),
					slog.String("error", c.err.Error()),
				)
				if firstErr == nil {
					firstErr = &ExecutionError{
						Placeholder: node.ID,
						Function:    node.Expr.Function,
						Args:        node.ResolvedArgs,
						Err:         c.err,
					}
				}
				continue
			}

			node.Status = StatusDone
			node.Result = c.result
			nodeExecDuration.WithLabelValues(node.Expr.Function, "success").Observe(c.duration.Seconds())
			e.logger.Debug("tool invocation done",
				slog.String("placeholder", node.ID),
				slog.String("function", node.Expr.Function),
				slog.Duration("duration", c.duration),
			)
			if firstErr != nil || canceled {
				continue
			}
			for _, depID := range dependents[c.id] {
				waiting[depID]--
				if waiting[depID] == 0 {
					p.Nodes[depID].Status = StatusReady
					ready = append(ready, depID)
				}
			}

		case <-done:
			canceled = true
			// Done stays closed; nil it out so collecting the in-flight
			// completions blocks instead of spinning on this case.
			done = nil
		}
	}

	if firstErr != nil {
		return firstErr
	}
	if canceled {
		return ctx.Err()
	}
	return nil
}

// prepare resolves a Ready node's arguments and looks up its tool.
func (e *Engine) prepare(p *ExecutionPlan, node *DependencyNode) ([]any, tools.Tool, error) {
	tool, ok := e.registry.Get(node.Expr.Function)
	if !ok {
		return nil, nil, fmt.Errorf("tool %q not in registry", node.Expr.Function)
	}

	args := make([]any, len(node.Expr.Args))
	for i, arg := range node.Expr.Args {
		if arg.Kind == ArgReference {
			dep := p.Nodes[arg.Ref]
			if dep == nil || dep.Status != StatusDone {
				return nil, nil, fmt.Errorf("dependency %q not resolved", arg.Ref)
			}
			args[i] = dep.Result
			continue
		}
		args[i] = arg.Value
	}
	return args, tool, nil
}

// invoke runs one tool invocation inside its own span and times it.
func (e *Engine) invoke(ctx context.Context, item dispatchItem) completion {
	ctx, span := otel.Tracer(planTracerName).Start(ctx, "plan.InvokeTool")
	span.SetAttributes(
		attribute.String("tool.function", item.fn),
		attribute.String("plan.placeholder", item.id),
	)
	defer span.End()

	start := time.Now()
	result, err := item.tool.Invoke(ctx, item.args)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tool invocation failed")
	}
	return completion{id: item.id, result: result, err: err, duration: duration}
}
