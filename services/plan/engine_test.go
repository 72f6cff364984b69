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
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/AleutianAI/Planweave/services/plan/tools"
)

// stubTool is a scriptable tool for engine tests.
type stubTool struct {
	name string
	fn   func(ctx context.Context, args []any) (any, error)
}

func (s *stubTool) Definition() tools.Definition {
	return tools.Definition{Name: s.name, Description: "test stub", Returns: "any"}
}

func (s *stubTool) Invoke(ctx context.Context, args []any) (any, error) {
	return s.fn(ctx, args)
}

// mathRegistry builds a registry with working add/multiply stubs.
func mathRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	add := &stubTool{name: "add", fn: func(_ context.Context, args []any) (any, error) {
		return args[0].(int64) + args[1].(int64), nil
	}}
	mul := &stubTool{name: "multiply", fn: func(_ context.Context, args []any) (any, error) {
		return args[0].(int64) * args[1].(int64), nil
	}}
	reg, err := tools.NewRegistry(add, mul)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func TestEngine_Execute_DependencyOrder(t *testing.T) {
	p := mustBuild(t, "[FUNC add(3, 2) = y1] then [FUNC multiply(y1, 3) = y2]")
	engine := NewEngine(mathRegistry(t))

	if err := engine.Execute(context.Background(), p); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	y1, y2 := p.Nodes["y1"], p.Nodes["y2"]
	if y1.Status != StatusDone || y2.Status != StatusDone {
		t.Fatalf("statuses = %v, %v; want done, done", y1.Status, y2.Status)
	}
	if y1.Result != int64(5) {
		t.Errorf("y1 result = %v, want 5", y1.Result)
	}
	if y2.Result != int64(15) {
		t.Errorf("y2 result = %v, want 15", y2.Result)
	}
	if y2.DispatchSeq <= y1.DispatchSeq {
		t.Errorf("dispatch order: y1 seq %d, y2 seq %d; dependency must dispatch first",
			y1.DispatchSeq, y2.DispatchSeq)
	}
	if got := len(y2.ResolvedArgs); got != 2 {
		t.Fatalf("y2 resolved args = %d, want 2", got)
	}
	if y2.ResolvedArgs[0] != int64(5) {
		t.Errorf("y2 arg 0 = %v, want substituted 5", y2.ResolvedArgs[0])
	}
}

func TestEngine_Execute_IndependentNodesAllRun(t *testing.T) {
	p := mustBuild(t, "[FUNC add(1, 1) = y1] [FUNC add(2, 2) = y2] [FUNC add(3, 3) = y3]")
	engine := NewEngine(mathRegistry(t), WithMaxWorkers(2))

	if err := engine.Execute(context.Background(), p); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := map[string]any{"y1": int64(2), "y2": int64(4), "y3": int64(6)}
	for id, w := range want {
		if got := p.Nodes[id].Result; got != w {
			t.Errorf("%s result = %v, want %v", id, got, w)
		}
	}
}

func TestEngine_Execute_FailureHaltsDependents(t *testing.T) {
	boom := errors.New("boom")
	failing := &stubTool{name: "add", fn: func(_ context.Context, args []any) (any, error) {
		return nil, boom
	}}
	mul := &stubTool{name: "multiply", fn: func(_ context.Context, args []any) (any, error) {
		return args[0].(int64) * args[1].(int64), nil
	}}
	reg, err := tools.NewRegistry(failing, mul)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	p := mustBuild(t, "[FUNC add(3, 2) = y1] then [FUNC multiply(y1, 3) = y2]")
	engine := NewEngine(reg)

	execErr := engine.Execute(context.Background(), p)
	if execErr == nil {
		t.Fatal("Execute() error = nil, want tool failure")
	}
	if !errors.Is(execErr, ErrExecution) {
		t.Errorf("errors.Is(err, ErrExecution) = false for %v", execErr)
	}
	if !errors.Is(execErr, boom) {
		t.Errorf("errors.Is(err, boom) = false; cause must be wrapped")
	}

	var ee *ExecutionError
	if !errors.As(execErr, &ee) {
		t.Fatalf("err = %T, want *ExecutionError", execErr)
	}
	if ee.Placeholder != "y1" || ee.Function != "add" {
		t.Errorf("failure attributed to %s/%s, want y1/add", ee.Placeholder, ee.Function)
	}

	if got := p.Nodes["y1"].Status; got != StatusFailed {
		t.Errorf("y1 status = %v, want failed", got)
	}
	// The dependent was never dispatched.
	if got := p.Nodes["y2"].Status; got == StatusDone || got == StatusRunning {
		t.Errorf("y2 status = %v, want never executed", got)
	}
}

func TestEngine_Execute_PartialResultsRetained(t *testing.T) {
	// y1 fails; the independent y2 may have been dispatched already and
	// its result must be retained either way.
	failOn := func(_ context.Context, args []any) (any, error) {
		if args[0] == int64(3) {
			return nil, fmt.Errorf("no dice")
		}
		return args[0].(int64) + args[1].(int64), nil
	}
	reg, err := tools.NewRegistry(&stubTool{name: "add", fn: failOn})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	// Serial execution makes the outcome deterministic: y2 dispatches
	// before y1's failure is observed only with a single worker if it is
	// first in textual order.
	p := mustBuild(t, "[FUNC add(1, 1) = y2] then [FUNC add(3, 2) = y1]")
	engine := NewEngine(reg, WithMaxWorkers(1))

	if err := engine.Execute(context.Background(), p); err == nil {
		t.Fatal("Execute() error = nil, want failure")
	}

	results := p.Results()
	if got := results["y2"]; got != int64(2) {
		t.Errorf("retained y2 = %v, want 2", got)
	}
	if _, ok := results["y1"]; ok {
		t.Error("failed node must not appear in results")
	}
}

func TestEngine_Execute_EmptyPlan(t *testing.T) {
	p, err := BuildPlan("no calls here", nil)
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	engine := NewEngine(mathRegistry(t))
	if err := engine.Execute(context.Background(), p); err != nil {
		t.Errorf("Execute() error = %v, want nil for empty plan", err)
	}
}

func TestEngine_Execute_CanceledBeforeDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Context-aware stub: whether the coordinator observes cancellation
	// before or after dispatch, the run must surface context.Canceled.
	reg, err := tools.NewRegistry(&stubTool{name: "add", fn: func(ctx context.Context, _ []any) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return int64(0), nil
	}})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	p := mustBuild(t, "[FUNC add(1, 1) = y1]")
	engine := NewEngine(reg)

	execErr := engine.Execute(ctx, p)
	if !errors.Is(execErr, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled in chain", execErr)
	}
	if got := p.Nodes["y1"].Status; got == StatusDone {
		t.Errorf("y1 status = %v, want not done after cancellation", got)
	}
}

func TestEngine_Execute_CancelWaitsOutInflightWithoutSpinning(t *testing.T) {
	// A slow tool that ignores cancellation: after cancel, the coordinator
	// must block until its completion arrives rather than respinning on
	// the closed Done channel.
	slow := &stubTool{name: "add", fn: func(_ context.Context, args []any) (any, error) {
		time.Sleep(300 * time.Millisecond)
		return args[0].(int64) + args[1].(int64), nil
	}}
	reg, err := tools.NewRegistry(slow)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	p := mustBuild(t, "[FUNC add(1, 1) = y1]")
	engine := NewEngine(reg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	var before, after syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &before); err != nil {
		t.Fatalf("Getrusage() error = %v", err)
	}
	execErr := engine.Execute(ctx, p)
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &after); err != nil {
		t.Fatalf("Getrusage() error = %v", err)
	}

	if !errors.Is(execErr, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", execErr)
	}
	// The in-flight invocation finished and its result is retained.
	if got := p.Nodes["y1"].Result; got != int64(2) {
		t.Errorf("in-flight y1 result = %v, want 2 retained", got)
	}

	cpu := time.Duration(after.Utime.Nano()-before.Utime.Nano()) +
		time.Duration(after.Stime.Nano()-before.Stime.Nano())
	if cpu > 150*time.Millisecond {
		t.Errorf("coordinator burned %v of CPU waiting out an in-flight tool", cpu)
	}
}

func TestEngine_Execute_MissingToolFailsNode(t *testing.T) {
	// Registry drift: plan references a tool the registry no longer has.
	reg, err := tools.NewRegistry(&stubTool{name: "add", fn: func(_ context.Context, args []any) (any, error) {
		return args[0].(int64) + args[1].(int64), nil
	}})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	p := mustBuild(t, "[FUNC multiply(2, 3) = y1]")
	engine := NewEngine(reg)

	execErr := engine.Execute(context.Background(), p)
	if !errors.Is(execErr, ErrExecution) {
		t.Fatalf("Execute() error = %v, want ErrExecution", execErr)
	}
	if got := p.Nodes["y1"].Status; got != StatusFailed {
		t.Errorf("y1 status = %v, want failed", got)
	}
}
