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
	"errors"
	"fmt"
	"strings"
)

// Fatal error sentinels. Every fatal error from this package matches
// exactly one of these via errors.Is, so the orchestration shell can
// propagate a single tagged result without string matching.
var (
	// ErrGraph tags graph-construction failures: the plan itself cannot be
	// safely executed and no tool was invoked.
	ErrGraph = errors.New("plan graph error")

	// ErrExecution tags tool invocation failures during the graph walk.
	ErrExecution = errors.New("plan execution error")

	// ErrRewrite tags substitution failures: the graph and the text
	// disagree, which must never be papered over with empty output.
	ErrRewrite = errors.New("plan rewrite error")
)

// GraphErrorKind discriminates graph-construction failures.
type GraphErrorKind int

const (
	// GraphDuplicatePlaceholder: two calls define the same output id.
	GraphDuplicatePlaceholder GraphErrorKind = iota

	// GraphUnknownReference: an argument references a placeholder with no
	// defining call in the plan.
	GraphUnknownReference

	// GraphCycle: dependency edges return to a node on the current path.
	GraphCycle
)

// GraphError reports a fatal defect found while building the graph.
//
// Surfaced before any tool is invoked.
type GraphError struct {
	// Kind discriminates the defect.
	Kind GraphErrorKind

	// Placeholder is the offending placeholder id (duplicate or unknown
	// reference kinds).
	Placeholder string

	// Function is the function of the expression that surfaced the defect,
	// when one is involved.
	Function string

	// Cycle lists the placeholder ids on the cycle (cycle kind), sorted.
	Cycle []string
}

// Error implements error.
func (e *GraphError) Error() string {
	switch e.Kind {
	case GraphDuplicatePlaceholder:
		return fmt.Sprintf("duplicate placeholder definition %q (second definition by %s)", e.Placeholder, e.Function)
	case GraphUnknownReference:
		return fmt.Sprintf("reference to undefined placeholder %q (argument of %s)", e.Placeholder, e.Function)
	case GraphCycle:
		return fmt.Sprintf("dependency cycle between placeholders: %s", strings.Join(e.Cycle, ", "))
	default:
		return "graph error"
	}
}

// Is makes every GraphError match ErrGraph.
func (e *GraphError) Is(target error) bool {
	return target == ErrGraph
}

// ExecutionError reports the first unrecoverable tool invocation failure.
//
// Carries the failed node, its function, and the resolved arguments so the
// caller's failure report can name exactly what went wrong. Partial
// results of sibling nodes remain on the ExecutionPlan for diagnostics.
type ExecutionError struct {
	// Placeholder is the failed node's output id.
	Placeholder string

	// Function is the tool that failed.
	Function string

	// Args are the resolved arguments the tool was invoked with.
	Args []any

	// Err is the underlying tool error.
	Err error
}

// Error implements error.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s(%s) failed for placeholder %q: %v",
		e.Function, formatArgs(e.Args), e.Placeholder, e.Err)
}

// Unwrap exposes the tool error for errors.Is/As chains.
func (e *ExecutionError) Unwrap() error { return e.Err }

// Is makes every ExecutionError match ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// RewriteError reports an attempt to substitute a node that is not Done.
type RewriteError struct {
	// Placeholder is the node whose substitution was attempted.
	Placeholder string

	// Status is the node's status at rewrite time.
	Status NodeStatus
}

// Error implements error.
func (e *RewriteError) Error() string {
	return fmt.Sprintf("cannot substitute placeholder %q: node status is %s, not done", e.Placeholder, e.Status)
}

// Is makes every RewriteError match ErrRewrite.
func (e *RewriteError) Is(target error) bool {
	return target == ErrRewrite
}

// formatArgs renders resolved arguments for error messages, quoting
// strings so empty and whitespace-only values stay visible.
func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if s, ok := a.(string); ok {
			parts[i] = fmt.Sprintf("%q", s)
			continue
		}
		parts[i] = fmt.Sprintf("%v", a)
	}
	return strings.Join(parts, ", ")
}
