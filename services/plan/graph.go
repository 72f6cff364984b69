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
	"sort"
)

// NodeStatus is the lifecycle state of one dependency node.
type NodeStatus int

const (
	// StatusPending means one or more dependencies are not Done yet.
	StatusPending NodeStatus = iota

	// StatusReady means all dependencies are Done and the node is queued
	// for dispatch.
	StatusReady

	// StatusRunning means the tool invocation is in flight.
	StatusRunning

	// StatusDone means the invocation returned successfully and Result is set.
	StatusDone

	// StatusFailed means the invocation returned an error.
	StatusFailed
)

// String returns the lowercase status name for logs and metrics labels.
func (s NodeStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DependencyNode is one node of the execution graph, one-to-one with a
// CallExpression.
//
// Thread Safety: all fields are owned by the engine's coordinator
// goroutine during execution; workers receive only immutable copies of
// what they need and report completion back to the coordinator. Outside
// execution the plan is exclusively owned by one run.
type DependencyNode struct {
	// ID is the output placeholder of the owning expression.
	ID string

	// Expr is the owning call expression.
	Expr CallExpression

	// Dependencies holds the placeholder ids this node's arguments reference.
	Dependencies map[string]struct{}

	// ResolvedArgs are the arguments after dependency substitution.
	// Populated by the engine when the node becomes Ready.
	ResolvedArgs []any

	// Result is the tool's return value; nil until the node is Done.
	Result any

	// Status is the node's lifecycle state.
	Status NodeStatus

	// Err is the tool invocation error for Failed nodes.
	Err error

	// DispatchSeq is a monotonically increasing sequence number assigned at
	// dispatch time, recorded so dependency ordering is verifiable.
	DispatchSeq int
}

// ExecutionPlan is the full DAG for one task.
//
// Description:
//
//	Maps placeholder id to node, and keeps the original text plus the
//	recognized expressions in textual order. The plan is created fresh per
//	model-generated plan, mutated in place by the engine, consumed once by
//	the rewriter, and then discarded. It is never shared across runs.
type ExecutionPlan struct {
	// Text is the original plan text the expressions were parsed from.
	Text string

	// Exprs are the recognized call expressions in textual order.
	Exprs []CallExpression

	// Nodes maps placeholder id to its dependency node.
	Nodes map[string]*DependencyNode

	// Order lists placeholder ids in textual order of their definitions.
	Order []string
}

// BuildPlan constructs the execution graph for one parsed plan.
//
// Description:
//
//	Computes each node's dependency set purely from argument references,
//	not from textual order. Finishes the parser's provisional argument
//	classification: an unquoted bare identifier matching a placeholder
//	defined anywhere in the plan becomes a reference (so forward references
//	feed cycle detection), and one that matches the placeholder shape but
//	has no defining expression is an unknown reference.
//
//	Fails fast, before any tool is invoked, on:
//	  - duplicate placeholder definitions (result storage would be ambiguous;
//	    last-writer-wins is silently wrong and is rejected),
//	  - unknown references,
//	  - dependency cycles (the error names the cycle members).
//
// Inputs:
//
//	text - The original plan text.
//	exprs - The recognized expressions from ParsePlan, in textual order.
//
// Outputs:
//
//	*ExecutionPlan - The populated graph, every node Pending.
//	error - A *GraphError if the plan cannot be safely executed.
//
// Thread Safety: Safe for concurrent use; builds a fresh plan each call.
func BuildPlan(text string, exprs []CallExpression) (*ExecutionPlan, error) {
	defined := make(map[string]struct{}, len(exprs))
	for _, expr := range exprs {
		if _, dup := defined[expr.Output]; dup {
			return nil, &GraphError{
				Kind:        GraphDuplicatePlaceholder,
				Placeholder: expr.Output,
				Function:    expr.Function,
			}
		}
		defined[expr.Output] = struct{}{}
	}

	p := &ExecutionPlan{
		Text:  text,
		Exprs: exprs,
		Nodes: make(map[string]*DependencyNode, len(exprs)),
		Order: make([]string, 0, len(exprs)),
	}

	for ei := range exprs {
		expr := exprs[ei]
		deps := make(map[string]struct{})
		for ai := range expr.Args {
			arg := &exprs[ei].Args[ai]
			switch {
			case arg.Kind == ArgReference:
				deps[arg.Ref] = struct{}{}
			case arg.BareIdent:
				raw := arg.Raw
				if _, ok := defined[raw]; ok {
					// Forward reference: defined later in the text. Upgrade
					// so the edge participates in cycle detection.
					arg.Kind = ArgReference
					arg.Ref = raw
					arg.Value = nil
					deps[raw] = struct{}{}
				} else if looksLikePlaceholder(raw) {
					return nil, &GraphError{
						Kind:        GraphUnknownReference,
						Placeholder: raw,
						Function:    expr.Function,
					}
				}
			}
		}
		node := &DependencyNode{
			ID:           exprs[ei].Output,
			Expr:         exprs[ei],
			Dependencies: deps,
			Status:       StatusPending,
		}
		p.Nodes[node.ID] = node
		p.Order = append(p.Order, node.ID)
	}

	if cycle := findCycle(p); cycle != nil {
		return nil, &GraphError{Kind: GraphCycle, Cycle: cycle}
	}

	return p, nil
}

// findCycle runs an iterative-coloring DFS over dependency edges.
//
// Returns the placeholder ids on the first cycle found, sorted for a
// deterministic error message, or nil if the graph is acyclic.
func findCycle(p *ExecutionPlan) []string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(p.Nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		stack = append(stack, id)
		for dep := range p.Nodes[id].Dependencies {
			switch color[dep] {
			case gray:
				// Collect the segment of the path from dep to id.
				var cycle []string
				for i := len(stack) - 1; i >= 0; i-- {
					cycle = append(cycle, stack[i])
					if stack[i] == dep {
						break
					}
				}
				sort.Strings(cycle)
				return cycle
			case white:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range p.Order {
		if color[id] == white {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Results returns the placeholder → result mapping for Done nodes.
//
// On a failed run this is the retained partial result set for diagnostics.
func (p *ExecutionPlan) Results() map[string]any {
	out := make(map[string]any, len(p.Nodes))
	for id, node := range p.Nodes {
		if node.Status == StatusDone {
			out[id] = node.Result
		}
	}
	return out
}

// dependents builds the reverse adjacency: placeholder → nodes that
// depend on it. Used by the engine to find newly ready nodes without
// rescanning the whole graph.
func (p *ExecutionPlan) dependents() map[string][]string {
	rev := make(map[string][]string, len(p.Nodes))
	for _, id := range p.Order {
		for dep := range p.Nodes[id].Dependencies {
			rev[dep] = append(rev[dep], id)
		}
	}
	return rev
}
