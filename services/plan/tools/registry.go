// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Param describes one positional parameter of a tool.
type Param struct {
	// Name is the parameter name shown in rendered signatures.
	Name string

	// Type is the human-readable type label (int, float, bool, string).
	Type string
}

// Definition is the caller-facing description of a tool.
//
// Description:
//
//	Used to render function signatures into the planning prompt and to
//	validate invocations. Tools take an ordered argument list, matching the
//	positional wire syntax of call expressions.
//
// Thread Safety: Definition is immutable and safe for concurrent read access.
type Definition struct {
	// Name is the function name the model calls.
	Name string

	// Description explains what the tool does, one line.
	Description string

	// Params are the positional parameters in call order.
	Params []Param

	// Returns is the human-readable result type label.
	Returns string
}

// Signature renders the definition as "name(a: int, b: int) -> int".
func (d Definition) Signature() string {
	sig := d.Name + "("
	for i, p := range d.Params {
		if i > 0 {
			sig += ", "
		}
		sig += p.Name + ": " + p.Type
	}
	sig += ")"
	if d.Returns != "" {
		sig += " -> " + d.Returns
	}
	return sig
}

// Tool is one invocable capability.
//
// Description:
//
//	The engine does not know or care how a tool is implemented
//	(retrieval, computation, API call). Invoke receives resolved positional arguments
//	and returns a result value or an error. Timeouts and retries, if any,
//	belong inside the tool; the engine surfaces a timeout as an ordinary
//	failure.
//
// Thread Safety: implementations must be safe for concurrent use; the
// engine may invoke independent tools in parallel.
type Tool interface {
	// Definition returns the tool's static description.
	Definition() Definition

	// Invoke runs the tool with resolved positional arguments.
	Invoke(ctx context.Context, args []any) (any, error)
}

// Registry maps function names to tools. Built once per run from the
// caller-supplied tool list.
//
// Thread Safety: safe for concurrent use via RWMutex. Registration after
// construction is supported but typically happens only at startup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry from the given tools.
//
// Outputs:
//
//	*Registry - The populated registry.
//	error - Non-nil if two tools share a name.
func NewRegistry(ts ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds one tool. Duplicate names are rejected: tool dispatch is
// keyed by name and a silent overwrite would misroute invocations.
func (r *Registry) Register(t Tool) error {
	name := t.Definition().Name
	if name == "" {
		return fmt.Errorf("tools: tool with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tools: duplicate tool name %q", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered under name. Satisfies the
// parser's FunctionSet.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Definitions returns all definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Names returns all tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// timeoutTool decorates a tool with a per-invocation deadline.
type timeoutTool struct {
	inner   Tool
	timeout time.Duration
}

// WithTimeout wraps a tool so each invocation runs under a deadline.
//
// Description:
//
//	The engine deliberately has no timeout policy of its own; deadlines
//	live at the tool invocation boundary. A deadline hit surfaces as the
//	context error from the wrapped tool.
func WithTimeout(t Tool, d time.Duration) Tool {
	if d <= 0 {
		return t
	}
	return &timeoutTool{inner: t, timeout: d}
}

// Definition returns the wrapped tool's definition.
func (t *timeoutTool) Definition() Definition { return t.inner.Definition() }

// Invoke runs the wrapped tool under the configured deadline.
func (t *timeoutTool) Invoke(ctx context.Context, args []any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Invoke(ctx, args)
}
