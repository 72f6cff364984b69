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
)

// mathTool is a binary numeric tool. Integer inputs produce integer
// results where the operation allows it, so "5" rather than "5.000000"
// lands in the filled plan.
type mathTool struct {
	def Definition
	fn  func(a, b float64) (float64, error)
	// keepInt reports whether an all-integer invocation stays integer.
	keepInt bool
}

// NewAdd returns the add(a, b) tool.
func NewAdd() Tool {
	return &mathTool{
		def: Definition{
			Name:        "add",
			Description: "Add two numbers.",
			Params:      []Param{{Name: "a", Type: "number"}, {Name: "b", Type: "number"}},
			Returns:     "number",
		},
		fn:      func(a, b float64) (float64, error) { return a + b, nil },
		keepInt: true,
	}
}

// NewSubtract returns the subtract(a, b) tool.
func NewSubtract() Tool {
	return &mathTool{
		def: Definition{
			Name:        "subtract",
			Description: "Subtract b from a.",
			Params:      []Param{{Name: "a", Type: "number"}, {Name: "b", Type: "number"}},
			Returns:     "number",
		},
		fn:      func(a, b float64) (float64, error) { return a - b, nil },
		keepInt: true,
	}
}

// NewMultiply returns the multiply(a, b) tool.
func NewMultiply() Tool {
	return &mathTool{
		def: Definition{
			Name:        "multiply",
			Description: "Multiply two numbers.",
			Params:      []Param{{Name: "a", Type: "number"}, {Name: "b", Type: "number"}},
			Returns:     "number",
		},
		fn:      func(a, b float64) (float64, error) { return a * b, nil },
		keepInt: true,
	}
}

// NewDivide returns the divide(a, b) tool. Division by zero is a tool
// error, not a NaN smuggled into the filled plan.
func NewDivide() Tool {
	return &mathTool{
		def: Definition{
			Name:        "divide",
			Description: "Divide a by b.",
			Params:      []Param{{Name: "a", Type: "number"}, {Name: "b", Type: "number"}},
			Returns:     "number",
		},
		fn: func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return a / b, nil
		},
	}
}

// Definition implements Tool.
func (t *mathTool) Definition() Definition { return t.def }

// Invoke implements Tool with strict arity and numeric type checking.
func (t *mathTool) Invoke(_ context.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%s: expected 2 arguments, got %d", t.def.Name, len(args))
	}

	a, aInt, err := asNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("%s: argument a: %w", t.def.Name, err)
	}
	b, bInt, err := asNumber(args[1])
	if err != nil {
		return nil, fmt.Errorf("%s: argument b: %w", t.def.Name, err)
	}

	result, err := t.fn(a, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.def.Name, err)
	}

	if t.keepInt && aInt && bInt {
		return int64(result), nil
	}
	return result, nil
}

// asNumber converts an argument to float64, reporting whether it was an
// integer. Handles the types the parser and tool results produce.
func asNumber(v any) (val float64, isInt bool, err error) {
	switch n := v.(type) {
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case float64:
		return n, false, nil
	case float32:
		return float64(n), false, nil
	default:
		return 0, false, fmt.Errorf("expected a number, got %T", v)
	}
}
