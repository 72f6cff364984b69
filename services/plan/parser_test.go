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
	"strings"
	"testing"
)

func mathFunctions() FunctionNames {
	return NewFunctionNames("add", "subtract", "multiply", "divide", "uber_10k", "lyft_10k")
}

func TestParsePlan_TwoStepArithmetic(t *testing.T) {
	text := "Sally starts with [FUNC add(3, 2) = y1] apples. " +
		"Bob has [FUNC multiply(y1, 3) = y2] apples."

	result := ParsePlan(text, mathFunctions())
	if len(result.Diagnostics) != 0 {
		t.Fatalf("Diagnostics = %v, want none", result.Diagnostics)
	}
	if len(result.Expressions) != 2 {
		t.Fatalf("len(Expressions) = %d, want 2", len(result.Expressions))
	}

	first := result.Expressions[0]
	if first.Function != "add" || first.Output != "y1" {
		t.Errorf("first = %s -> %s, want add -> y1", first.Function, first.Output)
	}
	if len(first.Args) != 2 {
		t.Fatalf("first args = %d, want 2", len(first.Args))
	}
	if first.Args[0].Kind != ArgLiteral || first.Args[0].Value != int64(3) {
		t.Errorf("first arg = %+v, want int64 literal 3", first.Args[0])
	}

	second := result.Expressions[1]
	if second.Args[0].Kind != ArgReference || second.Args[0].Ref != "y1" {
		t.Errorf("second arg 0 = %+v, want reference to y1", second.Args[0])
	}
	if second.Args[1].Kind != ArgLiteral || second.Args[1].Value != int64(3) {
		t.Errorf("second arg 1 = %+v, want int64 literal 3", second.Args[1])
	}

	// Spans must slice the original text back to the raw marker.
	for _, expr := range result.Expressions {
		if got := text[expr.Span.Start:expr.Span.End]; got != expr.Raw {
			t.Errorf("span slice = %q, want %q", got, expr.Raw)
		}
		if !strings.HasPrefix(expr.Raw, "[FUNC ") || !strings.HasSuffix(expr.Raw, "]") {
			t.Errorf("raw = %q, want full bracketed marker", expr.Raw)
		}
	}
}

func TestParsePlan_QuotedArguments(t *testing.T) {
	text := `Look up [FUNC uber_10k("revenue, net of fees (2023)") = y1] first.`

	result := ParsePlan(text, mathFunctions())
	if len(result.Expressions) != 1 {
		t.Fatalf("len(Expressions) = %d, want 1; diagnostics: %v", len(result.Expressions), result.Diagnostics)
	}

	arg := result.Expressions[0].Args[0]
	if arg.Kind != ArgLiteral {
		t.Fatalf("arg kind = %v, want literal", arg.Kind)
	}
	// Comma and parens inside the quotes must not split the argument.
	if arg.Value != "revenue, net of fees (2023)" {
		t.Errorf("arg value = %q, want the full quoted string", arg.Value)
	}
}

func TestParsePlan_QuotedPlaceholderIsLiteral(t *testing.T) {
	text := `[FUNC add(1, 2) = y1] then [FUNC uber_10k("y1") = y2]`

	result := ParsePlan(text, mathFunctions())
	if len(result.Expressions) != 2 {
		t.Fatalf("len(Expressions) = %d, want 2", len(result.Expressions))
	}
	arg := result.Expressions[1].Args[0]
	if arg.Kind != ArgLiteral || arg.Value != "y1" {
		t.Errorf("quoted placeholder parsed as %+v, want string literal \"y1\"", arg)
	}
}

func TestParsePlan_EscapedQuote(t *testing.T) {
	text := `[FUNC uber_10k("driver \"supply\" costs") = y1]`

	result := ParsePlan(text, mathFunctions())
	if len(result.Expressions) != 1 {
		t.Fatalf("len(Expressions) = %d, want 1; diagnostics: %v", len(result.Expressions), result.Diagnostics)
	}
	if got := result.Expressions[0].Args[0].Value; got != `driver "supply" costs` {
		t.Errorf("arg value = %q, want unescaped string", got)
	}
}

func TestParsePlan_LiteralCoercion(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"3.5", 3.5},
		{"true", true},
		{"q3_revenue", "q3_revenue"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			result := ParsePlan("[FUNC uber_10k("+tt.raw+") = y1]", mathFunctions())
			if len(result.Expressions) != 1 {
				t.Fatalf("parse failed: %v", result.Diagnostics)
			}
			if got := result.Expressions[0].Args[0].Value; got != tt.want {
				t.Errorf("coerced %q to %v (%T), want %v (%T)", tt.raw, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestParsePlan_MalformedMarker(t *testing.T) {
	text := "Broken [FUNC add(1, 2 = y1] then fine [FUNC add(1, 2) = y2] end."

	result := ParsePlan(text, mathFunctions())
	if len(result.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want exactly 1", result.Diagnostics)
	}
	if len(result.Expressions) != 1 {
		t.Fatalf("len(Expressions) = %d, want the well-formed marker only", len(result.Expressions))
	}
	if result.Expressions[0].Output != "y2" {
		t.Errorf("surviving expression = %q, want y2", result.Expressions[0].Output)
	}
}

func TestParsePlan_UnknownFunction(t *testing.T) {
	text := "[FUNC frobnicate(1) = y1] and [FUNC add(1, 2) = y2]"

	result := ParsePlan(text, mathFunctions())
	if len(result.Expressions) != 1 || result.Expressions[0].Function != "add" {
		t.Fatalf("Expressions = %v, want only the add call", result.Expressions)
	}
	if len(result.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want exactly 1", result.Diagnostics)
	}
	if !strings.Contains(result.Diagnostics[0].Reason, "unknown function: frobnicate") {
		t.Errorf("reason = %q, want unknown function mention", result.Diagnostics[0].Reason)
	}
}

func TestParsePlan_NoMarkers(t *testing.T) {
	result := ParsePlan("The capital of France is Paris.", mathFunctions())
	if len(result.Expressions) != 0 || len(result.Diagnostics) != 0 {
		t.Errorf("got %d expressions, %d diagnostics; want none",
			len(result.Expressions), len(result.Diagnostics))
	}
}

func TestParsePlan_ProseBracketNotAMarker(t *testing.T) {
	// "[FUNCTION ...]" shares the prefix but not the marker's trailing space.
	result := ParsePlan("See [FUNCTIONAL SPEC] for details.", mathFunctions())
	if len(result.Expressions) != 0 || len(result.Diagnostics) != 0 {
		t.Errorf("prose bracket produced %d expressions, %d diagnostics",
			len(result.Expressions), len(result.Diagnostics))
	}
}

func TestParsePlan_EmptyArgumentList(t *testing.T) {
	result := ParsePlan("[FUNC add() = y1]", mathFunctions())
	if len(result.Expressions) != 1 {
		t.Fatalf("parse failed: %v", result.Diagnostics)
	}
	if got := len(result.Expressions[0].Args); got != 0 {
		t.Errorf("len(args) = %d, want 0", got)
	}
}

func TestParsePlan_EmptyArgumentToken(t *testing.T) {
	// A dangling or leading comma is a parse-time diagnostic, not a call
	// that reaches the tool with the wrong arity.
	for _, text := range []string{
		"Sum [FUNC add(3,) = y1] end",
		"Sum [FUNC add(, 3) = y1] end",
	} {
		result := ParsePlan(text, mathFunctions())
		if len(result.Expressions) != 0 {
			t.Errorf("%q: Expressions = %v, want none", text, result.Expressions)
		}
		if len(result.Diagnostics) != 1 {
			t.Fatalf("%q: Diagnostics = %v, want exactly 1", text, result.Diagnostics)
		}
		if got := result.Diagnostics[0].Reason; got != "empty argument" {
			t.Errorf("%q: reason = %q, want empty argument", text, got)
		}
	}
}

func TestLooksLikePlaceholder(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y1", true},
		{"y42", true},
		{"y", false},
		{"y1a", false},
		{"x1", false},
		{"yes", false},
	}
	for _, tt := range tests {
		if got := looksLikePlaceholder(tt.in); got != tt.want {
			t.Errorf("looksLikePlaceholder(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
