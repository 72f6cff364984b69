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

// Span is a half-open byte range [Start, End) into the original plan text.
//
// Spans are captured by the parser and consumed by the rewriter; they are
// only valid against the exact text the parser was given.
type Span struct {
	// Start is the byte offset of the opening '[' of the expression.
	Start int

	// End is the byte offset one past the closing ']' of the expression.
	End int
}

// ArgKind classifies a parsed argument token.
type ArgKind int

const (
	// ArgLiteral is a self-contained value (string, int, float, bool).
	ArgLiteral ArgKind = iota

	// ArgReference names the output placeholder of another call expression.
	ArgReference
)

// Argument is one tokenized argument of a call expression.
//
// Description:
//
//	The parser performs provisional classification: a bare identifier that
//	exactly matches a placeholder already defined earlier in the plan is a
//	reference; everything else is a literal coerced to the simplest matching
//	type. The graph builder upgrades bare identifiers that match a
//	placeholder defined anywhere in the plan (forward references participate
//	in cycle detection) and rejects identifiers that look like placeholders
//	but have no defining expression.
//
// Thread Safety: Argument is immutable after parsing; safe for concurrent
// read access.
type Argument struct {
	// Raw is the exact token text as it appeared in the plan, quotes included.
	Raw string

	// Kind distinguishes literals from placeholder references.
	Kind ArgKind

	// Value is the coerced literal value (string, int64, float64, or bool).
	// Nil for references.
	Value any

	// Ref is the referenced placeholder name. Empty for literals.
	Ref string

	// BareIdent marks unquoted tokens that match the identifier grammar.
	// Only these tokens are eligible for reference classification.
	BareIdent bool
}

// CallExpression is one symbolic function invocation found in plan text.
//
// Description:
//
//	Corresponds to one [FUNC name(args) = placeholder] marker. The output
//	placeholder binds the call's eventual result; arguments may reference
//	placeholders of other expressions. The source span locates the marker
//	for later substitution by the rewriter.
//
// Thread Safety: CallExpression is immutable after parsing; safe for
// concurrent read access.
type CallExpression struct {
	// Function is the tool name the call targets. Always present in the
	// valid tool set: expressions naming unknown functions are demoted to
	// parse diagnostics and never reach this type's consumers.
	Function string

	// Args holds the tokenized arguments in call order.
	Args []Argument

	// Output is the placeholder the result is bound to (e.g. "y1").
	// Placeholder names are opaque identifiers; the numeric suffix carries
	// no ordering meaning.
	Output string

	// Span locates the full marker in the original plan text.
	Span Span

	// Raw is the full marker text, used for diagnostics.
	Raw string
}

// ParseDiagnostic reports one malformed or unrecognized expression.
//
// Diagnostics are non-fatal: the offending text is left verbatim in the
// plan and treated as inert by the rewriter.
type ParseDiagnostic struct {
	// Span locates the offending text.
	Span Span

	// Reason is a short machine-stable description, e.g. "unknown function".
	Reason string

	// Snippet is the offending text, truncated for logging.
	Snippet string
}

// ParseResult is the parser's output for one plan text.
type ParseResult struct {
	// Expressions are the recognized call expressions in textual order.
	Expressions []CallExpression

	// Diagnostics describe expressions that were skipped as inert text.
	Diagnostics []ParseDiagnostic
}
