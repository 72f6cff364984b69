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

// parser.go extracts [FUNC name(args) = placeholder] markers from plan text
// with an explicit scanner rather than regex splitting, so nested parentheses
// and quoted literals tokenize correctly and a malformed marker is localized
// to one diagnostic instead of poisoning the whole parse.

import (
	"log/slog"
	"strconv"
	"strings"
)

// callMarker introduces a call expression in plan text. The trailing space
// is part of the wire syntax: "[FUNCTION" or a prose bracket like
// "[FUNCtional]" must not trigger the parser.
const callMarker = "[FUNC "

// diagnosticSnippetLimit bounds the snippet length stored on a diagnostic.
const diagnosticSnippetLimit = 120

// FunctionSet answers whether a function name is available to this run.
//
// *tools.Registry satisfies this; tests use FunctionNames.
type FunctionSet interface {
	Has(name string) bool
}

// FunctionNames is a FunctionSet over a fixed list of names.
type FunctionNames map[string]struct{}

// NewFunctionNames builds a FunctionSet from a list of names.
func NewFunctionNames(names ...string) FunctionNames {
	set := make(FunctionNames, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Has reports whether name is in the set.
func (f FunctionNames) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// ParsePlan scans plan text for call expressions.
//
// Description:
//
//	Walks the text once, extracting every well-formed
//	[FUNC name(arg, ...) = placeholder] marker whose function name is in
//	the supplied set. Malformed markers and markers naming unknown
//	functions become diagnostics; their text is preserved verbatim and the
//	rewriter later treats them as inert. A plan with zero markers parses to
//	an empty expression list; that is a valid outcome, not an error.
//
//	Reference classification is provisional here: an unquoted identifier
//	argument that exactly matches a placeholder defined by an earlier
//	expression is a reference. The graph builder finishes the job for
//	forward references (see BuildPlan).
//
// Inputs:
//
//	text - The raw plan text from the model.
//	functions - The set of valid function names for this run.
//
// Outputs:
//
//	ParseResult - Expressions in textual order plus diagnostics.
//
// Thread Safety: Safe for concurrent use; the parser holds no shared state.
func ParsePlan(text string, functions FunctionSet) ParseResult {
	var result ParseResult
	seen := make(map[string]struct{})

	pos := 0
	for {
		idx := strings.Index(text[pos:], callMarker)
		if idx < 0 {
			break
		}
		start := pos + idx

		expr, end, reason := parseCallAt(text, start, seen)
		if reason != "" {
			result.Diagnostics = append(result.Diagnostics, ParseDiagnostic{
				Span:    Span{Start: start, End: end},
				Reason:  reason,
				Snippet: truncateSnippet(text[start:end]),
			})
			// Resume just past the marker keyword so an inner marker inside
			// the malformed region can still be found.
			pos = start + len(callMarker)
			continue
		}

		if !functions.Has(expr.Function) {
			result.Diagnostics = append(result.Diagnostics, ParseDiagnostic{
				Span:    expr.Span,
				Reason:  "unknown function: " + expr.Function,
				Snippet: truncateSnippet(expr.Raw),
			})
			slog.Debug("skipping call to unknown function",
				slog.String("function", expr.Function),
				slog.String("placeholder", expr.Output),
			)
			pos = end
			continue
		}

		// The placeholder becomes visible to later arguments even if a
		// duplicate definition follows; the graph builder rejects duplicates.
		seen[expr.Output] = struct{}{}
		result.Expressions = append(result.Expressions, expr)
		pos = end
	}

	return result
}

// parseCallAt parses one marker starting at the '[' at offset start.
//
// Returns the expression and the offset one past its closing ']' on
// success (reason == ""). On failure, returns the best-effort end of the
// malformed region and a non-empty reason.
func parseCallAt(text string, start int, seen map[string]struct{}) (CallExpression, int, string) {
	fail := func(reason string) (CallExpression, int, string) {
		return CallExpression{}, malformedEnd(text, start), reason
	}

	i := start + len(callMarker)
	i = skipSpaces(text, i)

	name, i, ok := scanIdentifier(text, i)
	if !ok {
		return fail("missing function name")
	}

	i = skipSpaces(text, i)
	if i >= len(text) || text[i] != '(' {
		return fail("missing argument list")
	}

	rawArgs, i, ok := scanArgumentList(text, i)
	if !ok {
		return fail("unterminated argument list")
	}
	for _, raw := range rawArgs {
		if raw == "" {
			return fail("empty argument")
		}
	}

	i = skipSpaces(text, i)
	if i >= len(text) || text[i] != '=' {
		return fail("missing output placeholder")
	}
	i = skipSpaces(text, i+1)

	output, i, ok := scanIdentifier(text, i)
	if !ok {
		return fail("missing output placeholder")
	}

	i = skipSpaces(text, i)
	if i >= len(text) || text[i] != ']' {
		return fail("missing closing bracket")
	}
	end := i + 1

	args := make([]Argument, 0, len(rawArgs))
	for _, raw := range rawArgs {
		args = append(args, classifyToken(raw, seen))
	}

	return CallExpression{
		Function: name,
		Args:     args,
		Output:   output,
		Span:     Span{Start: start, End: end},
		Raw:      text[start:end],
	}, end, ""
}

// scanArgumentList consumes a parenthesized argument list starting at the
// '(' at offset i. Arguments split on top-level commas; commas inside
// nested parentheses or quoted strings do not split.
//
// Returns the trimmed raw tokens and the offset one past the closing ')'.
// An empty list "()" yields zero tokens; once a comma appears, an empty
// token is kept as "" so the caller can reject it (e.g. "add(3,)").
func scanArgumentList(text string, i int) ([]string, int, bool) {
	depth := 0
	var quote byte
	tokenStart := i + 1
	var tokens []string

	for ; i < len(text); i++ {
		c := text[i]

		if quote != 0 {
			if c == '\\' && i+1 < len(text) {
				i++ // skip escaped char inside quotes
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if tok := strings.TrimSpace(text[tokenStart:i]); tok != "" || len(tokens) > 0 {
					tokens = append(tokens, tok)
				}
				return tokens, i + 1, true
			}
		case ',':
			if depth == 1 {
				tokens = append(tokens, strings.TrimSpace(text[tokenStart:i]))
				tokenStart = i + 1
			}
		}
	}
	return nil, len(text), false
}

// classifyToken turns one raw argument token into an Argument.
//
// Classification rule (documented per the open question in DESIGN.md):
// a quoted token is always a string literal, so a question that happens to
// equal a placeholder name is passed by quoting it. An unquoted bare
// identifier matching an already-defined placeholder is a reference.
// Everything else is a literal coerced int → float → bool → string.
func classifyToken(raw string, seen map[string]struct{}) Argument {
	if len(raw) >= 2 {
		if q := raw[0]; (q == '"' || q == '\'') && raw[len(raw)-1] == q {
			return Argument{Raw: raw, Kind: ArgLiteral, Value: unquote(raw)}
		}
	}

	if isIdentifier(raw) {
		if _, ok := seen[raw]; ok {
			return Argument{Raw: raw, Kind: ArgReference, Ref: raw, BareIdent: true}
		}
		return Argument{Raw: raw, Kind: ArgLiteral, Value: coerceLiteral(raw), BareIdent: true}
	}

	return Argument{Raw: raw, Kind: ArgLiteral, Value: coerceLiteral(raw)}
}

// coerceLiteral converts a raw token to the simplest matching Go type.
func coerceLiteral(raw string) any {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	return raw
}

// unquote strips the surrounding quotes and unescapes \" \' and \\.
func unquote(raw string) string {
	q := raw[0]
	body := raw[1 : len(raw)-1]
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			next := body[i+1]
			if next == '\\' || next == q {
				b.WriteByte(next)
				i++
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// isIdentifier reports whether s matches the bare identifier grammar
// [A-Za-z_][A-Za-z0-9_]*.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// looksLikePlaceholder reports whether s matches the placeholder shape the
// prompting protocol assigns (y1, y2, ...). Used by the graph builder to
// distinguish an unknown reference from an ordinary string literal.
func looksLikePlaceholder(s string) bool {
	if len(s) < 2 || s[0] != 'y' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// scanIdentifier consumes an identifier starting at offset i.
func scanIdentifier(text string, i int) (string, int, bool) {
	start := i
	for i < len(text) {
		c := text[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || (i > start && c >= '0' && c <= '9') {
			i++
			continue
		}
		break
	}
	if i == start {
		return "", i, false
	}
	return text[start:i], i, true
}

// skipSpaces advances past spaces and tabs.
func skipSpaces(text string, i int) int {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	return i
}

// malformedEnd picks the end of a malformed marker region: the next ']'
// if one appears on the same scan, else the end of the marker keyword.
func malformedEnd(text string, start int) int {
	if j := strings.IndexByte(text[start:], ']'); j >= 0 {
		return start + j + 1
	}
	return min(start+len(callMarker), len(text))
}

// truncateSnippet bounds diagnostic snippets for log hygiene.
func truncateSnippet(s string) string {
	if len(s) <= diagnosticSnippetLimit {
		return s
	}
	return s[:diagnosticSnippetLimit-3] + "..."
}
