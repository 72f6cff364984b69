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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Fill substitutes every recognized call expression with its computed
// result, producing the filled plan.
//
// Description:
//
//	A single left-to-right pass over the original text: spans were
//	captured before any rewriting, so offsets stay valid without
//	cumulative reparsing. Text outside recognized spans, including inert
//	expressions the parser flagged, passes through unchanged. A plan with
//	zero expressions fills to itself, and refilling already-filled text is
//	a no-op for the same reason.
//
//	Substituting a node that is not Done is a *RewriteError: it means the
//	graph and the text disagree, and emitting a placeholder or stale text
//	instead would silently corrupt the refinement input.
//
// Inputs:
//
//	p - The executed plan (text, expressions with spans, node results).
//
// Outputs:
//
//	string - The filled plan text. Empty on error.
//	error - *RewriteError if any expression's node is not Done.
//
// Thread Safety: read-only over the plan; safe once execution finished.
func Fill(p *ExecutionPlan) (string, error) {
	if len(p.Exprs) == 0 {
		return p.Text, nil
	}

	var b strings.Builder
	b.Grow(len(p.Text))
	cursor := 0

	for _, expr := range p.Exprs {
		node := p.Nodes[expr.Output]
		if node == nil {
			return "", &RewriteError{Placeholder: expr.Output, Status: StatusPending}
		}
		if node.Status != StatusDone {
			return "", &RewriteError{Placeholder: expr.Output, Status: node.Status}
		}
		b.WriteString(p.Text[cursor:expr.Span.Start])
		b.WriteString(renderValue(node.Result))
		cursor = expr.Span.End
	}
	b.WriteString(p.Text[cursor:])

	return b.String(), nil
}

// renderValue renders a tool result as inline prose text.
//
// Scalars render in their natural form (floats in shortest round-trip
// notation, never Go struct syntax); anything non-scalar falls back to
// JSON so structured results stay readable in the filled plan.
func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}
