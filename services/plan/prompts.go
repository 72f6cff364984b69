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

	"github.com/AleutianAI/Planweave/services/plan/tools"
)

// BuildPlanPrompt renders the planning prompt: the available function
// signatures plus the instructions for the bracketed call syntax.
//
// Description:
//
//	The model is asked to reason freely and embed symbolic calls of the
//	form [FUNC name(arg1, arg2) = y1] wherever a computation is needed,
//	binding each result to a fresh placeholder. Arguments may be literals
//	or earlier placeholders; string arguments are quoted so a string that
//	happens to look like a placeholder stays a literal.
//
// Thread Safety: Safe for concurrent use.
func BuildPlanPrompt(question string, defs []tools.Definition) string {
	var b strings.Builder

	b.WriteString("You have the following functions available:\n\n")
	for _, d := range defs {
		b.WriteString("  ")
		b.WriteString(d.Signature())
		if d.Description != "" {
			b.WriteString("  # ")
			b.WriteString(d.Description)
		}
		b.WriteByte('\n')
	}

	b.WriteString(`
Write out your reasoning for the question below. Whenever a step needs a
computation or lookup, do NOT compute it yourself. Instead embed a call:

  [FUNC function_name(arg1, arg2) = y1]

Rules:
- Bind every call's result to a fresh placeholder: y1, y2, y3, ...
- Never define the same placeholder twice.
- An argument may be a literal (quote strings: "like this") or a
  placeholder defined by an earlier call.
- Calls must not form a cycle.
- If no function is needed, answer in plain text with no markers.

Question: `)
	b.WriteString(question)
	b.WriteByte('\n')

	return b.String()
}

// BuildRefinePrompt renders the refinement prompt from the original
// question and the filled plan. Exactly these two cross the boundary; no
// other run state does.
func BuildRefinePrompt(question, filledPlan string) string {
	var b strings.Builder

	b.WriteString("A reasoning trace for the question below has been ")
	b.WriteString("completed with all computed values filled in.\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nCompleted reasoning:\n")
	b.WriteString(filledPlan)
	b.WriteString("\n\nUsing the completed reasoning, give the final answer ")
	b.WriteString("to the question. Answer directly and concisely.\n")

	return b.String()
}
