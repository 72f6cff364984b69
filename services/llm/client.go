// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides single-shot completion clients for the model
// providers the plan service talks to. Both the planning pass and the
// refinement pass are one prompt in, one text out: no conversation
// state, no streaming, no native tool calling; tool execution happens
// in the plan engine, not at the model boundary.
package llm

import (
	"context"
	"fmt"
)

// Client produces one completion for one prompt.
//
// Thread Safety: implementations must be safe for concurrent use; the
// HTTP server calls Complete from many request goroutines.
type Client interface {
	// Complete sends the prompt and returns the model's text response.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options configures a provider client. Zero values fall back to the
// provider's defaults.
type Options struct {
	// Model overrides the provider's default model identifier.
	Model string

	// BaseURL overrides the provider endpoint. Used for tests and for
	// OpenAI-compatible servers such as Ollama or vLLM.
	BaseURL string

	// MaxTokens caps tokens per completion; 0 uses the client default.
	MaxTokens int
}

// New returns a Client for the named provider. Credentials are read
// from the environment (ANTHROPIC_API_KEY / OPENAI_API_KEY).
func New(provider string, opts Options) (Client, error) {
	switch provider {
	case "anthropic":
		return NewAnthropicClient(opts)
	case "openai":
		return NewOpenAIClient(opts)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}
}
