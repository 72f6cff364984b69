// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-key")
		}

		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Model != "gpt-test" {
			t.Errorf("model = %q, want %q", req.Model, "gpt-test")
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want single user message", req.Messages)
		}

		resp := openaiResponse{
			ID:     "cmpl-123",
			Object: "chat.completion",
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: "15 apples."}, FinishReason: "stop"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("test-key", Options{
		Model:   "gpt-test",
		BaseURL: server.URL,
	})

	got, err := client.Complete(context.Background(), "How many apples now?")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "15 apples." {
		t.Errorf("Complete() = %q, want %q", got, "15 apples.")
	}
}

func TestOpenAIClient_Complete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openaiResponse{ID: "cmpl-456", Object: "chat.completion"})
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("test-key", Options{BaseURL: server.URL})

	_, err := client.Complete(context.Background(), "hello")
	if err == nil {
		t.Fatal("Complete() error = nil, want non-nil")
	}
	if !strings.Contains(err.Error(), "no choices") {
		t.Errorf("error %q, want mention of no choices", err.Error())
	}
}

func TestNewOpenAIClient_LocalServerWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	client, err := NewOpenAIClient(Options{BaseURL: "http://localhost:11434/v1/chat/completions"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v, want nil for local base URL", err)
	}
	if client.apiKey != "" {
		t.Errorf("apiKey = %q, want empty", client.apiKey)
	}
}

func TestNewOpenAIClient_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewOpenAIClient(Options{})
	if err == nil {
		t.Fatal("NewOpenAIClient() error = nil, want missing-key error")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("error %q, want mention of OPENAI_API_KEY", err.Error())
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New("cohere", Options{})
	if err == nil {
		t.Fatal("New() error = nil, want unknown-provider error")
	}
	if !strings.Contains(err.Error(), "cohere") {
		t.Errorf("error %q, want provider name", err.Error())
	}
}
