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
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg, err := NewRegistry(NewAdd(), NewMultiply())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if !reg.Has("add") || !reg.Has("multiply") {
		t.Error("registered tools not found via Has")
	}
	if reg.Has("divide") {
		t.Error("Has() reports an unregistered tool")
	}

	tool, ok := reg.Get("add")
	if !ok || tool.Definition().Name != "add" {
		t.Errorf("Get(add) = %v, %v", tool, ok)
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	_, err := NewRegistry(NewAdd(), NewAdd())
	if err == nil {
		t.Fatal("NewRegistry() error = nil, want duplicate error")
	}
	if !strings.Contains(err.Error(), "add") {
		t.Errorf("error %q does not name the duplicate", err.Error())
	}
}

func TestRegistry_DefinitionsPreserveOrder(t *testing.T) {
	reg, err := NewRegistry(NewDivide(), NewAdd(), NewSubtract())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	var names []string
	for _, d := range reg.Definitions() {
		names = append(names, d.Name)
	}
	if want := []string{"divide", "add", "subtract"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Definitions order = %v, want registration order %v", names, want)
	}
	if !reflect.DeepEqual(reg.Names(), []string{"divide", "add", "subtract"}) {
		t.Errorf("Names() = %v, want registration order", reg.Names())
	}
}

func TestDefinition_Signature(t *testing.T) {
	def := Definition{
		Name:    "add",
		Params:  []Param{{Name: "a", Type: "number"}, {Name: "b", Type: "number"}},
		Returns: "number",
	}
	want := "add(a: number, b: number) -> number"
	if got := def.Signature(); got != want {
		t.Errorf("Signature() = %q, want %q", got, want)
	}
}

// slowTool blocks until its context is done.
type slowTool struct{}

func (slowTool) Definition() Definition {
	return Definition{Name: "slow", Returns: "string"}
}

func (slowTool) Invoke(ctx context.Context, _ []any) (any, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeout_EnforcesDeadline(t *testing.T) {
	tool := WithTimeout(slowTool{}, 10*time.Millisecond)

	start := time.Now()
	_, err := tool.Invoke(context.Background(), nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Invoke() error = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Invoke() took %v, deadline not enforced", elapsed)
	}
	// The decorator must not change the visible definition.
	if got := tool.Definition().Name; got != "slow" {
		t.Errorf("Definition().Name = %q, want slow", got)
	}
}
