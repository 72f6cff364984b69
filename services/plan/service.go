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
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/Planweave/services/plan/config"
	badgerstore "github.com/AleutianAI/Planweave/services/plan/storage/badger"
	"github.com/AleutianAI/Planweave/services/plan/tools"
)

// Document is one retrieval corpus entry: a named text a retrieval tool
// answers keyword queries against.
type Document struct {
	// Name becomes both the storage key and the tool name the planner
	// sees, so it must be a valid call-expression identifier.
	Name string

	// Description is shown to the planner in the tool signature list.
	Description string

	// Text is the document body. Empty means the document was seeded in
	// a previous run and only the tool registration is needed.
	Text string
}

// Service owns one fully wired solve pipeline: tool registry, execution
// engine, shell, and the backing corpus store.
//
// Thread Safety: safe for concurrent use after New returns.
type Service struct {
	cfg    *config.Config
	shell  *Shell
	store  *badgerstore.DB
	logger *slog.Logger
}

// NewService wires the solve pipeline from configuration.
//
// Description:
//
//	Builds the builtin math tools plus one retrieval tool per document,
//	seeds any document bodies into the store, and assembles the engine
//	and shell. The planner and refiner are both Completers so tests can
//	inject fakes and production can pass llm clients directly.
//
// Inputs:
//   - cfg: Validated run configuration.
//   - planner: Model boundary that produces the abstract plan.
//   - refiner: Model boundary that produces the final answer.
//   - store: Open corpus store. The Service does not close it.
//   - docs: Retrieval documents to register (and seed, when Text is set).
//
// Outputs:
//   - *Service: The wired service.
//   - error: Non-nil on registry conflicts or seeding failures.
func NewService(cfg *config.Config, planner, refiner Completer, store *badgerstore.DB, docs []Document, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	seed := make(map[string]string)
	for _, d := range docs {
		if d.Text != "" {
			seed[d.Name] = d.Text
		}
	}
	if len(seed) > 0 {
		if err := tools.SeedDocuments(store, seed); err != nil {
			return nil, fmt.Errorf("plan: seeding corpus: %w", err)
		}
	}

	registered := []tools.Tool{
		tools.NewAdd(),
		tools.NewSubtract(),
		tools.NewMultiply(),
		tools.NewDivide(),
	}
	for _, d := range docs {
		registered = append(registered, tools.NewRetrievalTool(store, d.Name, d.Description))
	}
	if timeout := cfg.ToolTimeout(); timeout > 0 {
		for i, t := range registered {
			registered[i] = tools.WithTimeout(t, timeout)
		}
	}

	registry, err := tools.NewRegistry(registered...)
	if err != nil {
		return nil, fmt.Errorf("plan: building registry: %w", err)
	}

	engine := NewEngine(registry,
		WithMaxWorkers(cfg.MaxWorkers),
		WithEngineLogger(logger),
	)
	shell := NewShell(planner, refiner, registry, engine, WithShellLogger(logger))

	logger.Info("plan service wired",
		slog.Int("tools", len(registered)),
		slog.Int("documents", len(docs)),
		slog.Int("max_workers", cfg.MaxWorkers),
	)

	return &Service{cfg: cfg, shell: shell, store: store, logger: logger}, nil
}

// Solve runs one question through the pipeline.
func (s *Service) Solve(ctx context.Context, question string) (*RunReport, error) {
	return s.shell.Solve(ctx, question)
}

// Ready reports whether the service can take traffic. The corpus store
// is the only stateful dependency worth probing; model boundaries are
// checked per-request.
func (s *Service) Ready() bool {
	_, err := s.store.Get([]byte("ready/probe"))
	return err == nil
}
