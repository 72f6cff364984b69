// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Planweave/services/plan"
	badgerstore "github.com/AleutianAI/Planweave/services/plan/storage/badger"
)

var showPlan bool

var solveCmd = &cobra.Command{
	Use:   "solve [question]",
	Short: "Run one question through the pipeline and print the answer",
	Args:  cobra.MinimumNArgs(1),
	Run:   runSolveCommand,
}

func init() {
	solveCmd.Flags().BoolVar(&showPlan, "show-plan", false, "Print the abstract and filled plans before the answer")
}

func runSolveCommand(cmd *cobra.Command, args []string) {
	setupLogging()
	question := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	completer, err := buildCompleter(cfg)
	if err != nil {
		log.Fatalf("Provider error: %v", err)
	}

	docs, err := loadDocuments(docsDir)
	if err != nil {
		log.Fatalf("Corpus error: %v", err)
	}

	// One-shot runs default to an in-memory store unless --storage points
	// at a persistent corpus seeded by a previous serve run.
	store, err := badgerstore.Open(cfg.StorageDir, slog.Default())
	if err != nil {
		log.Fatalf("Storage error: %v", err)
	}
	defer store.Close()

	service, err := plan.NewService(cfg, completer, completer, store, docs, slog.Default())
	if err != nil {
		log.Fatalf("Wiring error: %v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := service.Solve(ctx, question)
	if showPlan && report.PlanText != "" {
		fmt.Println("Abstract plan:")
		fmt.Println(report.PlanText)
		fmt.Println("---")
	}
	if showPlan && report.FilledPlan != "" {
		fmt.Println("Filled plan:")
		fmt.Println(report.FilledPlan)
		fmt.Println("---")
	}
	if err != nil {
		log.Fatalf("Solve failed: %v", err)
	}

	fmt.Println(report.Answer)
}
