// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command planweave runs the plan-and-execute pipeline, either as a
// one-shot CLI or as an API server.
//
// The pipeline asks a model for an abstract plan with symbolic tool
// calls, executes the calls concurrently in dependency order, fills the
// computed values back into the plan, and asks the model to refine the
// filled plan into a final answer.
//
// Usage:
//
//	planweave solve "Sally has 3 apples and buys 2 more. Bob triples that. How many does Bob have?"
//	planweave serve --config planweave.yaml
//
// With a local OpenAI-compatible server:
//
//	planweave solve --provider openai --base-url http://localhost:11434/v1/chat/completions "..."
//
// With a retrieval corpus (one tool per .txt file in the directory):
//
//	planweave serve --docs ./corpus --storage /var/lib/planweave
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8085/v1/plan/health
//
//	# Solve a question
//	curl -X POST http://localhost:8085/v1/plan/solve \
//	  -H "Content-Type: application/json" \
//	  -d '{"question": "What is 12 * 7 plus 5?"}'
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Planweave/services/llm"
	"github.com/AleutianAI/Planweave/services/plan"
	"github.com/AleutianAI/Planweave/services/plan/config"
)

// Shared flag values. Command-specific flags live in their command files.
var (
	configPath   string
	providerFlag string
	modelFlag    string
	baseURLFlag  string
	docsDir      string
	storageDir   string
	debugMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "planweave",
	Short: "Plan-and-execute reasoning over a tool registry",
	Long: "Planweave asks a model for an abstract plan with symbolic tool calls,\n" +
		"executes the calls concurrently in dependency order, and refines the\n" +
		"filled plan into a final answer.",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "Model provider: anthropic | openai")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Model identifier override")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Provider endpoint override")
	rootCmd.PersistentFlags().StringVar(&docsDir, "docs", "", "Directory of .txt documents to expose as retrieval tools")
	rootCmd.PersistentFlags().StringVar(&storageDir, "storage", "", "BadgerDB directory for the corpus (empty = in-memory)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the process-wide slog handler.
func setupLogging() {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig merges the config file with command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if baseURLFlag != "" {
		cfg.BaseURL = baseURLFlag
	}
	if storageDir != "" {
		cfg.StorageDir = storageDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildCompleter constructs the provider client both pipeline passes share.
func buildCompleter(cfg *config.Config) (llm.Client, error) {
	return llm.New(cfg.Provider, llm.Options{
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
	})
}

// loadDocuments reads every .txt file in dir as one retrieval document
// named after the file. An empty dir yields no retrieval tools.
func loadDocuments(dir string) ([]plan.Document, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading docs dir %q: %w", dir, err)
	}

	var docs []plan.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		text, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading document %q: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ".txt")
		docs = append(docs, plan.Document{
			Name:        name,
			Description: fmt.Sprintf("Search the %s document for passages matching a keyword query.", name),
			Text:        string(text),
		})
	}

	slog.Info("Loaded retrieval corpus", slog.String("dir", dir), slog.Int("documents", len(docs)))
	return docs, nil
}
