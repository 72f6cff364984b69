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
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/AleutianAI/Planweave/services/plan"
	badgerstore "github.com/AleutianAI/Planweave/services/plan/storage/badger"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the plan API server",
	Run:   runServeCommand,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
}

func runServeCommand(_ *cobra.Command, _ []string) {
	setupLogging()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	if debugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so trace context flows from incoming
	// headers through the handlers to tool spans.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	completer, err := buildCompleter(cfg)
	if err != nil {
		log.Fatalf("Provider error: %v", err)
	}

	docs, err := loadDocuments(docsDir)
	if err != nil {
		log.Fatalf("Corpus error: %v", err)
	}

	store, err := badgerstore.Open(cfg.StorageDir, slog.Default())
	if err != nil {
		log.Fatalf("Storage error: %v", err)
	}

	service, err := plan.NewService(cfg, completer, completer, store, docs, slog.Default())
	if err != nil {
		log.Fatalf("Wiring error: %v", err)
	}
	handlers := plan.NewHandlers(service, slog.Default())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("planweave"))
	if debugMode {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	plan.RegisterRoutes(v1, handlers)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Graceful shutdown: close the corpus store before exiting so Badger
	// flushes its value log.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("Shutting down planweave server")
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close corpus store", slog.String("error", err.Error()))
		}
		os.Exit(0)
	}()

	slog.Info("Starting planweave server",
		slog.String("address", cfg.ListenAddr),
		slog.String("provider", cfg.Provider),
	)
	if err := router.Run(cfg.ListenAddr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
