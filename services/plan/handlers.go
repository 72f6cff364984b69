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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers holds the HTTP handlers for the plan endpoints.
//
// Thread Safety: safe for concurrent use.
type Handlers struct {
	service *Service
	logger  *slog.Logger
}

// NewHandlers creates the handlers backed by service.
func NewHandlers(service *Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, logger: logger}
}

// SolveRequest is the body of POST /v1/plan/solve.
type SolveRequest struct {
	Question string `json:"question" binding:"required"`
}

// ErrorResponse is the error body for all plan endpoints. Report is
// included when a run got far enough to produce diagnostics or partial
// results worth returning to the caller.
type ErrorResponse struct {
	Error  string     `json:"error"`
	Code   string     `json:"code"`
	Report *RunReport `json:"report,omitempty"`
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleSolve handles POST /v1/plan/solve.
//
// Description:
//
//	Runs the question through the full pipeline and returns the run
//	report. Failure classes map to distinct status codes: a plan the
//	model produced that cannot form a valid dependency graph is the
//	model's fault, not the caller's, so it maps to 502 alongside tool
//	and model-boundary failures rather than 400.
//
// Response:
//
//	200 OK: RunReport
//	400 Bad Request: missing or empty question
//	499 (client closed): request context canceled
//	502 Bad Gateway: model boundary, graph, or tool execution failure
//	500 Internal Server Error: rewrite failure (an engine bug)
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleSolve(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID))

	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "question is required",
			Code:  "MISSING_QUESTION",
		})
		return
	}

	report, err := h.service.Solve(c.Request.Context(), req.Question)
	if err != nil {
		status, code := classifySolveError(err)
		logger.Warn("solve failed",
			slog.String("run_id", report.RunID),
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code, Report: report})
		return
	}

	logger.Info("solve succeeded", slog.String("run_id", report.RunID))
	c.JSON(http.StatusOK, report)
}

// classifySolveError maps a pipeline error to an HTTP status and a
// stable machine-readable code.
func classifySolveError(err error) (int, string) {
	switch {
	case errors.Is(err, context.Canceled):
		// Nginx's non-standard "client closed request".
		return 499, "CANCELED"
	case errors.Is(err, ErrGraph):
		return http.StatusBadGateway, "PLAN_GRAPH_INVALID"
	case errors.Is(err, ErrExecution):
		return http.StatusBadGateway, "TOOL_EXECUTION_FAILED"
	case errors.Is(err, ErrRewrite):
		return http.StatusInternalServerError, "REWRITE_FAILED"
	default:
		return http.StatusBadGateway, "MODEL_BOUNDARY_FAILED"
	}
}

// HandleHealth handles GET /v1/plan/health: process liveness only.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/plan/ready: dependency readiness.
func (h *Handlers) HandleReady(c *gin.Context) {
	if !h.service.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
