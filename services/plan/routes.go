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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the plan routes with the router.
//
// Description:
//
//	Registers all /v1/plan/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/plan/solve - Run a question through the solve pipeline
//	GET  /v1/plan/health - Health check
//	GET  /v1/plan/ready - Readiness check
//
// Example:
//
//	service, _ := plan.NewService(cfg, planner, refiner, store, docs, logger)
//	handlers := plan.NewHandlers(service, logger)
//
//	v1 := router.Group("/v1")
//	plan.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	plan := rg.Group("/plan")
	{
		plan.POST("/solve", handlers.HandleSolve)

		plan.GET("/health", handlers.HandleHealth)
		plan.GET("/ready", handlers.HandleReady)
	}
}
