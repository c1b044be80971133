// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package profile

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all profile routes with the router.
//
// Endpoints:
//
//	POST   /v1/profile/analyze - Analyze an export document
//	GET    /v1/profile/reports/:id - Fetch a produced report
//	POST   /v1/profile/compare - Compare two reports
//	POST   /v1/profile/baselines - Store a report as a named baseline
//	GET    /v1/profile/baselines - List stored baselines
//	DELETE /v1/profile/baselines/:name - Delete a baseline
//	GET    /v1/profile/health - Health check
//	GET    /v1/profile/ready - Readiness check
//
// Example:
//
//	service := profile.NewService(profile.DefaultServiceConfig())
//	handlers := profile.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	profile.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	p := rg.Group("/profile")
	{
		p.POST("/analyze", handlers.HandleAnalyze)
		p.GET("/reports/:id", handlers.HandleReport)
		p.POST("/compare", handlers.HandleCompare)

		p.POST("/baselines", handlers.HandleBaselineSave)
		p.GET("/baselines", handlers.HandleBaselineList)
		p.DELETE("/baselines/:name", handlers.HandleBaselineDelete)

		p.GET("/health", handlers.HandleHealth)
		p.GET("/ready", handlers.HandleReady)
	}
}
