// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pratapaadiii/mantis/services/mantis/handlers"
	"github.com/pratapaadiii/mantis/services/mantis/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the routes are bound to.
type Dependencies struct {
	Generator handlers.RoadmapGenerator
	Advisor   handlers.ChatReplier
	Metrics   *observability.Metrics

	// Gatherer backs /metrics. Nil skips the route.
	Gatherer prometheus.Gatherer

	WebSocket handlers.WebSocketConfig
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health", handlers.HealthCheck)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		api.POST("/roadmap", handlers.HandleGenerateRoadmap(deps.Generator, deps.Metrics))
		api.POST("/chat", handlers.HandleChat(deps.Advisor, deps.Metrics))
		api.GET("/chat/ws", handlers.HandleChatWebSocket(deps.Advisor, deps.Metrics, deps.WebSocket))
	}
}
