// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/dingen/services/planner/cleanup"
	"github.com/AleutianAI/dingen/services/planner/handlers"
	"github.com/AleutianAI/dingen/services/planner/session"
)

func SetupRoutes(router *gin.Engine, chatDeps handlers.ChatDeps, store *session.Store,
	coordinator *cleanup.Coordinator, monitor *cleanup.Monitor) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSession(store))
			sessions.GET("/:sessionId", handlers.GetSession(store, monitor))
			sessions.GET("/:sessionId/history", handlers.GetHistory(store))
			sessions.POST("/:sessionId/messages", handlers.HandleChat(chatDeps))
			sessions.POST("/:sessionId/reset", handlers.ResetConversation(store))
			sessions.DELETE("/:sessionId/resources", handlers.DeleteResources(store, coordinator))
		}
	}
}
