// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/dingen/services/planner/agent"
	"github.com/AleutianAI/dingen/services/planner/cleanup"
	"github.com/AleutianAI/dingen/services/planner/datatypes"
	"github.com/AleutianAI/dingen/services/planner/observability"
	"github.com/AleutianAI/dingen/services/planner/session"
)

func CreateSession(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := store.Create()
		observability.DefaultMetrics.SetActiveSessions(store.Len())
		slog.Info("Created session", "session_id", st.Key())
		c.JSON(http.StatusCreated, datatypes.SessionResponse{Session: st.Snapshot()})
	}
}

// GetSession reports session status. The lookup doubles as the
// pull-based inactivity check: an idle session's resources are released
// before the summary is taken.
func GetSession(store *session.Store, monitor *cleanup.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, ok := store.Get(c.Param("sessionId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
			return
		}
		monitor.CheckAndMaybeCleanup(c.Request.Context(), st)
		c.JSON(http.StatusOK, datatypes.SessionResponse{Session: st.Snapshot()})
	}
}

func GetHistory(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, ok := store.Get(c.Param("sessionId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
			return
		}
		c.JSON(http.StatusOK, datatypes.HistoryResponse{
			SessionID: st.Key(),
			Messages:  st.Log(),
		})
	}
}

// ResetConversation discards the thread, run, and local log while the
// provisioned resources stay alive for the next turn.
func ResetConversation(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, ok := store.Get(c.Param("sessionId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
			return
		}
		st.ResetConversation()
		slog.Info("Reset conversation", "session_id", st.Key())
		c.JSON(http.StatusOK, datatypes.SessionResponse{Session: st.Snapshot()})
	}
}

// DeleteResources is the terminal user action: release all remote
// resources and retire the session regardless of per-resource outcome.
func DeleteResources(store *session.Store, coordinator *cleanup.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, ok := store.Get(c.Param("sessionId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
			return
		}
		before := st.Resources()
		result := coordinator.CleanupAndMark(c.Request.Context(), st)
		recordCleanupMetrics(before, result)
		c.JSON(http.StatusOK, datatypes.CleanupResponse{
			SessionID: st.Key(),
			Result:    result,
			CleanedUp: st.CleanedUp(),
		})
	}
}

// recordCleanupMetrics counts only resources that existed before the
// cleanup ran; resources the session never held are not failures.
func recordCleanupMetrics(before agent.ProvisionedResources, result cleanup.Result) {
	m := observability.DefaultMetrics
	record := func(resource, id string, deleted bool) {
		if id == "" {
			return
		}
		status := "deleted"
		if !deleted {
			status = "failed"
		}
		m.RecordCleanup(resource, status)
	}
	record("agent", before.AgentID, result.AgentDeleted)
	record("vector_store", before.VectorStoreID, result.VectorStoreDeleted)
	record("file", before.FileID, result.FileDeleted)
}
