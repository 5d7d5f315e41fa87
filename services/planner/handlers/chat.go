// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/dingen/services/planner/agent"
	"github.com/AleutianAI/dingen/services/planner/cleanup"
	"github.com/AleutianAI/dingen/services/planner/conversation"
	"github.com/AleutianAI/dingen/services/planner/datatypes"
	"github.com/AleutianAI/dingen/services/planner/observability"
	"github.com/AleutianAI/dingen/services/planner/session"
	"github.com/AleutianAI/dingen/services/sheets"
)

// DatasetFunc supplies the normalized dataset provisioning uploads.
// Wired in main to the spreadsheet fetch with request coalescing.
type DatasetFunc func(ctx context.Context) (sheets.Dataset, error)

// ChatDeps bundles everything a conversational turn needs.
type ChatDeps struct {
	Store       *session.Store
	Provisioner *agent.Provisioner
	Driver      *conversation.Driver
	Coordinator *cleanup.Coordinator
	Dataset     DatasetFunc
}

// HandleChat serves POST /v1/sessions/:sessionId/messages.
//
// # Description
//
// Provisions the session's remote resources on first use, then drives
// one blocking conversational turn. A session retired by an explicit
// cleanup is refused with 410; a concurrent provisioning attempt or a
// concurrent turn on the same session with 409; a run that exceeds the
// wait budget with 504.
func HandleChat(deps ChatDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, ok := deps.Store.Get(c.Param("sessionId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
			return
		}

		var req datatypes.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		if err := ensureProvisioned(c.Request.Context(), deps, st); err != nil {
			switch {
			case errors.Is(err, session.ErrSessionCleaned):
				c.JSON(http.StatusGone, gin.H{"error": "session resources were cleaned up; start a new session"})
			case errors.Is(err, session.ErrProvisioningInProgress):
				c.JSON(http.StatusConflict, gin.H{"error": "session is provisioning; retry shortly"})
			default:
				c.JSON(http.StatusBadGateway, gin.H{"error": "session provisioning failed"})
			}
			return
		}

		start := time.Now()
		replies, err := deps.Driver.Send(c.Request.Context(), st, req.Message)
		wait := time.Since(start).Seconds()
		if err != nil {
			if errors.Is(err, session.ErrTurnInProgress) {
				observability.DefaultMetrics.RecordTurn("busy", wait)
				c.JSON(http.StatusConflict, gin.H{"error": "a turn is already in progress on this session; wait for it to finish"})
				return
			}
			if errors.Is(err, conversation.ErrRunTimedOut) {
				observability.DefaultMetrics.RecordTurn("timeout", wait)
				c.JSON(http.StatusGatewayTimeout, gin.H{"error": "the assistant is still working; try again shortly"})
				return
			}
			observability.DefaultMetrics.RecordTurn("send_failure", wait)
			slog.Error("Turn aborted", "session_id", st.Key(), "request_id", req.RequestID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
			return
		}
		observability.DefaultMetrics.RecordTurn("success", wait)

		c.JSON(http.StatusOK, datatypes.ChatResponse{
			RequestID: req.RequestID,
			SessionID: st.Key(),
			Replies:   replies,
			RunID:     st.RunID(),
		})
	}
}

// ensureProvisioned provisions the session's resources exactly once.
//
// Provisioning runs as a saga: every created sub-resource is recorded
// on the session immediately, and a failure at any later step releases
// exactly the sub-resources created so far before the error surfaces.
func ensureProvisioned(ctx context.Context, deps ChatDeps, st *session.State) error {
	claimed, err := st.BeginProvisioning()
	if err != nil {
		return err
	}
	if !claimed {
		return nil // Already provisioned.
	}
	defer st.EndProvisioning()

	// A failed rollback on an earlier attempt may have left sub-resource
	// identifiers recorded. Release them before provisioning anew so the
	// fresh identifiers never overwrite ones still live remotely.
	if leftover := st.Resources(); leftover.FileID != "" || leftover.VectorStoreID != "" {
		slog.Warn("Releasing sub-resources retained from an earlier failed attempt",
			"session_id", st.Key(), "file_id", leftover.FileID, "vector_store_id", leftover.VectorStoreID)
		deps.Coordinator.Cleanup(ctx, st)
	}

	dataset, err := deps.Dataset(ctx)
	if err != nil {
		observability.DefaultMetrics.RecordProvision("error")
		return err
	}

	slog.Info("Provisioning session resources", "session_id", st.Key(), "records", len(dataset))
	_, err = deps.Provisioner.Provision(ctx, dataset, st.RecordResource)
	if err != nil {
		observability.DefaultMetrics.RecordProvision("error")
		slog.Error("Provisioning failed, releasing partial resources", "session_id", st.Key(), "error", err)
		deps.Coordinator.Cleanup(ctx, st)
		return err
	}
	observability.DefaultMetrics.RecordProvision("success")
	return nil
}
