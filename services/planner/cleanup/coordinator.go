// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cleanup releases a session's remote resources and enforces
// the inactivity policy that triggers release automatically.
package cleanup

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/dingen/services/planner/agent"
	"github.com/AleutianAI/dingen/services/planner/session"
)

// =============================================================================
// Cleanup Coordinator
// =============================================================================

// Result summarizes one cleanup attempt. Each flag is true only when
// the corresponding resource existed and its remote deletion succeeded.
type Result struct {
	AgentDeleted       bool `json:"agent_deleted"`
	VectorStoreDeleted bool `json:"vector_store_deleted"`
	FileDeleted        bool `json:"file_deleted"`
}

// Any reports whether at least one resource was deleted.
func (r Result) Any() bool {
	return r.AgentDeleted || r.VectorStoreDeleted || r.FileDeleted
}

// Coordinator deletes a session's remote resources best-effort.
//
// # Description
//
// Attempts each deletion independently: a failure on one resource never
// prevents the attempts on the others. Identifiers are cleared from the
// session state only when their deletion succeeds, so a later cleanup
// retries exactly the resources that are still alive. Running cleanup
// on a session with nothing provisioned is a no-op.
//
// # Thread Safety
//
// Safe for concurrent use; all session mutation goes through the
// state's own locking.
type Coordinator struct {
	platform agent.PlatformClient
}

// NewCoordinator returns a Coordinator over the given platform.
func NewCoordinator(platform agent.PlatformClient) *Coordinator {
	return &Coordinator{platform: platform}
}

// Cleanup releases whichever of the session's resources currently
// exist.
//
// # Inputs
//   - ctx: cancellation control for the remote deletions.
//   - st: the session whose resources are released.
//
// # Outputs
//   - Result: per-resource outcome. Never an error; failures are logged
//     and reflected as false flags.
func (c *Coordinator) Cleanup(ctx context.Context, st *session.State) Result {
	var result Result
	res := st.Resources()

	if res.AgentID != "" {
		if err := c.platform.DeleteAgent(ctx, res.AgentID); err != nil {
			slog.Warn("Agent deletion failed", "session_id", st.Key(), "agent_id", res.AgentID, "error", err)
		} else {
			st.ClearResource(agent.ResourceAgent)
			result.AgentDeleted = true
		}
	}

	if res.VectorStoreID != "" {
		if err := c.platform.DeleteVectorStore(ctx, res.VectorStoreID); err != nil {
			slog.Warn("Vector store deletion failed", "session_id", st.Key(), "vector_store_id", res.VectorStoreID, "error", err)
		} else {
			st.ClearResource(agent.ResourceVectorStore)
			result.VectorStoreDeleted = true
		}
	}

	if res.FileID != "" {
		if err := c.platform.DeleteFile(ctx, res.FileID); err != nil {
			slog.Warn("File deletion failed", "session_id", st.Key(), "file_id", res.FileID, "error", err)
		} else {
			st.ClearResource(agent.ResourceFile)
			result.FileDeleted = true
		}
	}

	if result.Any() {
		slog.Info("Session resources released",
			"session_id", st.Key(),
			"agent_deleted", result.AgentDeleted,
			"vector_store_deleted", result.VectorStoreDeleted,
			"file_deleted", result.FileDeleted,
		)
	}
	return result
}

// CleanupAndMark runs Cleanup and then retires the session so it will
// never silently re-provision. Used for the terminal user action;
// inactivity-driven cleanup leaves the session re-provisionable.
func (c *Coordinator) CleanupAndMark(ctx context.Context, st *session.State) Result {
	result := c.Cleanup(ctx, st)
	st.MarkCleaned()
	return result
}
