// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agent provides the remote agent platform boundary and the
// session resource provisioner.
//
// The platform exposes ephemeral remote resources (uploaded files,
// vector stores, conversational agents) and the thread/run primitives
// used to drive a conversation. Everything above this package programs
// against the PlatformClient interface; the production implementation
// wraps the OpenAI Assistants API.
package agent

import (
	"context"
)

// =============================================================================
// Platform Types
// =============================================================================

// RunStatus is the lifecycle state of a run as reported by the platform.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
)

// Terminal reports whether the run has reached a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Run is one execution of an agent against a thread's pending input.
//
// PendingToolCalls is populated only while Status is
// RunStatusRequiresAction; FailureReason only when Status is
// RunStatusFailed.
type Run struct {
	ID               string
	Status           RunStatus
	FailureReason    string
	PendingToolCalls []ToolCall
}

// ToolCall is a tool invocation awaiting approval on a run.
type ToolCall struct {
	ID   string
	Name string
}

// ToolApproval answers one pending tool call.
type ToolApproval struct {
	ToolCallID string
	Approve    bool
}

// ThreadMessage is one message on a conversation thread.
//
// CreatedAt is the remote creation time in Unix seconds. The platform's
// native listing order is not guaranteed to match creation order, so
// consumers must sort on CreatedAt themselves.
type ThreadMessage struct {
	ID        string
	RunID     string
	Role      string
	Text      string
	CreatedAt int64
}

// AgentInfo describes an existing agent looked up by identifier. Used
// to attach a pre-existing connected agent (e.g. the email sender) as a
// tool capability.
type AgentInfo struct {
	ID          string
	Name        string
	Description string
}

// AgentConfig is the configuration for a newly created agent.
type AgentConfig struct {
	Model        string
	Name         string
	Description  string
	Instructions string

	// VectorStoreID binds the agent's file-search tool to the session's
	// vector store.
	VectorStoreID string

	// ConnectedAgent, when non-nil, is exposed to the new agent as an
	// auxiliary tool capability.
	ConnectedAgent *AgentInfo
}

// ProvisionedResources are the identifiers of one session's remote
// resource set. All three are valid and mutually consistent when
// provisioning succeeds.
type ProvisionedResources struct {
	AgentID       string
	VectorStoreID string
	FileID        string
}

// =============================================================================
// Platform Client Interface
// =============================================================================

// PlatformClient is the remote agent platform boundary.
//
// Each method maps to a single remote call and is independently
// failable. Implementations must be safe for concurrent use across
// sessions.
type PlatformClient interface {
	// UploadFile uploads dataset bytes and returns the file identifier.
	UploadFile(ctx context.Context, name string, content []byte) (string, error)

	// CreateVectorStore builds a similarity-search index over the given
	// uploaded files and returns its identifier.
	CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error)

	// CreateAgent creates a conversational agent and returns its
	// identifier.
	CreateAgent(ctx context.Context, cfg AgentConfig) (string, error)

	// GetAgent looks up an existing agent by identifier.
	GetAgent(ctx context.Context, agentID string) (AgentInfo, error)

	// CreateThread creates an empty conversation thread.
	CreateThread(ctx context.Context) (string, error)

	// PostMessage appends a message to a thread.
	PostMessage(ctx context.Context, threadID, role, text string) error

	// CreateRun starts a run of the agent against the thread.
	CreateRun(ctx context.Context, threadID, agentID string) (Run, error)

	// GetRun fetches the current state of a run, including any pending
	// tool calls when the run requires action.
	GetRun(ctx context.Context, threadID, runID string) (Run, error)

	// ListMessages returns all messages on a thread.
	ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error)

	// ApproveToolCalls submits approvals for pending tool calls so the
	// run can continue.
	ApproveToolCalls(ctx context.Context, threadID, runID string, approvals []ToolApproval) error

	// DeleteAgent deletes an agent.
	DeleteAgent(ctx context.Context, agentID string) error

	// DeleteVectorStore deletes a vector store.
	DeleteVectorStore(ctx context.Context, vectorStoreID string) error

	// DeleteFile deletes an uploaded file.
	DeleteFile(ctx context.Context, fileID string) error
}
