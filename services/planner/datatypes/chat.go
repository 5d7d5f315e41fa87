// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request and response types for the planner
// service HTTP API.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/dingen/services/planner/cleanup"
	"github.com/AleutianAI/dingen/services/planner/session"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single user
	// message. Checked as byte length, not rune count.
	MaxMessageContentBytes = 32 * 1024 // 32KB
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// plannerValidate is the validator instance for planner datatypes.
var plannerValidate *validator.Validate

func init() {
	plannerValidate = validator.New()
	_ = plannerValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks that a string field fits within
// MaxMessageContentBytes.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// =============================================================================
// Chat Request / Response Types
// =============================================================================

// ChatRequest is the body of POST /v1/sessions/:sessionId/messages.
//
// # Fields
//
//   - RequestID: Optional. Client-supplied UUID v4 for tracing; generated
//     server-side when absent.
//   - Timestamp: Optional. Unix milliseconds (UTC) when the request was
//     created; generated server-side when absent.
//   - Message: Required. The user's utterance, at most 32KB.
type ChatRequest struct {
	RequestID string `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp int64  `json:"timestamp" validate:"gte=0"`
	Message   string `json:"message" validate:"required,maxbytes"`
}

// Validate validates the ChatRequest fields. Call after binding the
// JSON body.
func (r *ChatRequest) Validate() error {
	return plannerValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when the client
// omitted them.
func (r *ChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// ChatResponse carries the assistant replies for one conversational
// turn. Replies preserve the remote creation order.
type ChatResponse struct {
	RequestID string   `json:"request_id"`
	SessionID string   `json:"session_id"`
	Replies   []string `json:"replies"`
	RunID     string   `json:"run_id,omitempty"`
}

// =============================================================================
// Session Types
// =============================================================================

// SessionResponse describes a session for creation and status requests.
type SessionResponse struct {
	Session session.Summary `json:"session"`
}

// HistoryResponse is the session's local message log in display order.
type HistoryResponse struct {
	SessionID string          `json:"session_id"`
	Messages  []session.Entry `json:"messages"`
}

// CleanupResponse reports the per-resource outcome of an explicit
// resource deletion.
type CleanupResponse struct {
	SessionID string         `json:"session_id"`
	Result    cleanup.Result `json:"result"`
	CleanedUp bool           `json:"cleaned_up"`
}
