// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session holds per-session state and the keyed store that owns
// it. A session tracks the remote resource identifiers it has
// provisioned, its conversation thread, a local message log, and the
// activity timestamp the inactivity monitor sweeps on.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/AleutianAI/dingen/services/planner/agent"
)

// ErrProvisioningInProgress is returned when a second caller tries to
// provision a session that another caller is already provisioning.
var ErrProvisioningInProgress = errors.New("session provisioning already in progress")

// ErrSessionCleaned is returned when a conversational operation is
// attempted on a session whose resources were released by an explicit
// cleanup. Such a session never re-provisions silently.
var ErrSessionCleaned = errors.New("session resources have been cleaned up")

// ErrTurnInProgress is returned when a conversational turn is attempted
// while another turn on the same session is still in flight. Sessions
// take turns sequentially: at most one run at a time.
var ErrTurnInProgress = errors.New("a conversational turn is already in flight")

// Role labels a message log entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one message in a session's local log.
type Entry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// State is the mutable state of one session. All access goes through
// methods; the mutex covers every field.
//
// Remote resource identifiers are recorded the moment the platform
// confirms creation, before any dependent step runs, so cleanup always
// sees exactly the resources that exist.
type State struct {
	mu sync.Mutex

	key string

	agentID       string
	vectorStoreID string
	fileID        string

	threadID string
	runID    string

	log          []Entry
	lastActivity time.Time
	cleanedUp    bool
	provisioning bool
	turnActive   bool
}

// newState is only constructed by the Store so every State has a key.
func newState(key string) *State {
	return &State{key: key, lastActivity: time.Now()}
}

// Key returns the session identifier.
func (s *State) Key() string { return s.key }

// Touch records activity at the given instant.
func (s *State) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = now
}

// LastActivity returns the most recent activity instant.
func (s *State) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Provisioned reports whether a live agent is recorded for the session.
func (s *State) Provisioned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentID != ""
}

// CleanedUp reports whether an explicit cleanup has retired the session.
func (s *State) CleanedUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanedUp
}

// BeginProvisioning claims the exclusive right to provision the
// session. It fails with ErrSessionCleaned on a retired session, with
// ErrProvisioningInProgress when another caller holds the claim, and
// returns (false, nil) when the session is already provisioned.
func (s *State) BeginProvisioning() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleanedUp {
		return false, ErrSessionCleaned
	}
	if s.agentID != "" {
		return false, nil
	}
	if s.provisioning {
		return false, ErrProvisioningInProgress
	}
	s.provisioning = true
	return true, nil
}

// EndProvisioning releases the claim taken by BeginProvisioning.
func (s *State) EndProvisioning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provisioning = false
}

// BeginTurn claims the session's single turn slot. It fails with
// ErrTurnInProgress while another turn holds the slot, which keeps runs
// on one session strictly sequential: one thread, one run in flight.
func (s *State) BeginTurn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turnActive {
		return ErrTurnInProgress
	}
	s.turnActive = true
	return nil
}

// EndTurn releases the slot taken by BeginTurn.
func (s *State) EndTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnActive = false
}

// RecordResource stores a freshly created sub-resource identifier.
func (s *State) RecordResource(kind agent.Resource, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case agent.ResourceFile:
		s.fileID = id
	case agent.ResourceVectorStore:
		s.vectorStoreID = id
	case agent.ResourceAgent:
		s.agentID = id
	}
}

// ClearResource forgets a sub-resource identifier after its remote
// deletion succeeded. Identifiers whose deletion failed stay recorded
// for the next cleanup attempt.
func (s *State) ClearResource(kind agent.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case agent.ResourceFile:
		s.fileID = ""
	case agent.ResourceVectorStore:
		s.vectorStoreID = ""
	case agent.ResourceAgent:
		s.agentID = ""
	}
}

// Resources returns the currently recorded sub-resource identifiers.
func (s *State) Resources() agent.ProvisionedResources {
	s.mu.Lock()
	defer s.mu.Unlock()
	return agent.ProvisionedResources{
		AgentID:       s.agentID,
		VectorStoreID: s.vectorStoreID,
		FileID:        s.fileID,
	}
}

// AgentID returns the recorded agent identifier, empty if none.
func (s *State) AgentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentID
}

// ThreadID returns the conversation thread identifier, empty before the
// first turn.
func (s *State) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// SetThreadID records the lazily created conversation thread.
func (s *State) SetThreadID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = id
}

// SetRunID records the most recent run.
func (s *State) SetRunID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = id
}

// RunID returns the most recent run identifier, empty if none.
func (s *State) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Append adds an entry to the local message log.
func (s *State) Append(role Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, Entry{Role: role, Text: text})
}

// Log returns a copy of the local message log.
func (s *State) Log() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.log))
	copy(out, s.log)
	return out
}

// ResetConversation discards the thread, run, and local log while
// keeping the provisioned resources intact. The next turn starts a
// fresh thread against the same agent.
func (s *State) ResetConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = ""
	s.runID = ""
	s.log = nil
	s.lastActivity = time.Now()
}

// MarkCleaned retires the session after an explicit cleanup. The
// conversation state is discarded alongside the resource identifiers
// already cleared by the cleanup itself.
func (s *State) MarkCleaned() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanedUp = true
	s.threadID = ""
	s.runID = ""
	s.log = nil
}

// Summary is a point-in-time snapshot of a session for API responses.
type Summary struct {
	SessionID    string    `json:"session_id"`
	Provisioned  bool      `json:"provisioned"`
	CleanedUp    bool      `json:"cleaned_up"`
	MessageCount int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}

// Snapshot returns a consistent summary of the session.
func (s *State) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		SessionID:    s.key,
		Provisioned:  s.agentID != "",
		CleanedUp:    s.cleanedUp,
		MessageCount: len(s.log),
		LastActivity: s.lastActivity,
	}
}
