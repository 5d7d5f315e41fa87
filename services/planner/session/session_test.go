// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/dingen/services/planner/agent"
)

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore()
	s := store.Create()
	require.NotEmpty(t, s.Key())

	got, ok := store.Get(s.Key())
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = store.Get("missing")
	assert.False(t, ok)

	store.Remove(s.Key())
	assert.Equal(t, 0, store.Len())
}

func TestStoreCreateUniqueKeys(t *testing.T) {
	store := NewStore()
	a := store.Create()
	b := store.Create()
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, 2, store.Len())
}

func TestBeginProvisioningClaimIsExclusive(t *testing.T) {
	s := newState("s1")

	claimed, err := s.BeginProvisioning()
	require.NoError(t, err)
	assert.True(t, claimed)

	_, err = s.BeginProvisioning()
	assert.ErrorIs(t, err, ErrProvisioningInProgress)

	s.EndProvisioning()
	claimed, err = s.BeginProvisioning()
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestBeginProvisioningAlreadyProvisioned(t *testing.T) {
	s := newState("s1")
	s.RecordResource(agent.ResourceAgent, "agent-1")

	claimed, err := s.BeginProvisioning()
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestBeginProvisioningCleanedSessionRefuses(t *testing.T) {
	s := newState("s1")
	s.MarkCleaned()

	_, err := s.BeginProvisioning()
	assert.ErrorIs(t, err, ErrSessionCleaned)
}

func TestBeginProvisioningConcurrentSingleWinner(t *testing.T) {
	s := newState("s1")

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.BeginProvisioning()
			if err == nil && claimed {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestBeginTurnClaimIsExclusive(t *testing.T) {
	s := newState("s1")

	require.NoError(t, s.BeginTurn())
	assert.ErrorIs(t, s.BeginTurn(), ErrTurnInProgress)

	s.EndTurn()
	assert.NoError(t, s.BeginTurn())
}

func TestBeginTurnConcurrentSingleWinner(t *testing.T) {
	s := newState("s1")

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.BeginTurn() == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestRecordAndClearResources(t *testing.T) {
	s := newState("s1")
	s.RecordResource(agent.ResourceFile, "file-1")
	s.RecordResource(agent.ResourceVectorStore, "vs-1")
	s.RecordResource(agent.ResourceAgent, "agent-1")

	res := s.Resources()
	assert.Equal(t, "file-1", res.FileID)
	assert.Equal(t, "vs-1", res.VectorStoreID)
	assert.Equal(t, "agent-1", res.AgentID)
	assert.True(t, s.Provisioned())

	s.ClearResource(agent.ResourceVectorStore)
	res = s.Resources()
	assert.Empty(t, res.VectorStoreID)
	assert.Equal(t, "file-1", res.FileID)
	assert.Equal(t, "agent-1", res.AgentID)
}

func TestResetConversationKeepsResources(t *testing.T) {
	s := newState("s1")
	s.RecordResource(agent.ResourceAgent, "agent-1")
	s.SetThreadID("thread-1")
	s.SetRunID("run-1")
	s.Append(RoleUser, "hello")
	s.Append(RoleAssistant, "hi")

	s.ResetConversation()

	assert.Empty(t, s.ThreadID())
	assert.Empty(t, s.RunID())
	assert.Empty(t, s.Log())
	assert.True(t, s.Provisioned())
	assert.False(t, s.CleanedUp())
}

func TestMarkCleanedRetiresSession(t *testing.T) {
	s := newState("s1")
	s.RecordResource(agent.ResourceAgent, "agent-1")
	s.SetThreadID("thread-1")
	s.Append(RoleUser, "hello")

	s.MarkCleaned()

	assert.True(t, s.CleanedUp())
	assert.Empty(t, s.ThreadID())
	assert.Empty(t, s.Log())
}

func TestSnapshot(t *testing.T) {
	s := newState("s1")
	s.Append(RoleUser, "hello")
	before := time.Now()
	s.Touch(before)

	snap := s.Snapshot()
	assert.Equal(t, "s1", snap.SessionID)
	assert.False(t, snap.Provisioned)
	assert.False(t, snap.CleanedUp)
	assert.Equal(t, 1, snap.MessageCount)
	assert.Equal(t, before, snap.LastActivity)
}

func TestForEachAllowsStoreCallbacks(t *testing.T) {
	store := NewStore()
	store.Create()
	stale := store.Create()

	store.ForEach(func(s *State) {
		if s.Key() == stale.Key() {
			store.Remove(s.Key())
		}
	})
	assert.Equal(t, 1, store.Len())
}

func TestLogReturnsCopy(t *testing.T) {
	s := newState("s1")
	s.Append(RoleUser, "hello")

	log := s.Log()
	log[0].Text = "mutated"
	assert.Equal(t, "hello", s.Log()[0].Text)
}
