// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/dingen/services/planner/agent"
	"github.com/AleutianAI/dingen/services/planner/agent/agenttest"
	"github.com/AleutianAI/dingen/services/planner/session"
)

func fastConfig() Config {
	return Config{PollInterval: time.Millisecond, RunTimeout: 250 * time.Millisecond}
}

func provisionedSession(t *testing.T) *session.State {
	t.Helper()
	st := session.NewStore().Create()
	st.RecordResource(agent.ResourceAgent, "agent-1")
	return st
}

func TestSendCompletedRunReturnsRepliesInOrder(t *testing.T) {
	platform := agenttest.New()
	platform.RunStates = []agent.Run{
		{Status: agent.RunStatusQueued},
		{Status: agent.RunStatusInProgress},
		{Status: agent.RunStatusCompleted},
	}
	st := provisionedSession(t)
	d := NewDriver(platform, fastConfig())

	// Reply listing order is scrambled on purpose; runID "run-1" comes
	// from the fake's first CreateRun.
	platform.Messages = []agent.ThreadMessage{
		{ID: "m3", RunID: "run-1", Role: "assistant", Text: "second part", CreatedAt: 20},
		{ID: "m1", RunID: "", Role: "user", Text: "plan my week", CreatedAt: 5},
		{ID: "m2", RunID: "run-1", Role: "assistant", Text: "first part", CreatedAt: 10},
		{ID: "m0", RunID: "run-0", Role: "assistant", Text: "stale turn", CreatedAt: 1},
	}

	replies, err := d.Send(context.Background(), st, "plan my week")
	require.NoError(t, err)
	assert.Equal(t, []string{"first part", "second part"}, replies)

	log := st.Log()
	require.Len(t, log, 3)
	assert.Equal(t, session.RoleUser, log[0].Role)
	assert.Equal(t, session.RoleAssistant, log[1].Role)
	assert.Equal(t, "first part", log[1].Text)
	assert.Equal(t, "second part", log[2].Text)
	assert.Equal(t, "run-1", st.RunID())
}

// gatedPlatform blocks CreateThread until released so a test can hold
// one turn mid-flight while issuing another.
type gatedPlatform struct {
	*agenttest.FakePlatform
	entered chan struct{}
	release chan struct{}
}

func (g *gatedPlatform) CreateThread(ctx context.Context) (string, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.FakePlatform.CreateThread(ctx)
}

func TestSendRefusesConcurrentTurnOnSameSession(t *testing.T) {
	inner := agenttest.New()
	platform := &gatedPlatform{
		FakePlatform: inner,
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	st := provisionedSession(t)
	d := NewDriver(platform, fastConfig())

	done := make(chan error, 1)
	go func() {
		_, err := d.Send(context.Background(), st, "first")
		done <- err
	}()
	<-platform.entered // first turn is now inside thread creation

	_, err := d.Send(context.Background(), st, "second")
	assert.ErrorIs(t, err, session.ErrTurnInProgress)

	close(platform.release)
	require.NoError(t, <-done)

	// The refused turn created nothing: one thread, one run, and only
	// the first utterance in the log.
	assert.Equal(t, 1, inner.CallCount("CreateThread"))
	assert.Equal(t, 1, inner.CallCount("CreateRun"))
	log := st.Log()
	require.Len(t, log, 1)
	assert.Equal(t, "first", log[0].Text)

	// The slot frees up once the turn finishes.
	_, err = d.Send(context.Background(), st, "third")
	require.NoError(t, err)
}

func TestSendCreatesThreadOnceAndReuses(t *testing.T) {
	platform := agenttest.New()
	st := provisionedSession(t)
	d := NewDriver(platform, fastConfig())

	_, err := d.Send(context.Background(), st, "first")
	require.NoError(t, err)
	first := st.ThreadID()
	require.NotEmpty(t, first)

	_, err = d.Send(context.Background(), st, "second")
	require.NoError(t, err)
	assert.Equal(t, first, st.ThreadID())
	assert.Equal(t, 1, platform.CallCount("CreateThread"))
	assert.Equal(t, 2, platform.CallCount("CreateRun"))
}

func TestSendApprovesPendingToolCalls(t *testing.T) {
	platform := agenttest.New()
	platform.RunStates = []agent.Run{
		{Status: agent.RunStatusRequiresAction, PendingToolCalls: []agent.ToolCall{
			{ID: "call-1", Name: "send_email"},
			{ID: "call-2", Name: "send_email"},
		}},
		{Status: agent.RunStatusCompleted},
	}
	st := provisionedSession(t)
	d := NewDriver(platform, fastConfig())

	_, err := d.Send(context.Background(), st, "email me the plan")
	require.NoError(t, err)

	require.Len(t, platform.Approvals, 1)
	require.Len(t, platform.Approvals[0], 2)
	assert.Equal(t, "call-1", platform.Approvals[0][0].ToolCallID)
	assert.True(t, platform.Approvals[0][0].Approve)
	assert.True(t, platform.Approvals[0][1].Approve)
}

func TestSendFailedRunBecomesAssistantErrorEntry(t *testing.T) {
	platform := agenttest.New()
	platform.RunStates = []agent.Run{
		{Status: agent.RunStatusFailed, FailureReason: "rate_limit_exceeded: slow down"},
	}
	st := provisionedSession(t)
	d := NewDriver(platform, fastConfig())

	replies, err := d.Send(context.Background(), st, "plan my week")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "rate_limit_exceeded")

	log := st.Log()
	require.Len(t, log, 2)
	assert.Equal(t, session.RoleAssistant, log[1].Role)
}

func TestSendPostFailureKeepsSessionUsable(t *testing.T) {
	platform := agenttest.New().FailOn("PostMessage", errors.New("connection reset"))
	st := provisionedSession(t)
	d := NewDriver(platform, fastConfig())

	replies, err := d.Send(context.Background(), st, "plan my week")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "connection reset")

	// A later turn succeeds once the platform recovers.
	delete(platform.Errs, "PostMessage")
	_, err = d.Send(context.Background(), st, "try again")
	require.NoError(t, err)
}

func TestSendTimesOutWithDistinctError(t *testing.T) {
	platform := agenttest.New()
	platform.RunStates = []agent.Run{{Status: agent.RunStatusInProgress}}
	st := provisionedSession(t)
	d := NewDriver(platform, Config{PollInterval: time.Millisecond, RunTimeout: 15 * time.Millisecond})

	_, err := d.Send(context.Background(), st, "plan my week")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunTimedOut)

	// Timeout is not a turn failure; no synthetic assistant entry.
	log := st.Log()
	require.Len(t, log, 1)
	assert.Equal(t, session.RoleUser, log[0].Role)
}

func TestSendContextCancellation(t *testing.T) {
	platform := agenttest.New()
	platform.RunStates = []agent.Run{{Status: agent.RunStatusInProgress}}
	st := provisionedSession(t)
	d := NewDriver(platform, Config{PollInterval: 50 * time.Millisecond, RunTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := d.Send(ctx, st, "plan my week")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendUpdatesActivity(t *testing.T) {
	platform := agenttest.New()
	st := provisionedSession(t)
	st.Touch(time.Now().Add(-time.Hour))
	d := NewDriver(platform, fastConfig())

	_, err := d.Send(context.Background(), st, "plan my week")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), st.LastActivity(), time.Minute)
}
