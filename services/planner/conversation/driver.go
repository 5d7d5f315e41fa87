// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package conversation drives blocking conversational turns against a
// provisioned session agent.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/AleutianAI/dingen/services/planner/agent"
	"github.com/AleutianAI/dingen/services/planner/session"
)

// ErrRunTimedOut is returned when a run fails to reach a terminal state
// within the configured wait budget. It is distinct from ordinary send
// failures so callers can report the turn as still running remotely
// rather than failed.
var ErrRunTimedOut = errors.New("run did not complete within the wait budget")

// Config bounds the run polling loop.
type Config struct {
	// PollInterval is the delay between successive run status checks.
	PollInterval time.Duration

	// RunTimeout caps the total wait for one run to reach a terminal
	// state.
	RunTimeout time.Duration
}

// DefaultConfig matches interactive use: a turn may take a while with
// file search involved, but nobody waits past two minutes.
func DefaultConfig() Config {
	return Config{
		PollInterval: 750 * time.Millisecond,
		RunTimeout:   2 * time.Minute,
	}
}

// Driver executes conversational turns. Stateless apart from its
// configuration; all per-session state lives in session.State.
type Driver struct {
	platform agent.PlatformClient
	cfg      Config
}

// NewDriver returns a Driver over the given platform. Zero config
// fields fall back to DefaultConfig values.
func NewDriver(platform agent.PlatformClient, cfg Config) *Driver {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = def.RunTimeout
	}
	return &Driver{platform: platform, cfg: cfg}
}

// Send executes one blocking conversational turn.
//
// # Description
//
//	Appends the utterance to the session log, lazily creates the
//	conversation thread on first use, posts the message, starts a run,
//	and polls until the run completes. Pending tool calls are approved
//	automatically so runs never stall awaiting a human. On completion
//	the new assistant messages are appended to the log and returned in
//	creation order.
//
// # Outputs
//   - []string: the assistant replies for this turn.
//   - error: session.ErrTurnInProgress when another turn on the same
//     session is still in flight, ErrRunTimedOut when the wait budget
//     elapses, or the context's error on cancellation. Remote send
//     failures and failed runs do NOT surface as errors; they become a
//     single assistant-role error entry in the log, returned as the
//     reply, and the session stays usable.
//
// # Assumptions
//   - Turns on one session are sequential. Send claims the session's
//     turn slot before touching the thread, so a concurrent Send on the
//     same session is refused without creating a second thread or run.
func (d *Driver) Send(ctx context.Context, st *session.State, utterance string) ([]string, error) {
	if err := st.BeginTurn(); err != nil {
		return nil, err
	}
	defer st.EndTurn()

	st.Touch(time.Now())
	st.Append(session.RoleUser, utterance)

	threadID := st.ThreadID()
	if threadID == "" {
		id, err := d.platform.CreateThread(ctx)
		if err != nil {
			return d.failTurn(st, fmt.Errorf("thread creation: %w", err)), nil
		}
		threadID = id
		st.SetThreadID(id)
		slog.Info("Created conversation thread", "session_id", st.Key(), "thread_id", id)
	}

	if err := d.platform.PostMessage(ctx, threadID, string(session.RoleUser), utterance); err != nil {
		return d.failTurn(st, fmt.Errorf("message post: %w", err)), nil
	}

	run, err := d.platform.CreateRun(ctx, threadID, st.AgentID())
	if err != nil {
		return d.failTurn(st, fmt.Errorf("run creation: %w", err)), nil
	}
	st.SetRunID(run.ID)

	run, err = d.awaitRun(ctx, threadID, run)
	if err != nil {
		return nil, err
	}
	if run.Status == agent.RunStatusFailed {
		reason := run.FailureReason
		if reason == "" {
			reason = "unknown failure"
		}
		return d.failTurn(st, fmt.Errorf("run %s failed: %s", run.ID, reason)), nil
	}

	replies, err := d.collectReplies(ctx, threadID, run.ID)
	if err != nil {
		return d.failTurn(st, fmt.Errorf("reply retrieval: %w", err)), nil
	}
	for _, r := range replies {
		st.Append(session.RoleAssistant, r)
	}
	st.Touch(time.Now())
	return replies, nil
}

// awaitRun polls until the run is terminal, approving tool calls along
// the way. Poll errors are tolerated for the duration of the budget;
// the budget itself converts into ErrRunTimedOut.
func (d *Driver) awaitRun(ctx context.Context, threadID string, run agent.Run) (agent.Run, error) {
	deadline := time.Now().Add(d.cfg.RunTimeout)
	timer := time.NewTimer(d.cfg.PollInterval)
	defer timer.Stop()

	for {
		if run.Status.Terminal() {
			return run, nil
		}
		if run.Status == agent.RunStatusRequiresAction && len(run.PendingToolCalls) > 0 {
			approvals := make([]agent.ToolApproval, 0, len(run.PendingToolCalls))
			for _, tc := range run.PendingToolCalls {
				slog.Info("Approving tool call", "run_id", run.ID, "tool", tc.Name)
				approvals = append(approvals, agent.ToolApproval{ToolCallID: tc.ID, Approve: true})
			}
			if err := d.platform.ApproveToolCalls(ctx, threadID, run.ID, approvals); err != nil {
				slog.Warn("Tool approval failed, will retry on next poll", "run_id", run.ID, "error", err)
			}
		}

		if time.Now().After(deadline) {
			slog.Warn("Run exceeded wait budget", "run_id", run.ID, "status", run.Status)
			return run, ErrRunTimedOut
		}
		timer.Reset(d.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-timer.C:
		}

		next, err := d.platform.GetRun(ctx, threadID, run.ID)
		if err != nil {
			slog.Warn("Run status check failed, retrying", "run_id", run.ID, "error", err)
			continue
		}
		run = next
	}
}

// collectReplies returns the text of this run's messages in ascending
// creation order. Filtering on the run identifier excludes both the
// user's own message and output from earlier turns.
func (d *Driver) collectReplies(ctx context.Context, threadID, runID string) ([]string, error) {
	messages, err := d.platform.ListMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	var mine []agent.ThreadMessage
	for _, m := range messages {
		if m.RunID == runID {
			mine = append(mine, m)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].CreatedAt < mine[j].CreatedAt
	})
	replies := make([]string, 0, len(mine))
	for _, m := range mine {
		replies = append(replies, m.Text)
	}
	return replies, nil
}

// failTurn converts a send failure into a visible assistant entry so
// the user sees what went wrong and the session remains usable.
func (d *Driver) failTurn(st *session.State, cause error) []string {
	slog.Error("Conversational turn failed", "session_id", st.Key(), "error", cause)
	entry := fmt.Sprintf("Sorry, something went wrong handling that request: %v", cause)
	st.Append(session.RoleAssistant, entry)
	return []string{entry}
}
