// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agenttest provides an in-memory PlatformClient for tests.
package agenttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/AleutianAI/dingen/services/planner/agent"
)

// FakePlatform is a scriptable in-memory agent.PlatformClient.
//
// Every method records its call and succeeds with a deterministic
// identifier unless a matching entry in Errs forces a failure. Run
// polling is scripted through RunStates: successive GetRun calls pop
// states off the front of the queue, holding the last state once the
// queue drains.
type FakePlatform struct {
	mu sync.Mutex

	// Errs maps an operation name ("UploadFile", "DeleteAgent", ...) to
	// the error that operation should return.
	Errs map[string]error

	// RunStates scripts the sequence of states GetRun reports.
	RunStates []agent.Run

	// Messages is returned by ListMessages.
	Messages []agent.ThreadMessage

	// Calls records operation names in invocation order.
	Calls []string

	// Approvals records every ApproveToolCalls submission.
	Approvals [][]agent.ToolApproval

	// Posted records every message posted to a thread.
	Posted []string

	// Deleted records identifiers passed to the Delete methods.
	Deleted []string

	seq map[string]int
}

var _ agent.PlatformClient = (*FakePlatform)(nil)

// New returns an empty FakePlatform where every operation succeeds.
// Identifiers are numbered per resource kind: "file-1", "vs-1",
// "agent-1", "thread-1", "run-1", and so on.
func New() *FakePlatform {
	return &FakePlatform{Errs: map[string]error{}, seq: map[string]int{}}
}

// FailOn makes the named operation return err.
func (f *FakePlatform) FailOn(op string, err error) *FakePlatform {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errs[op] = err
	return f
}

// CallCount returns how many times the named operation ran.
func (f *FakePlatform) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *FakePlatform) step(op, prefix string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, op)
	if err := f.Errs[op]; err != nil {
		return "", err
	}
	f.seq[prefix]++
	return fmt.Sprintf("%s-%d", prefix, f.seq[prefix]), nil
}

func (f *FakePlatform) UploadFile(_ context.Context, _ string, _ []byte) (string, error) {
	return f.step("UploadFile", "file")
}

func (f *FakePlatform) CreateVectorStore(_ context.Context, _ string, _ []string) (string, error) {
	return f.step("CreateVectorStore", "vs")
}

func (f *FakePlatform) CreateAgent(_ context.Context, _ agent.AgentConfig) (string, error) {
	return f.step("CreateAgent", "agent")
}

func (f *FakePlatform) GetAgent(_ context.Context, agentID string) (agent.AgentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "GetAgent")
	if err := f.Errs["GetAgent"]; err != nil {
		return agent.AgentInfo{}, err
	}
	return agent.AgentInfo{ID: agentID, Name: "connected-agent", Description: "forwards requests"}, nil
}

func (f *FakePlatform) CreateThread(_ context.Context) (string, error) {
	return f.step("CreateThread", "thread")
}

func (f *FakePlatform) PostMessage(_ context.Context, _, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "PostMessage")
	if err := f.Errs["PostMessage"]; err != nil {
		return err
	}
	f.Posted = append(f.Posted, text)
	return nil
}

func (f *FakePlatform) CreateRun(_ context.Context, _, _ string) (agent.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "CreateRun")
	if err := f.Errs["CreateRun"]; err != nil {
		return agent.Run{}, err
	}
	f.seq["run"]++
	return agent.Run{ID: fmt.Sprintf("run-%d", f.seq["run"]), Status: agent.RunStatusQueued}, nil
}

func (f *FakePlatform) GetRun(_ context.Context, _, runID string) (agent.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "GetRun")
	if err := f.Errs["GetRun"]; err != nil {
		return agent.Run{}, err
	}
	if len(f.RunStates) == 0 {
		return agent.Run{ID: runID, Status: agent.RunStatusCompleted}, nil
	}
	state := f.RunStates[0]
	if len(f.RunStates) > 1 {
		f.RunStates = f.RunStates[1:]
	}
	state.ID = runID
	return state, nil
}

func (f *FakePlatform) ListMessages(_ context.Context, _ string) ([]agent.ThreadMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "ListMessages")
	if err := f.Errs["ListMessages"]; err != nil {
		return nil, err
	}
	out := make([]agent.ThreadMessage, len(f.Messages))
	copy(out, f.Messages)
	return out, nil
}

func (f *FakePlatform) ApproveToolCalls(_ context.Context, _, _ string, approvals []agent.ToolApproval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "ApproveToolCalls")
	if err := f.Errs["ApproveToolCalls"]; err != nil {
		return err
	}
	f.Approvals = append(f.Approvals, approvals)
	return nil
}

func (f *FakePlatform) deleteOp(op, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, op)
	if err := f.Errs[op]; err != nil {
		return err
	}
	f.Deleted = append(f.Deleted, id)
	return nil
}

func (f *FakePlatform) DeleteAgent(_ context.Context, agentID string) error {
	return f.deleteOp("DeleteAgent", agentID)
}

func (f *FakePlatform) DeleteVectorStore(_ context.Context, vectorStoreID string) error {
	return f.deleteOp("DeleteVectorStore", vectorStoreID)
}

func (f *FakePlatform) DeleteFile(_ context.Context, fileID string) error {
	return f.deleteOp("DeleteFile", fileID)
}
