// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/dingen/services/planner/agent"
	"github.com/AleutianAI/dingen/services/planner/agent/agenttest"
	"github.com/AleutianAI/dingen/services/sheets"
)

func testDataset() sheets.Dataset {
	return sheets.Dataset{
		{ID: "1", Text: "Lemon chicken with rice", Origin: sheets.OriginRecipes},
		{ID: "2", Text: "Cooked 2025-08-01: tacos", Origin: sheets.OriginDinnerHistory},
	}
}

func TestProvisionSuccessOrdersSteps(t *testing.T) {
	platform := agenttest.New()
	p := agent.NewProvisioner(platform, "gpt-4o", "")

	var created []agent.Resource
	res, err := p.Provision(context.Background(), testDataset(), func(kind agent.Resource, id string) {
		created = append(created, kind)
		assert.NotEmpty(t, id)
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.FileID)
	assert.NotEmpty(t, res.VectorStoreID)
	assert.NotEmpty(t, res.AgentID)
	assert.Equal(t, []agent.Resource{
		agent.ResourceFile,
		agent.ResourceVectorStore,
		agent.ResourceAgent,
	}, created)
	assert.Equal(t, []string{"UploadFile", "CreateVectorStore", "CreateAgent"}, platform.Calls)
}

func TestProvisionVectorStoreFailureReportsPartialResources(t *testing.T) {
	platform := agenttest.New().FailOn("CreateVectorStore", errors.New("quota exceeded"))
	p := agent.NewProvisioner(platform, "gpt-4o", "")

	var created []agent.Resource
	res, err := p.Provision(context.Background(), testDataset(), func(kind agent.Resource, _ string) {
		created = append(created, kind)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrProvisioningFailed)

	// Only the file exists; the callback must have seen exactly that.
	assert.NotEmpty(t, res.FileID)
	assert.Empty(t, res.VectorStoreID)
	assert.Empty(t, res.AgentID)
	assert.Equal(t, []agent.Resource{agent.ResourceFile}, created)
	assert.Equal(t, 0, platform.CallCount("CreateAgent"))
}

func TestProvisionAgentFailureWrapsSentinel(t *testing.T) {
	platform := agenttest.New().FailOn("CreateAgent", errors.New("model unavailable"))
	p := agent.NewProvisioner(platform, "gpt-4o", "")

	res, err := p.Provision(context.Background(), testDataset(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrProvisioningFailed)
	assert.NotEmpty(t, res.FileID)
	assert.NotEmpty(t, res.VectorStoreID)
	assert.Empty(t, res.AgentID)
}

func TestProvisionEmptyDatasetFailsBeforeUpload(t *testing.T) {
	platform := agenttest.New()
	p := agent.NewProvisioner(platform, "gpt-4o", "")

	_, err := p.Provision(context.Background(), sheets.Dataset{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrProvisioningFailed)
	assert.Empty(t, platform.Calls)
}

func TestProvisionEmailAgentLookupFailureDegrades(t *testing.T) {
	platform := agenttest.New().FailOn("GetAgent", errors.New("not found"))
	p := agent.NewProvisioner(platform, "gpt-4o", "agent-email")

	res, err := p.Provision(context.Background(), testDataset(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.AgentID)
	assert.Equal(t, 1, platform.CallCount("GetAgent"))
	assert.Equal(t, 1, platform.CallCount("CreateAgent"))
}
