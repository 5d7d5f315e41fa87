// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/dingen/services/sheets"
)

// ErrProvisioningFailed wraps any error from the provisioning sequence.
// Callers that observe it must treat the session as unprovisioned and
// release whatever sub-resources were recorded before the failure.
var ErrProvisioningFailed = errors.New("session provisioning failed")

// Resource identifies one of the three remote sub-resources a session
// owns.
type Resource string

const (
	ResourceFile        Resource = "file"
	ResourceVectorStore Resource = "vector_store"
	ResourceAgent       Resource = "agent"
)

// Provisioner builds a session's remote resource set: the dataset is
// uploaded as an NDJSON file, indexed into a vector store, and bound to
// a freshly created agent.
//
// Provisioning is strictly ordered (file, then vector store, then
// agent) because each step consumes the previous step's identifier.
// Every created identifier is reported through the onCreated callback
// before the next step starts, so a caller can release exactly the
// sub-resources that exist when a later step fails.
type Provisioner struct {
	platform PlatformClient
	model    string

	// emailAgentID optionally names a pre-existing agent to connect as
	// an email-sending capability. Empty disables the connection.
	emailAgentID string

	// now is injectable for tests; resource names embed a timestamp so
	// concurrent sessions are distinguishable in platform listings.
	now func() time.Time
}

// NewProvisioner returns a Provisioner creating agents on the given
// model. emailAgentID may be empty.
func NewProvisioner(platform PlatformClient, model, emailAgentID string) *Provisioner {
	return &Provisioner{
		platform:     platform,
		model:        model,
		emailAgentID: emailAgentID,
		now:          time.Now,
	}
}

// Provision runs the full provisioning sequence for one session.
//
// # Description
//
//	Serializes the dataset to NDJSON, uploads it, builds a vector store
//	over the uploaded file, and creates an agent bound to that store.
//	If an email agent is configured it is looked up and attached as a
//	connected capability; a lookup failure degrades to a plain agent
//	rather than failing the session.
//
// # Inputs
//   - ctx: cancellation and deadline control for all remote calls.
//   - dataset: the combined recipe and dinner-history records.
//   - onCreated: invoked with each sub-resource identifier immediately
//     after creation, before the next step. May be nil.
//
// # Outputs
//   - ProvisionedResources: all three identifiers on success.
//   - error: wraps ErrProvisioningFailed on any step failure. The
//     returned resources then hold only the identifiers created so far.
//
// # Limitations
//   - Provision does not release resources on failure; the caller owns
//     rollback so that cleanup bookkeeping lives in one place.
func (p *Provisioner) Provision(ctx context.Context, dataset sheets.Dataset, onCreated func(Resource, string)) (ProvisionedResources, error) {
	var res ProvisionedResources
	record := func(kind Resource, id string) {
		if onCreated != nil {
			onCreated(kind, id)
		}
	}

	payload, err := dataset.MarshalNDJSON()
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrProvisioningFailed, err)
	}

	stamp := p.now().Unix()

	fileName := fmt.Sprintf("dingen_dataset_%d.ndjson", stamp)
	fileID, err := p.platform.UploadFile(ctx, fileName, payload)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrProvisioningFailed, err)
	}
	res.FileID = fileID
	record(ResourceFile, fileID)
	slog.Info("Uploaded session dataset", "file_id", fileID, "bytes", len(payload))

	storeName := fmt.Sprintf("dingen_vectorstore_%d", stamp)
	storeID, err := p.platform.CreateVectorStore(ctx, storeName, []string{fileID})
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrProvisioningFailed, err)
	}
	res.VectorStoreID = storeID
	record(ResourceVectorStore, storeID)
	slog.Info("Created session vector store", "vector_store_id", storeID)

	cfg := AgentConfig{
		Model:         p.model,
		Name:          AgentName,
		Description:   AgentDescription,
		Instructions:  AgentInstructions,
		VectorStoreID: storeID,
	}
	if p.emailAgentID != "" {
		info, err := p.platform.GetAgent(ctx, p.emailAgentID)
		if err != nil {
			slog.Warn("Email agent lookup failed, continuing without email capability",
				"email_agent_id", p.emailAgentID, "error", err)
		} else {
			cfg.ConnectedAgent = &info
		}
	}

	agentID, err := p.platform.CreateAgent(ctx, cfg)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrProvisioningFailed, err)
	}
	res.AgentID = agentID
	record(ResourceAgent, agentID)
	slog.Info("Created session agent", "agent_id", agentID, "model", p.model)

	return res, nil
}
