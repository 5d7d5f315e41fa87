// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIPlatform implements PlatformClient against the OpenAI
// Assistants API.
type OpenAIPlatform struct {
	client *openai.Client
}

var _ PlatformClient = (*OpenAIPlatform)(nil)

// NewOpenAIPlatform builds a platform client from the environment.
//
// The API key comes from OPENAI_API_KEY, with a fallback to the Podman
// secret mount used in container deployments.
func NewOpenAIPlatform() (*OpenAIPlatform, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from Podman Secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	return &OpenAIPlatform{client: openai.NewClient(apiKey)}, nil
}

func (p *OpenAIPlatform) UploadFile(ctx context.Context, name string, content []byte) (string, error) {
	file, err := p.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   content,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return "", fmt.Errorf("file upload failed: %w", err)
	}
	return file.ID, nil
}

func (p *OpenAIPlatform) CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error) {
	store, err := p.client.CreateVectorStore(ctx, openai.VectorStoreRequest{
		Name:    name,
		FileIDs: fileIDs,
	})
	if err != nil {
		return "", fmt.Errorf("vector store creation failed: %w", err)
	}
	return store.ID, nil
}

func (p *OpenAIPlatform) CreateAgent(ctx context.Context, cfg AgentConfig) (string, error) {
	tools := []openai.AssistantTool{
		{Type: openai.AssistantToolTypeFileSearch},
	}
	if cfg.ConnectedAgent != nil {
		// Expose the connected agent as a callable capability. The
		// resulting tool calls come back through the run's
		// requires_action state for approval.
		tools = append(tools, openai.AssistantTool{
			Type: openai.AssistantToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        cfg.ConnectedAgent.Name,
				Description: cfg.ConnectedAgent.Description,
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"input": map[string]any{
							"type":        "string",
							"description": "The request to forward to the connected agent.",
						},
					},
					"required": []string{"input"},
				},
			},
		})
	}

	req := openai.AssistantRequest{
		Model:        cfg.Model,
		Name:         &cfg.Name,
		Description:  &cfg.Description,
		Instructions: &cfg.Instructions,
		Tools:        tools,
		ToolResources: &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{
				VectorStoreIDs: []string{cfg.VectorStoreID},
			},
		},
	}
	assistant, err := p.client.CreateAssistant(ctx, req)
	if err != nil {
		return "", fmt.Errorf("agent creation failed: %w", err)
	}
	return assistant.ID, nil
}

func (p *OpenAIPlatform) GetAgent(ctx context.Context, agentID string) (AgentInfo, error) {
	assistant, err := p.client.RetrieveAssistant(ctx, agentID)
	if err != nil {
		return AgentInfo{}, fmt.Errorf("agent lookup failed: %w", err)
	}
	info := AgentInfo{ID: assistant.ID}
	if assistant.Name != nil {
		info.Name = *assistant.Name
	}
	if assistant.Description != nil {
		info.Description = *assistant.Description
	}
	return info, nil
}

func (p *OpenAIPlatform) CreateThread(ctx context.Context) (string, error) {
	thread, err := p.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("thread creation failed: %w", err)
	}
	return thread.ID, nil
}

func (p *OpenAIPlatform) PostMessage(ctx context.Context, threadID, role, text string) error {
	_, err := p.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("message post failed: %w", err)
	}
	return nil
}

func (p *OpenAIPlatform) CreateRun(ctx context.Context, threadID, agentID string) (Run, error) {
	run, err := p.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: agentID,
	})
	if err != nil {
		return Run{}, fmt.Errorf("run creation failed: %w", err)
	}
	return p.toRun(run), nil
}

func (p *OpenAIPlatform) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := p.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("run retrieval failed: %w", err)
	}
	return p.toRun(run), nil
}

func (p *OpenAIPlatform) ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	list, err := p.client.ListMessage(ctx, threadID, nil, nil, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("message listing failed: %w", err)
	}
	messages := make([]ThreadMessage, 0, len(list.Messages))
	for _, m := range list.Messages {
		msg := ThreadMessage{
			ID:        m.ID,
			Role:      m.Role,
			Text:      messageText(m),
			CreatedAt: int64(m.CreatedAt),
		}
		if m.RunID != nil {
			msg.RunID = *m.RunID
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (p *OpenAIPlatform) ApproveToolCalls(ctx context.Context, threadID, runID string, approvals []ToolApproval) error {
	outputs := make([]openai.ToolOutput, 0, len(approvals))
	for _, a := range approvals {
		output := "approved"
		if !a.Approve {
			output = "denied"
		}
		outputs = append(outputs, openai.ToolOutput{
			ToolCallID: a.ToolCallID,
			Output:     output,
		})
	}
	_, err := p.client.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
		ToolOutputs: outputs,
	})
	if err != nil {
		return fmt.Errorf("tool approval submission failed: %w", err)
	}
	return nil
}

func (p *OpenAIPlatform) DeleteAgent(ctx context.Context, agentID string) error {
	if _, err := p.client.DeleteAssistant(ctx, agentID); err != nil {
		return fmt.Errorf("agent deletion failed: %w", err)
	}
	return nil
}

func (p *OpenAIPlatform) DeleteVectorStore(ctx context.Context, vectorStoreID string) error {
	if _, err := p.client.DeleteVectorStore(ctx, vectorStoreID); err != nil {
		return fmt.Errorf("vector store deletion failed: %w", err)
	}
	return nil
}

func (p *OpenAIPlatform) DeleteFile(ctx context.Context, fileID string) error {
	if err := p.client.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("file deletion failed: %w", err)
	}
	return nil
}

// toRun maps the provider run representation onto the platform-neutral
// one. Cancelled and expired runs are treated as failures so callers
// only see the five lifecycle states they handle.
func (p *OpenAIPlatform) toRun(run openai.Run) Run {
	out := Run{ID: run.ID}
	switch run.Status {
	case openai.RunStatusQueued:
		out.Status = RunStatusQueued
	case openai.RunStatusInProgress:
		out.Status = RunStatusInProgress
	case openai.RunStatusRequiresAction:
		out.Status = RunStatusRequiresAction
	case openai.RunStatusCompleted:
		out.Status = RunStatusCompleted
	default:
		out.Status = RunStatusFailed
		out.FailureReason = string(run.Status)
	}
	if run.LastError != nil {
		out.FailureReason = fmt.Sprintf("%s: %s", run.LastError.Code, run.LastError.Message)
	}
	if run.Status == openai.RunStatusRequiresAction &&
		run.RequiredAction != nil &&
		run.RequiredAction.SubmitToolOutputs != nil {
		for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			out.PendingToolCalls = append(out.PendingToolCalls, ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
			})
		}
	}
	return out
}

func messageText(m openai.Message) string {
	var parts []string
	for _, c := range m.Content {
		if c.Text != nil {
			parts = append(parts, c.Text.Value)
		}
	}
	return strings.Join(parts, "\n")
}
