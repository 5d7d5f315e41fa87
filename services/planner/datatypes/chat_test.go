// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequestValidate(t *testing.T) {
	req := ChatRequest{Message: "plan my dinners for the week"}
	assert.NoError(t, req.Validate())

	req = ChatRequest{}
	assert.Error(t, req.Validate(), "empty message must be rejected")

	req = ChatRequest{Message: strings.Repeat("a", MaxMessageContentBytes+1)}
	assert.Error(t, req.Validate(), "oversized message must be rejected")

	req = ChatRequest{Message: "hi", RequestID: "not-a-uuid"}
	assert.Error(t, req.Validate())

	req = ChatRequest{Message: "hi", RequestID: "550e8400-e29b-41d4-a716-446655440000"}
	assert.NoError(t, req.Validate())
}

func TestChatRequestEnsureDefaults(t *testing.T) {
	req := ChatRequest{Message: "hi"}
	req.EnsureDefaults()
	require.NotEmpty(t, req.RequestID)
	require.NotZero(t, req.Timestamp)
	assert.NoError(t, req.Validate())

	// Provided values are left alone.
	fixed := ChatRequest{Message: "hi", RequestID: "550e8400-e29b-41d4-a716-446655440000", Timestamp: 42}
	fixed.EnsureDefaults()
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", fixed.RequestID)
	assert.Equal(t, int64(42), fixed.Timestamp)
}
