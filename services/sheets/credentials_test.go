// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sheets

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/dingen/pkg/envcfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validKey = `{"type":"service_account","client_email":"svc@project.iam.gserviceaccount.com"}`

func TestMaterializeCredentials_FilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(validKey), 0600))
	t.Setenv(EnvCredentials, path)
	t.Setenv(EnvCredentialsJSON, "")

	data, err := MaterializeCredentials()
	require.NoError(t, err)
	assert.JSONEq(t, validKey, string(data))
}

func TestMaterializeCredentials_RawJSON(t *testing.T) {
	t.Setenv(EnvCredentials, validKey)
	t.Setenv(EnvCredentialsJSON, "")

	data, err := MaterializeCredentials()
	require.NoError(t, err)
	assert.JSONEq(t, validKey, string(data))
}

func TestMaterializeCredentials_Base64(t *testing.T) {
	t.Setenv(EnvCredentials, base64.StdEncoding.EncodeToString([]byte(validKey)))
	t.Setenv(EnvCredentialsJSON, "")

	data, err := MaterializeCredentials()
	require.NoError(t, err)
	assert.JSONEq(t, validKey, string(data))
}

func TestMaterializeCredentials_AltVariable(t *testing.T) {
	t.Setenv(EnvCredentials, "")
	t.Setenv(EnvCredentialsJSON, validKey)

	data, err := MaterializeCredentials()
	require.NoError(t, err)
	assert.JSONEq(t, validKey, string(data))
}

func TestMaterializeCredentials_Missing(t *testing.T) {
	t.Setenv(EnvCredentials, "")
	t.Setenv(EnvCredentialsJSON, "")

	_, err := MaterializeCredentials()
	require.Error(t, err)
	assert.ErrorIs(t, err, envcfg.ErrMissingConfig)
}

func TestMaterializeCredentials_MissingClientEmail(t *testing.T) {
	t.Setenv(EnvCredentials, `{"type":"service_account"}`)
	t.Setenv(EnvCredentialsJSON, "")

	_, err := MaterializeCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_email")
}
