// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sheets

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/AleutianAI/dingen/pkg/envcfg"
)

// Environment variables accepted for the Google service account key.
const (
	// EnvCredentials may hold a file path, raw JSON, or base64 JSON.
	EnvCredentials = "GOOGLE_APP_CREDENTIALS"

	// EnvCredentialsJSON is the alternate variable, raw or base64 JSON.
	EnvCredentialsJSON = "GOOGLE_APP_CREDENTIALS_JSON"

	// EnvSheetID holds the spreadsheet identifier.
	EnvSheetID = "GOOGLE_SHEET_ID"
)

// MaterializeCredentials resolves the Google service account key from
// the environment and returns its JSON bytes.
//
// # Description
//
// Accepts any of the following, checked in order:
//  1. GOOGLE_APP_CREDENTIALS pointing at an existing file.
//  2. GOOGLE_APP_CREDENTIALS holding raw JSON (starts with '{').
//  3. GOOGLE_APP_CREDENTIALS holding base64 of the JSON.
//  4. GOOGLE_APP_CREDENTIALS_JSON with raw or base64 JSON.
//
// The JSON is validated to parse and to carry a client_email field
// before it is returned. Missing or invalid credentials are a
// configuration failure: they abort startup before any remote call.
//
// # Outputs
//
//   - []byte: The service account key JSON.
//   - error: Wraps envcfg.ErrMissingConfig when no usable value exists.
func MaterializeCredentials() ([]byte, error) {
	primary := os.Getenv(EnvCredentials)
	alt := os.Getenv(EnvCredentialsJSON)

	if primary != "" {
		if info, err := os.Stat(primary); err == nil && !info.IsDir() {
			data, err := os.ReadFile(primary)
			if err != nil {
				return nil, fmt.Errorf("failed to read credentials file %s: %w", primary, err)
			}
			return validateCredentialJSON(data)
		}
	}

	for _, raw := range []string{primary, alt} {
		if text := tryDecodeCredential(raw); text != "" {
			return validateCredentialJSON([]byte(text))
		}
	}

	return nil, fmt.Errorf("%w: set %s (path or JSON) or %s (JSON/base64)",
		envcfg.ErrMissingConfig, EnvCredentials, EnvCredentialsJSON)
}

// tryDecodeCredential returns the raw value when it looks like JSON, or
// its base64 decoding when that yields JSON, or "" otherwise.
func tryDecodeCredential(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "{") {
		return raw
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return ""
	}
	if text := strings.TrimSpace(string(decoded)); strings.HasPrefix(text, "{") {
		return text
	}
	return ""
}

// validateCredentialJSON confirms the key parses and names a service
// account (client_email present).
func validateCredentialJSON(data []byte) ([]byte, error) {
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("invalid service account JSON: %w", err)
	}
	if _, ok := parsed["client_email"]; !ok {
		return nil, fmt.Errorf("service account JSON missing client_email")
	}
	return data, nil
}
