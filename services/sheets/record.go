// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sheets provides row-oriented read access to the recipe
// spreadsheet and normalization of its rows into a uniform schema for
// vector indexing.
package sheets

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is one spreadsheet data row keyed by header-derived field names.
type Row map[string]string

// Record is the uniform schema produced by the normalizer and consumed
// by the resource provisioner for vector indexing.
//
// # Fields
//
//   - ID: Stable string identifier (an "id" column when present,
//     otherwise the zero-based row index).
//   - Text: Text to embed, a concatenation of the row's text columns.
//   - Origin: Marker for the source dataset ("recipes" / "dinner_history").
//   - Metadata: The original row values, kept for retrieval/filtering.
type Record struct {
	ID       string            `json:"doc_id"`
	Text     string            `json:"content"`
	Origin   string            `json:"_source"`
	Metadata map[string]string `json:"raw_metadata,omitempty"`
}

// Dataset is an ordered collection of normalized records.
type Dataset []Record

// MarshalNDJSON serializes the dataset as newline-delimited JSON, one
// record per line. This is the transport format for the uploaded file
// that backs the vector index.
func (d Dataset) MarshalNDJSON() ([]byte, error) {
	if len(d) == 0 {
		return nil, fmt.Errorf("cannot serialize an empty dataset")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, rec := range d {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("failed to encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
