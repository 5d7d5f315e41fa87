// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sheets

import (
	"sort"
	"strconv"
	"strings"
)

// Origin markers attached to normalized records.
const (
	OriginRecipes       = "recipes"
	OriginDinnerHistory = "dinner_history"
)

// textColumnCandidates are the columns combined into Record.Text, in
// preference order, matched case-insensitively against the header.
var textColumnCandidates = []string{
	"instructions", "description", "notes", "title", "recipe", "ingredients",
}

// Normalize maps heterogeneous rows into the uniform indexing schema.
//
// # Description
//
// Every row becomes one Record:
//   - ID comes from an "id" column when present (case-insensitive),
//     otherwise the zero-based row index.
//   - Text concatenates the candidate text columns present in the
//     header; when none match, all columns are joined in sorted header
//     order as a fallback.
//   - Origin marks the source dataset.
//   - Metadata carries the full original row for retrieval/filtering.
//
// Rows are never dropped or reordered; an empty input yields an empty
// dataset.
func Normalize(rows []Row, origin string) Dataset {
	out := make(Dataset, 0, len(rows))
	for i, row := range rows {
		rec := Record{
			ID:       rowID(row, i),
			Text:     rowText(row),
			Origin:   origin,
			Metadata: row,
		}
		out = append(out, rec)
	}
	return out
}

// Combine appends datasets in argument order into one dataset for
// provisioning. Record IDs are left as-is; the Origin field keeps
// overlapping IDs distinguishable.
func Combine(datasets ...Dataset) Dataset {
	var total int
	for _, d := range datasets {
		total += len(d)
	}
	out := make(Dataset, 0, total)
	for _, d := range datasets {
		out = append(out, d...)
	}
	return out
}

func rowID(row Row, index int) string {
	for name, value := range row {
		if strings.EqualFold(name, "id") && value != "" {
			return value
		}
	}
	return strconv.Itoa(index)
}

func rowText(row Row) string {
	var parts []string
	for _, candidate := range textColumnCandidates {
		for name, value := range row {
			if strings.EqualFold(name, candidate) && value != "" {
				parts = append(parts, value)
			}
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}

	// Fallback: stringify the whole row in sorted header order.
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if row[name] != "" {
			parts = append(parts, row[name])
		}
	}
	return strings.Join(parts, " ")
}
