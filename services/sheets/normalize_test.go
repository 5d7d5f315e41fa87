// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sheets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_PreferredTextColumns(t *testing.T) {
	rows := []Row{
		{"Title": "Fish stew", "Ingredients": "cod, potatoes", "Season": "winter"},
	}
	ds := Normalize(rows, OriginRecipes)

	require.Len(t, ds, 1)
	rec := ds[0]
	assert.Equal(t, OriginRecipes, rec.Origin)
	assert.Contains(t, rec.Text, "Fish stew")
	assert.Contains(t, rec.Text, "cod, potatoes")
	// Non-candidate columns stay out of the embedded text.
	assert.NotContains(t, rec.Text, "winter")
	assert.Equal(t, "winter", rec.Metadata["Season"])
}

func TestNormalize_IDColumn(t *testing.T) {
	rows := []Row{
		{"ID": "r-42", "Title": "Soup"},
		{"Title": "Pasta"},
	}
	ds := Normalize(rows, OriginRecipes)

	require.Len(t, ds, 2)
	assert.Equal(t, "r-42", ds[0].ID)
	// No id column: fall back to the row index.
	assert.Equal(t, "1", ds[1].ID)
}

func TestNormalize_FallbackAllColumns(t *testing.T) {
	rows := []Row{
		{"Datum": "2026-08-20", "Gericht": "tacos"},
	}
	ds := Normalize(rows, OriginDinnerHistory)

	require.Len(t, ds, 1)
	assert.Contains(t, ds[0].Text, "2026-08-20")
	assert.Contains(t, ds[0].Text, "tacos")
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(nil, OriginRecipes))
}

func TestCombine_PreservesOrder(t *testing.T) {
	recipes := Normalize([]Row{{"Title": "a"}, {"Title": "b"}}, OriginRecipes)
	history := Normalize([]Row{{"Title": "c"}}, OriginDinnerHistory)

	combined := Combine(recipes, history)
	require.Len(t, combined, 3)
	assert.Equal(t, OriginRecipes, combined[0].Origin)
	assert.Equal(t, OriginDinnerHistory, combined[2].Origin)
}

func TestMarshalNDJSON(t *testing.T) {
	ds := Dataset{
		{ID: "1", Text: "fish stew", Origin: OriginRecipes},
		{ID: "2", Text: "lentil curry", Origin: OriginRecipes},
	}
	data, err := ds.MarshalNDJSON()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"doc_id":"1"`)
	assert.Contains(t, lines[1], `"content":"lentil curry"`)
}

func TestMarshalNDJSON_EmptyDataset(t *testing.T) {
	_, err := Dataset{}.MarshalNDJSON()
	require.Error(t, err)
}
