// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/AleutianAI/dingen/pkg/envcfg"
	sheetsapi "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"
)

// Worksheet indexes and limits carried from the spreadsheet layout.
const (
	// RecipesWorksheet is the worksheet holding the recipe catalog.
	RecipesWorksheet = 0

	// DinnerHistoryWorksheet is the worksheet holding the recency log.
	DinnerHistoryWorksheet = 2

	// DinnerHistoryLimit trims the recency log to the most recent rows.
	DinnerHistoryLimit = 14
)

// listTitlesFunc returns the worksheet titles of the spreadsheet in
// sheet order. Injectable for tests.
type listTitlesFunc func(ctx context.Context) ([]string, error)

// readValuesFunc returns all cell values of the named worksheet,
// including the header row. Injectable for tests.
type readValuesFunc func(ctx context.Context, title string) ([][]any, error)

// Client reads rows from the configured Google spreadsheet.
//
// # Description
//
// Client wraps the Google Sheets API behind the row-oriented read
// contract used by the planner and the toolserver: worksheets are
// addressed by zero-based source index, rows come back keyed by the
// header-derived field names, and an optional row limit keeps only the
// most recent data rows (the header always applies).
//
// # Thread Safety
//
// All methods are safe for concurrent use; the underlying Sheets
// service handles its own connection pooling.
type Client struct {
	sheetID    string
	listTitles listTitlesFunc
	readValues readValuesFunc
}

// NewClient builds a Client from environment configuration.
//
// # Description
//
// Materializes the service account key (see MaterializeCredentials) and
// the sheet ID from the environment, then constructs a read-only Sheets
// service. Both missing credentials and a missing sheet ID fail fast
// before any remote call is made.
//
// # Inputs
//
//   - ctx: Context for service construction.
//
// # Outputs
//
//   - *Client: Ready-to-use spreadsheet reader.
//   - error: Wraps envcfg.ErrMissingConfig for absent configuration.
func NewClient(ctx context.Context) (*Client, error) {
	sheetID := os.Getenv(EnvSheetID)
	if sheetID == "" {
		return nil, fmt.Errorf("%w: %s", envcfg.ErrMissingConfig, EnvSheetID)
	}

	creds, err := MaterializeCredentials()
	if err != nil {
		return nil, err
	}

	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	slog.Info("Sheets client initialized", "sheet_id", sheetID)
	return &Client{
		sheetID: sheetID,
		listTitles: func(ctx context.Context) ([]string, error) {
			meta, err := svc.Spreadsheets.Get(sheetID).Fields("sheets.properties.title").Context(ctx).Do()
			if err != nil {
				return nil, fmt.Errorf("failed to fetch spreadsheet metadata: %w", err)
			}
			titles := make([]string, 0, len(meta.Sheets))
			for _, s := range meta.Sheets {
				titles = append(titles, s.Properties.Title)
			}
			return titles, nil
		},
		readValues: func(ctx context.Context, title string) ([][]any, error) {
			resp, err := svc.Spreadsheets.Values.Get(sheetID, title).Context(ctx).Do()
			if err != nil {
				return nil, fmt.Errorf("failed to read worksheet %q: %w", title, err)
			}
			return resp.Values, nil
		},
	}, nil
}

// newClientWithReaders builds a Client from injected read functions.
// Used by tests; production code goes through NewClient.
func newClientWithReaders(sheetID string, titles listTitlesFunc, values readValuesFunc) *Client {
	return &Client{sheetID: sheetID, listTitles: titles, readValues: values}
}

// ReadRows returns the data rows of the worksheet at sourceIndex.
//
// # Description
//
// The first row of the worksheet is treated as the header and supplies
// the field names of every returned Row. When rowLimit > 0 only the
// most recent rowLimit data rows are returned (the header is always
// consumed first and never counted against the limit). Short rows are
// padded with empty strings so every Row carries every header field.
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout.
//   - sourceIndex: Zero-based worksheet index.
//   - rowLimit: Keep only the last N data rows; 0 means all rows.
//
// # Outputs
//
//   - []Row: Ordered data rows with header-derived field names.
//   - error: Range error when sourceIndex exceeds available worksheets,
//     or the underlying API error.
func (c *Client) ReadRows(ctx context.Context, sourceIndex, rowLimit int) ([]Row, error) {
	titles, err := c.listTitles(ctx)
	if err != nil {
		return nil, err
	}
	if sourceIndex < 0 || sourceIndex >= len(titles) {
		return nil, fmt.Errorf("worksheet index %d out of range (0..%d)", sourceIndex, len(titles)-1)
	}

	values, err := c.readValues(ctx, titles[sourceIndex])
	if err != nil {
		return nil, err
	}
	if len(values) <= 1 {
		// Header only, or empty worksheet.
		return []Row{}, nil
	}

	header := make([]string, len(values[0]))
	for i, cell := range values[0] {
		header[i] = fmt.Sprint(cell)
	}

	dataRows := values[1:]
	if rowLimit > 0 && len(dataRows) > rowLimit {
		dataRows = dataRows[len(dataRows)-rowLimit:]
	}

	rows := make([]Row, 0, len(dataRows))
	for _, raw := range dataRows {
		row := make(Row, len(header))
		for i, name := range header {
			if i < len(raw) {
				row[name] = fmt.Sprint(raw[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}

	slog.Debug("Read worksheet rows",
		"worksheet", titles[sourceIndex],
		"rows", len(rows),
		"limit", rowLimit,
	)
	return rows, nil
}
