// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// The toolserver exposes the household spreadsheet as MCP-style tools
// so connected agents can query recipes and dinner history directly,
// without going through a session's vector store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/dingen/pkg/envcfg"
	"github.com/AleutianAI/dingen/pkg/logging"
	"github.com/AleutianAI/dingen/services/sheets"
)

// =============================================================================
// MCP Wire Types
// =============================================================================

type mcpRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Method  string    `json:"method"`
	Params  mcpParams `json:"params"`
}

type mcpParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type mcpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

type mcpResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *mcpError `json:"error,omitempty"`
}

type toolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

const (
	codeInvalidRequest = -32600
	codeUnknownMethod  = -32601
	codeInternal       = -32603
)

// =============================================================================
// Server
// =============================================================================

// rowReader is the spreadsheet surface the server needs. Satisfied by
// *sheets.Client; replaced in tests.
type rowReader interface {
	ReadRows(ctx context.Context, sourceIndex, rowLimit int) ([]sheets.Row, error)
}

// Server serves the tool endpoints over one spreadsheet.
//
// Worksheet reads are coalesced with singleflight and cached for a
// short TTL: a burst of tool calls from one agent run hits the
// spreadsheet API once per worksheet.
type Server struct {
	reader   rowReader
	cacheTTL time.Duration

	group singleflight.Group
	mu    sync.RWMutex
	cache map[int]cachedRows
}

type cachedRows struct {
	rows    []sheets.Row
	fetched time.Time
}

func NewServer(reader rowReader, cacheTTL time.Duration) *Server {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Server{
		reader:   reader,
		cacheTTL: cacheTTL,
		cache:    make(map[int]cachedRows),
	}
}

// rows returns worksheet rows through the TTL cache.
func (s *Server) rows(ctx context.Context, sourceIndex, rowLimit int) ([]sheets.Row, error) {
	s.mu.RLock()
	entry, ok := s.cache[sourceIndex]
	s.mu.RUnlock()
	if ok && time.Since(entry.fetched) < s.cacheTTL {
		return entry.rows, nil
	}

	v, err, _ := s.group.Do(strconv.Itoa(sourceIndex), func() (interface{}, error) {
		rows, err := s.reader.ReadRows(ctx, sourceIndex, rowLimit)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[sourceIndex] = cachedRows{rows: rows, fetched: time.Now()}
		s.mu.Unlock()
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]sheets.Row), nil
}

// =============================================================================
// Tool Implementations
// =============================================================================

func toolCatalog() []toolInfo {
	stringArg := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	return []toolInfo{
		{
			Name:        "get_recipes",
			Description: "Return every recipe in the household collection.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "get_dinner_history",
			Description: "Return the most recent two weeks of dinner history.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "search_recipes",
			Description: "Filter recipes by season and/or dietary preference (case-insensitive substring match).",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"season":     stringArg("Season to match, e.g. summer"),
					"preference": stringArg("Preference to match, e.g. vegetarian"),
				},
			},
		},
	}
}

type searchArgs struct {
	Season     string `json:"season"`
	Preference string `json:"preference"`
}

// callTool dispatches one tools/call invocation.
func (s *Server) callTool(ctx context.Context, name string, arguments json.RawMessage) ([]sheets.Row, error) {
	switch name {
	case "get_recipes":
		return s.rows(ctx, sheets.RecipesWorksheet, 0)
	case "get_dinner_history":
		return s.rows(ctx, sheets.DinnerHistoryWorksheet, sheets.DinnerHistoryLimit)
	case "search_recipes":
		var args searchArgs
		if len(arguments) > 0 {
			if err := json.Unmarshal(arguments, &args); err != nil {
				return nil, err
			}
		}
		rows, err := s.rows(ctx, sheets.RecipesWorksheet, 0)
		if err != nil {
			return nil, err
		}
		return filterRecipes(rows, args), nil
	default:
		return nil, errUnknownTool
	}
}

var errUnknownTool = &toolError{"unknown tool"}

type toolError struct{ msg string }

func (e *toolError) Error() string { return e.msg }

// filterRecipes keeps rows whose season/preference columns contain the
// requested values. Empty filters match everything; a row with no
// matching column is excluded only when a filter for it is set.
func filterRecipes(rows []sheets.Row, args searchArgs) []sheets.Row {
	match := func(row sheets.Row, column, want string) bool {
		if want == "" {
			return true
		}
		for name, value := range row {
			if strings.Contains(strings.ToLower(name), column) {
				return strings.Contains(strings.ToLower(value), strings.ToLower(want))
			}
		}
		return false
	}

	out := make([]sheets.Row, 0, len(rows))
	for _, row := range rows {
		if match(row, "season", args.Season) && match(row, "preference", args.Preference) {
			out = append(out, row)
		}
	}
	return out
}

// =============================================================================
// HTTP Handlers
// =============================================================================

// errorKind names the failure class for tool error responses.
func errorKind(err error) string {
	var te *toolError
	if errors.As(err, &te) {
		return "tool_error"
	}
	return "upstream_error"
}

// handleMCP serves the MCP endpoint. Malformed requests and unknown
// methods answer 400; tool failures answer 500 with the error type.
func (s *Server) handleMCP(c *gin.Context) {
	var req mcpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, mcpResponse{JSONRPC: "2.0",
			Error: &mcpError{Code: codeInvalidRequest, Message: "invalid request body"}})
		return
	}

	switch req.Method {
	case "tools/list":
		c.JSON(http.StatusOK, mcpResponse{JSONRPC: "2.0", ID: req.ID,
			Result: gin.H{"tools": toolCatalog()}})

	case "tools/call":
		rows, err := s.callTool(c.Request.Context(), req.Params.Name, req.Params.Arguments)
		if err != nil {
			slog.Error("Tool call failed", "tool", req.Params.Name, "error", err)
			c.JSON(http.StatusInternalServerError, mcpResponse{JSONRPC: "2.0", ID: req.ID,
				Error: &mcpError{Code: codeInternal, Message: err.Error(), Type: errorKind(err)}})
			return
		}
		payload, err := json.Marshal(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, mcpResponse{JSONRPC: "2.0", ID: req.ID,
				Error: &mcpError{Code: codeInternal, Message: "failed to encode rows", Type: "encoding_error"}})
			return
		}
		c.JSON(http.StatusOK, mcpResponse{JSONRPC: "2.0", ID: req.ID,
			Result: callResult{Content: []textContent{{Type: "text", Text: string(payload)}}}})

	default:
		c.JSON(http.StatusBadRequest, mcpResponse{JSONRPC: "2.0", ID: req.ID,
			Error: &mcpError{Code: codeUnknownMethod, Message: "unknown method"}})
	}
}

func setupRouter(server *Server) *gin.Engine {
	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "aleutian-toolserver"})
	})
	router.POST("/mcp", server.handleMCP)
	return router
}

func main() {
	lg := logging.New(logging.Config{
		Service: "toolserver",
		LogDir:  os.Getenv("TOOLSERVER_LOG_DIR"),
		JSON:    true,
	})
	defer lg.Close()
	slog.SetDefault(lg.Slog())

	if envcfg.IsLocal() {
		envcfg.LoadDotenv()
	}

	client, err := sheets.NewClient(context.Background())
	if err != nil {
		slog.Error("Failed to initialize the Sheets client", "error", err)
		os.Exit(1)
	}

	server := NewServer(client, envcfg.Duration("TOOLSERVER_CACHE_TTL", time.Minute))
	router := setupRouter(server)

	port := os.Getenv("TOOLSERVER_PORT")
	if port == "" {
		port = "12310"
	}
	slog.Info("Starting toolserver", "port", port)
	if err := router.Run(":" + port); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
