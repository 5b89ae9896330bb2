// Package mcpserver exposes folder indexing and search as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/tool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// IndexArgs defines the input parameters for the folder_index tool.
type IndexArgs struct {
	Path string `json:"path" jsonschema:"Absolute path of the folder to index. Replaces any existing index"`
}

// SearchArgs defines the input parameters for the folder_search tool.
type SearchArgs struct {
	Query string `json:"query" jsonschema:"Natural language description of the content to find"`
	TopK  int    `json:"topK,omitempty" jsonschema:"Number of passages to return (default 5)"`
}

// StatusArgs defines the input parameters for the folder_status tool (none required).
type StatusArgs struct{}

// ClearArgs defines the input parameters for the folder_clear tool (none required).
type ClearArgs struct{}

// Handlers holds the dependencies shared by all folder tools.
type Handlers struct {
	Tool   *tool.Tool
	Logger *zap.Logger
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(format string, a ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, a...)}},
		IsError: true,
	}
}

// HandleIndex processes a folder_index request.
func (h *Handlers) HandleIndex(ctx context.Context, req *mcp.CallToolRequest, args IndexArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		h.Logger.Warn("folder_index called without path")
		return errorResult("Error: path parameter is required"), nil, nil
	}
	start := time.Now()
	summary, err := h.Tool.IndexPath(ctx, args.Path)
	if err != nil {
		h.Logger.Error("folder_index failed", zap.String("path", args.Path), zap.Error(err))
		return errorResult("Index error: %v", err), nil, nil
	}
	h.Logger.Info("folder_index",
		zap.String("path", args.Path),
		zap.Int("files", summary.FileCount),
		zap.Int("chunks", summary.ChunkCount),
		zap.Duration("elapsed", time.Since(start)),
	)
	return textResult(formatSummary(summary, args.Path)), nil, nil
}

// HandleSearch processes a folder_search request.
func (h *Handlers) HandleSearch(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	resp, err := h.Tool.Search(ctx, args.Query, args.TopK)
	if err != nil {
		h.Logger.Error("folder_search failed", zap.String("query", args.Query), zap.Error(err))
		return errorResult("Search error: %v", err), nil, nil
	}
	h.Logger.Info("folder_search",
		zap.String("query", args.Query),
		zap.Int("results", resp.Total),
		zap.Int64("query_time_ms", resp.QueryTime),
	)
	return textResult(tool.FormatResults(resp, 0)), nil, nil
}

// HandleStatus processes a folder_status request.
func (h *Handlers) HandleStatus(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	return textResult(tool.FormatStats(h.Tool.IndexStats())), nil, nil
}

// HandleClear processes a folder_clear request.
func (h *Handlers) HandleClear(ctx context.Context, req *mcp.CallToolRequest, args ClearArgs) (*mcp.CallToolResult, any, error) {
	h.Tool.ClearIndex()
	return textResult("Index cleared."), nil, nil
}

func formatSummary(s *models.IndexSummary, path string) string {
	out := fmt.Sprintf("Indexed %s: %d chunks from %d files", path, s.ChunkCount, s.FileCount)
	if s.SkippedFiles > 0 {
		out += fmt.Sprintf(" (%d unreadable entries skipped)", s.SkippedFiles)
	}
	if s.Truncated {
		out += ". Chunk limit reached; later files were not indexed"
	}
	return out + "."
}
