package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docrag-mcp/internal/retriever"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32001 // Another indexing operation is already running
	ErrorCodeEmptyQuery         = -32002 // Query parameter is empty
)

// handleEnsureIndex handles the ensure_index tool invocation
func (s *Server) handleEnsureIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.retriever.EnsureIndex(ctx)
	if err != nil {
		if errors.Is(err, retriever.ErrIndexBusy) {
			return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":           true,
		"files_scanned":     stats.FilesScanned,
		"files_indexed":     stats.FilesIndexed,
		"files_skipped":     stats.FilesSkipped,
		"chunks_written":    stats.ChunksWritten,
		"embeddings_cached": stats.EmbeddingsCached,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRetrieve handles the retrieve tool invocation
func (s *Server) handleRetrieve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", 0)
	if topK < 0 || topK > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 100", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	opts := retriever.Options{
		TopK:          topK,
		MaxChars:      getIntDefault(args, "max_chars", 0),
		LexicalLimit:  getIntDefault(args, "lexical_limit", 0),
		SemanticLimit: getIntDefault(args, "semantic_limit", 0),
	}

	blob, hits, err := s.retriever.Retrieve(ctx, query, opts)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	hitList := make([]map[string]interface{}, 0, len(hits))
	for _, h := range hits {
		hitList = append(hitList, map[string]interface{}{
			"chunk_id":       h.ChunkID,
			"source_file":    h.SourceFile,
			"section_title":  h.SectionTitle,
			"lexical_score":  h.LexicalScore,
			"semantic_score": h.SemanticScore,
			"final_score":    h.FinalScore,
		})
	}

	response := map[string]interface{}{
		"context": blob,
		"hits":    hitList,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.retriever.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"corpus_dir": status.CorpusDir,
		"db_path":    status.DBPath,
		"statistics": map[string]interface{}{
			"sources_count":    status.Sources,
			"chunks_count":     status.Chunks,
			"embeddings_count": status.Embeddings,
			"index_size_mb":    fmt.Sprintf("%.2f", status.SizeMB),
		},
		"semantic": map[string]interface{}{
			"enabled": status.Semantic,
			"model":   status.EmbeddingModel,
		},
		"health": map[string]interface{}{
			"database_accessible": status.DatabaseAccessible,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
