package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ensureIndexTool returns the tool definition for ensure_index
func ensureIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ensure_index",
		Description: "Synchronize the retrieval index with the markdown corpus directory. Unchanged files are skipped; changed files are re-chunked.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// retrieveTool returns the tool definition for retrieve
func retrieveTool() mcp.Tool {
	return mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve corpus chunks relevant to a query, fusing keyword and semantic signals, and return a prompt-ready context string plus scored hits",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free-text query (natural language or keywords)",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of hits to return",
					"default":     8,
					"minimum":     1,
					"maximum":     100,
				},
				"max_chars": map[string]interface{}{
					"type":        "integer",
					"description": "Character budget for the packed context string",
					"default":     4000,
					"minimum":     1,
				},
				"lexical_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum candidates from the keyword signal",
					"default":     100,
					"minimum":     1,
				},
				"semantic_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum candidates from the semantic signal",
					"default":     100,
					"minimum":     1,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics: source files, chunks, cached embeddings, database size, and whether the semantic signal is enabled",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
