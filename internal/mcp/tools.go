// Package mcp exposes the knowledge base to LLM agents as Model Context
// Protocol tools served over stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"crerag/internal/listing"
	"crerag/internal/service"
)

// Analyzer filters and summarizes the property dataset.
type Analyzer interface {
	Analyze(ctx context.Context, query string, limit int) listing.Analysis
	Stats() listing.PortfolioStats
}

// NewServer creates an MCP server with every knowledge-base tool registered.
// analyzer may be nil, in which case the portfolio tools are left out.
func NewServer(version string, kb service.Knowledge, analyzer Analyzer, logger *zap.Logger) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer("crerag knowledge base", version)
	RegisterTools(server, kb, analyzer, logger)
	return server
}

// RegisterTools registers the knowledge-base tools with server, plus the
// portfolio tools when analyzer is set.
func RegisterTools(server *mcpserver.MCPServer, kb service.Knowledge, analyzer Analyzer, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handlers{kb: kb, analyzer: analyzer, logger: logger}

	server.AddTool(mcp.Tool{
		Name:        "query_knowledge_base",
		Description: "Search the commercial real-estate knowledge base. Size and rent criteria in the query (e.g. 'above 15,000 SF', 'under $90 per SF') filter the results.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language search query",
				},
				"top_k": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of chunks to return (default: 3)",
					"default":     3,
				},
			},
			Required: []string{"query"},
		},
	}, h.Query)

	server.AddTool(mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents stored in the knowledge base with their chunk ranges.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.ListDocuments)

	server.AddTool(mcp.Tool{
		Name:        "add_documents",
		Description: "Add text chunks to the knowledge base. When source_filename is given the chunks are recorded as one document.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"documents": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Text chunks to add",
				},
				"source_filename": map[string]interface{}{
					"type":        "string",
					"description": "Optional name of the source the chunks came from",
				},
			},
			Required: []string{"documents"},
		},
	}, h.AddDocuments)

	server.AddTool(mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and all of its chunks by id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "number",
					"description": "Document id as returned by list_documents",
				},
			},
			Required: []string{"id"},
		},
	}, h.DeleteDocument)

	server.AddTool(mcp.Tool{
		Name:        "clear_knowledge_base",
		Description: "Remove every chunk and document from the knowledge base.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.Clear)

	server.AddTool(mcp.Tool{
		Name:        "knowledge_base_stats",
		Description: "Report chunk, document and vocabulary counts.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.Stats)

	if analyzer == nil {
		return h
	}

	server.AddTool(mcp.Tool{
		Name:        "analyze_portfolio",
		Description: "Filter the property listings by size, rent per SF per year or 3-year GCI described in natural language, and summarize the matches.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Question such as 'suites over 10,000 SF under $90 per SF'",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum matches to return (default: 20)",
					"default":     defaultAnalyzeLimit,
				},
			},
			Required: []string{"query"},
		},
	}, h.AnalyzePortfolio)

	server.AddTool(mcp.Tool{
		Name:        "portfolio_stats",
		Description: "Report property count, averages and size and rent ranges for the listings dataset.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.PortfolioStats)

	return h
}
