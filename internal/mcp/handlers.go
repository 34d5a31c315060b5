package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"crerag/internal/domain"
	"crerag/internal/service"
)

const defaultAnalyzeLimit = 20

// Handlers implements the MCP tools on top of a knowledge base.
type Handlers struct {
	kb       service.Knowledge
	analyzer Analyzer
	logger   *zap.Logger
}

// Query handles the query_knowledge_base tool.
func (h *Handlers) Query(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	topK := request.GetInt("top_k", 0)

	results := h.kb.Search(ctx, query, topK)
	return jsonResult(map[string]interface{}{
		"query":   query,
		"results": results,
	})
}

// ListDocuments handles the list_documents tool.
func (h *Handlers) ListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{
		"documents": h.kb.ListMetadata(),
	})
}

// AddDocuments handles the add_documents tool.
func (h *Handlers) AddDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chunks, err := request.RequireStringSlice("documents")
	if err != nil {
		return mcp.NewToolResultError("documents argument is required and must be an array of strings"), nil
	}
	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	source := request.GetString("source_filename", "")

	md, err := h.kb.Add(ctx, chunks, source, size)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add documents: %v", err)), nil
	}
	h.logger.Info("documents added via mcp", zap.Int("chunks", len(chunks)), zap.String("source", source))
	return jsonResult(map[string]interface{}{
		"added":    len(chunks),
		"document": md,
	})
}

// DeleteDocument handles the delete_document tool.
func (h *Handlers) DeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required and must be a number"), nil
	}
	if err := h.kb.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("document %d not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete document: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"deleted": id,
	})
}

// Clear handles the clear_knowledge_base tool.
func (h *Handlers) Clear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.kb.Clear(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear knowledge base: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"success": true,
	})
}

// Stats handles the knowledge_base_stats tool.
func (h *Handlers) Stats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.kb.Stats())
}

// AnalyzePortfolio handles the analyze_portfolio tool.
func (h *Handlers) AnalyzePortfolio(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.analyzer == nil {
		return mcp.NewToolResultError("property dataset is not loaded"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	limit := request.GetInt("limit", defaultAnalyzeLimit)
	return jsonResult(h.analyzer.Analyze(ctx, query, limit))
}

// PortfolioStats handles the portfolio_stats tool.
func (h *Handlers) PortfolioStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.analyzer == nil {
		return mcp.NewToolResultError("property dataset is not loaded"), nil
	}
	return jsonResult(h.analyzer.Stats())
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
