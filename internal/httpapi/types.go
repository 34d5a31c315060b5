package httpapi

import (
	"crerag/internal/chat"
	"crerag/internal/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// QueryResponse carries ranked chunks.
type QueryResponse struct {
	Results []domain.SearchResult `json:"results"`
}

// AddDocumentsRequest is the body of POST /add-documents.
type AddDocumentsRequest struct {
	Documents      []string `json:"documents"`
	SourceFilename string   `json:"source_filename,omitempty"`
}

// AddDocumentsResponse reports an add.
type AddDocumentsResponse struct {
	Message  string                   `json:"message"`
	Document *domain.DocumentMetadata `json:"document,omitempty"`
}

// DocumentsResponse lists document metadata.
type DocumentsResponse struct {
	Documents []domain.DocumentMetadata `json:"documents"`
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	UserID string `json:"user_id,omitempty"`
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
}

// SessionsResponse lists a user's chat sessions, most recent first.
type SessionsResponse struct {
	Sessions []chat.Session `json:"sessions"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
