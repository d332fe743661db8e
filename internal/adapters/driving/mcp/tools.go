package mcp

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Question   string `json:"question" jsonschema:"the question to answer from the ingested documents"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"number of excerpts to retrieve (default 5, at most 20)"`
	UserID     string `json:"user_id,omitempty" jsonschema:"restrict retrieval to this user's documents (default guest)"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"restrict retrieval to one document"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Answer  string               `json:"answer"`
	Sources []domain.SourceChunk `json:"sources"`
}

// IngestInput is the input schema for the ingest_file tool.
type IngestInput struct {
	Path        string `json:"path" jsonschema:"absolute path of a local file to ingest"`
	ContentType string `json:"content_type,omitempty" jsonschema:"MIME type; detected from the extension when empty"`
	UserID      string `json:"user_id,omitempty" jsonschema:"owner of the document (default guest)"`
}

// IngestOutput is the output schema for the ingest_file tool.
type IngestOutput struct {
	DocumentID    string   `json:"document_id"`
	ChunksIndexed int      `json:"chunks_indexed"`
	Warnings      []string `json:"warnings,omitempty"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"only list this user's documents; empty lists all"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentIDInput identifies a single document.
type DocumentIDInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document id"`
}

// DocumentOutput describes an ingested document.
type DocumentOutput struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	UserID      string `json:"user_id"`
	Status      string `json:"status"`
	StatusError string `json:"status_error,omitempty"`
	ChunkCount  int    `json:"chunk_count"`
	CreatedAt   string `json:"created_at"`
	URI         string `json:"uri"`
}

// DeleteOutput is the output schema for the delete_document tool.
type DeleteOutput struct {
	Deleted string `json:"deleted"`
}

// errNoDocumentService is returned by document tools when the server was
// built without a document service.
var errNoDocumentService = errors.New("document operations are not available")

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Answer a question from the ingested documents, citing the excerpts used",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_file",
		Description: "Parse, chunk, embed and index a local file",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List ingested documents, newest first",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Show the metadata and processing status of a document",
	}, s.handleGetDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document, its chunks and its stored bytes",
	}, s.handleDeleteDocument)
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	record, err := s.ports.Rag.Query(ctx, domain.QueryRequest{
		Text:       input.Question,
		TopK:       input.TopK,
		UserID:     input.UserID,
		DocumentID: input.DocumentID,
	})
	if err != nil {
		return nil, QueryOutput{}, err
	}

	sources := record.Sources
	if sources == nil {
		sources = []domain.SourceChunk{}
	}
	return nil, QueryOutput{Answer: record.Answer, Sources: sources}, nil
}

// handleIngest handles the ingest_file tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if input.Path == "" {
		return nil, IngestOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	content, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, IngestOutput{}, fmt.Errorf("%w: cannot read %s", domain.ErrInvalidInput, filepath.Base(input.Path))
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(input.Path))
	}

	result, err := s.ports.Rag.Ingest(ctx, domain.IngestRequest{
		Filename:    filepath.Base(input.Path),
		Content:     content,
		ContentType: contentType,
		UserID:      input.UserID,
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		DocumentID:    result.DocumentID,
		ChunksIndexed: result.ChunksIndexed,
		Warnings:      result.Warnings,
	}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Document == nil {
		return nil, ListDocumentsOutput{}, errNoDocumentService
	}

	docs, err := s.ports.Document.List(ctx, input.UserID)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = toDocumentOutput(&docs[i])
	}
	return nil, output, nil
}

// handleGetDocument handles the get_document tool invocation.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentIDInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if s.ports.Document == nil {
		return nil, DocumentOutput{}, errNoDocumentService
	}

	doc, err := s.ports.Document.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, toDocumentOutput(doc), nil
}

// handleDeleteDocument handles the delete_document tool invocation.
func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentIDInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	if s.ports.Document == nil {
		return nil, DeleteOutput{}, errNoDocumentService
	}

	if err := s.ports.Document.Delete(ctx, input.DocumentID); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{Deleted: input.DocumentID}, nil
}

func toDocumentOutput(doc *domain.Document) DocumentOutput {
	return DocumentOutput{
		ID:          doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		UserID:      doc.Owner(),
		Status:      string(doc.Status),
		StatusError: doc.StatusError,
		ChunkCount:  doc.ChunkCount,
		CreatedAt:   doc.CreatedAt.UTC().Format(time.RFC3339),
		URI:         documentURI(doc.ID),
	}
}
