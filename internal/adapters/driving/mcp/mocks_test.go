package mcp

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// mockRagService is a mock implementation of driving.RagService.
type mockRagService struct {
	record     *domain.AnswerRecord
	result     *domain.IngestResult
	err        error
	lastQuery  domain.QueryRequest
	lastIngest domain.IngestRequest
}

func (m *mockRagService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	m.lastIngest = req
	return m.result, m.err
}

func (m *mockRagService) Query(_ context.Context, req domain.QueryRequest) (*domain.AnswerRecord, error) {
	m.lastQuery = req
	return m.record, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	content   string
	err       error
	deleted   string
	listUser  string
}

func (m *mockDocumentService) List(_ context.Context, userID string) ([]domain.Document, error) {
	m.listUser = userID
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockDocumentService) GetContent(_ context.Context, _ string) (string, error) {
	return m.content, m.err
}

func (m *mockDocumentService) Summarise(_ context.Context, _ string) (string, error) {
	return "", m.err
}

func (m *mockDocumentService) Reprocess(_ context.Context, _ string) (*domain.IngestResult, error) {
	return nil, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, documentID string) error {
	m.deleted = documentID
	return m.err
}
