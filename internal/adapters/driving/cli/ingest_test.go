package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func resetIngestFlags() {
	ingestUser = ""
	ingestContentType = ""
	ingestChunkSize = 0
	ingestChunkOverlap = 0
	ingestJSON = false
	for _, name := range []string{"chunk-size", "chunk-overlap"} {
		ingestCmd.Flags().Lookup(name).Changed = false
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [file...]", ingestCmd.Use)
	assert.Equal(t, "Ingest documents", ingestCmd.Short)
}

func TestIngestCmd_RequiresArgs(t *testing.T) {
	_, err := execute(t, nil, "ingest")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	old := ragService
	ragService = nil
	defer func() { ragService = old }()

	_, err := execute(t, nil, "ingest", "file.txt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rag service not configured")
}

func TestIngestCmd_IngestsFiles(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()
	rag := &mockRagService{}
	ragService = rag

	notes := writeFile(t, "notes.md", "# Meeting notes and decisions")
	short := writeFile(t, "tiny.txt", "hi")

	out, err := execute(t, nil, "ingest", "--user", "alice", notes, short)

	require.NoError(t, err)
	assert.Contains(t, out, "Ingested "+notes+" as doc-notes.md (2 chunks)")
	assert.Contains(t, out, "Ingested "+short+" as doc-tiny.txt (0 chunks)")
	assert.Contains(t, out, "Warning: no text extracted")

	require.Len(t, rag.ingestRequests, 2)
	assert.Equal(t, "notes.md", rag.ingestRequests[0].Filename)
	assert.Equal(t, "text/markdown", rag.ingestRequests[0].ContentType)
	assert.Equal(t, "alice", rag.ingestRequests[0].UserID)
	assert.Nil(t, rag.ingestRequests[0].Chunking)
}

func TestIngestCmd_ContentTypeAndChunkingFlags(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()
	rag := &mockRagService{}
	ragService = rag

	path := writeFile(t, "data.bin", "some plain text inside")

	_, err := execute(t, nil, "ingest", "-t", "text/plain", "--chunk-size", "400", "--chunk-overlap", "50", path)

	require.NoError(t, err)
	require.Len(t, rag.ingestRequests, 1)
	assert.Equal(t, "text/plain", rag.ingestRequests[0].ContentType)
	require.NotNil(t, rag.ingestRequests[0].Chunking)
	assert.Equal(t, 400, rag.ingestRequests[0].Chunking.Size)
	require.NotNil(t, rag.ingestRequests[0].Chunking.Overlap)
	assert.Equal(t, 50, *rag.ingestRequests[0].Chunking.Overlap)
}

func TestIngestCmd_ChunkSizeOnlyLeavesOverlapUnset(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()
	rag := &mockRagService{}
	ragService = rag

	path := writeFile(t, "notes.txt", "some plain text inside")

	_, err := execute(t, nil, "ingest", "--chunk-size", "800", path)

	require.NoError(t, err)
	require.Len(t, rag.ingestRequests, 1)
	require.NotNil(t, rag.ingestRequests[0].Chunking)
	assert.Equal(t, 800, rag.ingestRequests[0].Chunking.Size)
	assert.Nil(t, rag.ingestRequests[0].Chunking.Overlap)
}

func TestIngestCmd_ExplicitZeroOverlap(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()
	rag := &mockRagService{}
	ragService = rag

	path := writeFile(t, "notes.txt", "some plain text inside")

	_, err := execute(t, nil, "ingest", "--chunk-overlap", "0", path)

	require.NoError(t, err)
	require.Len(t, rag.ingestRequests, 1)
	require.NotNil(t, rag.ingestRequests[0].Chunking)
	assert.Zero(t, rag.ingestRequests[0].Chunking.Size)
	require.NotNil(t, rag.ingestRequests[0].Chunking.Overlap)
	assert.Equal(t, 0, *rag.ingestRequests[0].Chunking.Overlap)
}

func TestIngestCmd_RejectsInvalidChunkFlags(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	rag := &mockRagService{}
	ragService = rag
	path := writeFile(t, "notes.txt", "some plain text inside")

	for _, args := range [][]string{
		{"ingest", "--chunk-size", "0", path},
		{"ingest", "--chunk-overlap", "-1", path},
	} {
		_, err := execute(t, nil, args...)
		resetIngestFlags()
		assert.Error(t, err, "%v", args)
	}
	assert.Empty(t, rag.ingestRequests)
}

func TestIngestCmd_ReportsFailuresAndContinues(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()
	rag := &mockRagService{}
	ragService = rag

	good := writeFile(t, "good.txt", "plenty of useful content")

	out, err := execute(t, nil, "ingest", filepath.Join(t.TempDir(), "missing.txt"), good, t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 files failed to ingest")
	assert.Contains(t, out, "cannot read missing.txt")
	assert.Contains(t, out, "is a directory")
	assert.Contains(t, out, "Ingested "+good)
	assert.Len(t, rag.ingestRequests, 1)
}

func TestIngestCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()
	ragService = &mockRagService{
		ingestErr: domain.NewStageError(domain.StageParse, domain.ErrParse, "file is empty", nil),
	}

	path := writeFile(t, "empty.txt", "x")

	out, err := execute(t, nil, "ingest", path)

	require.Error(t, err)
	assert.Contains(t, out, "Failed "+path)
	assert.Contains(t, out, "file is empty")
}

func TestIngestCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()

	path := writeFile(t, "notes.md", "# Meeting notes and decisions")

	out, err := execute(t, nil, "ingest", "--json", path)

	require.NoError(t, err)
	var outcomes []ingestOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 1)
	assert.Equal(t, "doc-notes.md", outcomes[0].DocumentID)
	assert.Equal(t, 2, outcomes[0].ChunksIndexed)
	assert.Empty(t, outcomes[0].Error)
}
