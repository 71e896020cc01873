package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitiak/raggy/internal/core/domain"
)

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range documentCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "get", "delete", "jobs", "stats"}, names)
	assert.Contains(t, documentCmd.Aliases, "doc")
}

func TestDocumentGetCmd_RequiresExactlyOneArg(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := executeCommand(t, "document", "get")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestDocumentList(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := executeCommand(t, "document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents found.")

	doc := ingestTestDoc(t, "First", "first body", nil)
	ingestTestDoc(t, "Second", "second body", nil)

	out, err = executeCommand(t, "document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, doc.ID+"  First")
	assert.Contains(t, out, "Showing 2 documents")

	out, err = executeCommand(t, "doc", "list", "--limit", "1", "--json")
	require.NoError(t, err)
	var docs []documentJSONView
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	assert.Len(t, docs, 1)
}

func TestDocumentGet(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	doc := ingestTestDoc(t, "Guide", "guide body text", map[string]any{"product": "raggy"})

	out, err := executeCommand(t, "document", "get", doc.ID, "--chunks")
	require.NoError(t, err)
	assert.Contains(t, out, "Document: "+doc.ID)
	assert.Contains(t, out, "Title:    Guide")
	assert.Contains(t, out, "product: raggy")
	assert.Contains(t, out, "guide body text")

	out, err = executeCommand(t, "document", "get", doc.ID, "--json")
	require.NoError(t, err)
	var got documentJSONView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	require.Len(t, got.Chunks, 1)
	assert.Equal(t, doc.Chunks[0].ID, got.Chunks[0].ID)
}

func TestDocumentGet_NotFound(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := executeCommand(t, "document", "get", "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDocumentDelete(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	doc := ingestTestDoc(t, "Doomed", "doomed body", nil)

	out, err := executeCommand(t, "document", "delete", doc.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted document: "+doc.ID)

	_, err = documentService.Get(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = executeCommand(t, "document", "delete", doc.ID)
	assert.Error(t, err)
}

func TestDocumentStats(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	ingestTestDoc(t, "One", "one body", nil)

	out, err := executeCommand(t, "document", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:  1")
	assert.Contains(t, out, "Chunks:     1")

	out, err = executeCommand(t, "document", "stats", "--json")
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]int{"documents": 1, "chunks": 1, "jobs": 0}, got)
}

func TestDocumentJobs(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := executeCommand(t, "document", "jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "No ingest jobs found.")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("alpha"), 0o600))
	_, err = directoryService.IngestDirectory(context.Background(), dir)
	require.NoError(t, err)

	out, err = executeCommand(t, "document", "jobs", "--json")
	require.NoError(t, err)
	var jobs []jobJSON
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "success", jobs[0].Status)
	assert.Equal(t, dir, jobs[0].Source)
}

func TestDocument_NotConfigured(t *testing.T) {
	assert.EqualError(t, runDocumentList(documentListCmd, nil), "document service not configured")
	assert.EqualError(t, runDocumentStats(documentStatsCmd, nil), "document service not configured")
}
