package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/mitiak/raggy/internal/adapters/driven/embedding/hash"
	"github.com/mitiak/raggy/internal/adapters/driven/storage/memory"
	"github.com/mitiak/raggy/internal/adapters/driven/vector/ivf"
	"github.com/mitiak/raggy/internal/connectors/filesystem"
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/services"
	"github.com/mitiak/raggy/internal/normalisers"
	"github.com/mitiak/raggy/internal/postprocessors"
)

const testDims = 64

// setupTestServices injects a fully in-memory service graph and returns a
// function restoring the previous globals.
func setupTestServices(t *testing.T) func() {
	t.Helper()

	index, err := ivf.New(testDims)
	require.NoError(t, err)
	docs := memory.NewDocumentStore(index)
	jobs := memory.NewIngestJobStore()
	embedder := hash.NewEmbeddingService(testDims)

	pipeline, err := postprocessors.NewDefaultPipeline(domain.ChunkingSettings{WindowTokens: 32, OverlapRatio: 0.25})
	require.NoError(t, err)

	ingest := services.NewIngestService(docs, pipeline, embedder)
	search := services.NewSearchService(docs, embedder)
	settings := services.NewSettingsService(memory.NewConfigStore(map[string]any{
		services.KeyEmbedDimensions: testDims,
	}))

	prevInjected, prevInfo := servicesInjected, storeInfo

	settingsService = settings
	ingestService = ingest
	directoryService = services.NewDirectoryIngestService(
		filesystem.NewFactory(), normalisers.NewDefaultRegistry(), ingest, jobs)
	searchService = search
	answerService = services.NewAnswerService(search)
	documentService = services.NewDocumentService(docs, jobs)
	embeddingService = embedder
	chunkReader = docs
	storeInfo = &storeDetails{ConfigPath: "memory", Vectors: index.Len}
	servicesInjected = true

	return func() {
		settingsService = nil
		ingestService = nil
		directoryService = nil
		searchService = nil
		answerService = nil
		documentService = nil
		embeddingService = nil
		chunkReader = nil
		storeInfo = prevInfo
		servicesInjected = prevInjected
	}
}

// executeCommand runs the root command with args and returns combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCommandWithInput(t, "", args...)
}

func executeCommandWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default so tests do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if s, ok := f.Value.(pflag.SliceValue); ok {
			_ = s.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// ingestTestDoc stores a document through the injected ingest service.
func ingestTestDoc(t *testing.T, title, content string, meta map[string]any) *domain.Document {
	t.Helper()
	doc, err := ingestService.Ingest(context.Background(), domain.IngestRequest{
		SourceKind:     domain.SourceKindMarkdown,
		SourceLocation: "/docs/" + strings.ReplaceAll(strings.ToLower(title), " ", "-") + ".md",
		Title:          title,
		Content:        content,
		Metadata:       meta,
	})
	require.NoError(t, err)
	return doc
}
