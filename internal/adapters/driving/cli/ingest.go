package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mitiak/raggy/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a document",
	Long: `Ingest a single document from --file, --content or standard input.

Identical content from the same source location is stored once; re-ingesting
it returns the existing document.`,
	Example: `  raggy ingest --file notes.md
  raggy ingest --kind url --url https://example.com/faq --title FAQ < faq.txt
  raggy ingest --title "Release notes" --meta product=raggy --meta version=1.2 --content "..."`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

var ingestDirCmd = &cobra.Command{
	Use:   "dir [path]",
	Short: "Ingest every supported file in a directory",
	Long: `Walk a directory tree and ingest markdown and plain text files.
Hidden files and directories are skipped. With --watch, changed files are
re-ingested until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestDir,
}

// Ingest flags.
var (
	ingestTitle    string
	ingestKind     string
	ingestURL      string
	ingestFile     string
	ingestContent  string
	ingestMeta     []string
	ingestFetched  string
	ingestJSON     bool
	ingestDirWatch bool
	ingestDirJSON  bool
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "document title (default: file name)")
	ingestCmd.Flags().StringVar(&ingestKind, "kind", "md", "source kind: md or url")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "source location recorded with the document")
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "read content from a file")
	ingestCmd.Flags().StringVar(&ingestContent, "content", "", "document content")
	ingestCmd.Flags().StringArrayVar(&ingestMeta, "meta", nil, "metadata KEY=VALUE (repeatable)")
	ingestCmd.Flags().StringVar(&ingestFetched, "fetched-at", "", "when the content was fetched (YYYY-MM-DD or RFC 3339)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print the stored document as JSON")
	ingestCmd.MarkFlagsMutuallyExclusive("file", "content")

	ingestDirCmd.Flags().BoolVarP(&ingestDirWatch, "watch", "w", false, "keep watching for changes after the initial pass")
	ingestDirCmd.Flags().BoolVar(&ingestDirJSON, "json", false, "print the ingest job as JSON")

	ingestCmd.AddCommand(ingestDirCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	req, err := buildIngestRequest(cmd)
	if err != nil {
		return err
	}

	doc, err := ingestService.Ingest(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to ingest: %w", err)
	}

	if ingestJSON {
		return printJSON(cmd, ingestResult{
			DocumentID:  doc.ID,
			Title:       doc.Title,
			SourceKind:  string(doc.SourceKind),
			Source:      doc.SourceLocation,
			ContentHash: doc.ContentHash,
			Chunks:      len(doc.Chunks),
		})
	}

	cmd.Printf("Ingested %s\n", doc.ID)
	cmd.Printf("  Title:   %s\n", doc.Title)
	if doc.SourceLocation != "" {
		cmd.Printf("  Source:  %s\n", doc.SourceLocation)
	}
	cmd.Printf("  Chunks:  %d\n", len(doc.Chunks))
	return nil
}

func runIngestDir(cmd *cobra.Command, args []string) error {
	if directoryService == nil {
		return errors.New("directory ingest service not configured")
	}

	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	ctx := cmd.Context()

	job, err := directoryService.IngestDirectory(ctx, root)
	if job != nil {
		if ingestDirJSON {
			if jerr := printJSON(cmd, jobView(job)); jerr != nil {
				return jerr
			}
		} else {
			printJob(cmd, job)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to ingest directory: %w", err)
	}

	if !ingestDirWatch {
		return nil
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", root)
	err = directoryService.Watch(ctx, root, func(doc *domain.Document) {
		cmd.Printf("  %s  %s (%d chunks)\n", doc.ID, doc.Title, len(doc.Chunks))
	})
	if err != nil && !errors.Is(err, ctx.Err()) {
		return fmt.Errorf("watch stopped: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

type ingestResult struct {
	DocumentID  string `json:"document_id"`
	Title       string `json:"title"`
	SourceKind  string `json:"source_kind"`
	Source      string `json:"source,omitempty"`
	ContentHash string `json:"content_hash"`
	Chunks      int    `json:"chunks"`
}

func buildIngestRequest(cmd *cobra.Command) (domain.IngestRequest, error) {
	kind, err := domain.ParseSourceKind(ingestKind)
	if err != nil {
		return domain.IngestRequest{}, err
	}

	req := domain.IngestRequest{
		SourceKind:     kind,
		SourceLocation: ingestURL,
		Title:          ingestTitle,
		Content:        ingestContent,
	}

	switch {
	case ingestFile != "":
		data, err := os.ReadFile(ingestFile)
		if err != nil {
			return domain.IngestRequest{}, fmt.Errorf("failed to read %s: %w", ingestFile, err)
		}
		req.Content = string(data)
		if req.SourceLocation == "" {
			if abs, err := filepath.Abs(ingestFile); err == nil {
				req.SourceLocation = abs
			}
		}
		if req.Title == "" {
			base := filepath.Base(ingestFile)
			req.Title = strings.TrimSuffix(base, filepath.Ext(base))
		}
	case ingestContent == "":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return domain.IngestRequest{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		req.Content = string(data)
	}

	if kind == domain.SourceKindURL && req.SourceLocation == "" {
		return domain.IngestRequest{}, fmt.Errorf("%w: --url is required for kind url", domain.ErrInvalidInput)
	}

	meta, err := parsePairs(ingestMeta, "--meta")
	if err != nil {
		return domain.IngestRequest{}, err
	}
	if len(meta) > 0 {
		req.Metadata = make(map[string]any, len(meta))
		for k, v := range meta {
			req.Metadata[k] = v
		}
	}

	if ingestFetched != "" {
		fetched, err := domain.FilterParams{DateFrom: ingestFetched}.ToFilters()
		if err != nil {
			return domain.IngestRequest{}, fmt.Errorf("%w: --fetched-at: %v", domain.ErrInvalidInput, err)
		}
		req.FetchedAt = *fetched.DateFrom
	}
	return req, nil
}

type jobJSON struct {
	ID            string     `json:"id"`
	SourceKind    string     `json:"source_kind"`
	Source        string     `json:"source"`
	Status        string     `json:"status"`
	DocsProcessed int        `json:"docs_processed"`
	ChunksCreated int        `json:"chunks_created"`
	Error         string     `json:"error,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func jobView(j *domain.IngestJob) jobJSON {
	return jobJSON{
		ID:            j.ID,
		SourceKind:    string(j.SourceKind),
		Source:        j.Source,
		Status:        string(j.Status),
		DocsProcessed: j.DocsProcessed,
		ChunksCreated: j.ChunksCreated,
		Error:         j.ErrorMessage,
		StartedAt:     j.StartedAt,
		FinishedAt:    j.FinishedAt,
		CreatedAt:     j.CreatedAt,
	}
}

func printJob(cmd *cobra.Command, j *domain.IngestJob) {
	cmd.Printf("Job %s: %s\n", j.ID, j.Status)
	cmd.Printf("  Source:     %s\n", j.Source)
	cmd.Printf("  Documents:  %d\n", j.DocsProcessed)
	cmd.Printf("  Chunks:     %d\n", j.ChunksCreated)
	if j.StartedAt != nil && j.FinishedAt != nil {
		cmd.Printf("  Duration:   %s\n", j.FinishedAt.Sub(*j.StartedAt).Round(time.Millisecond))
	}
	if j.ErrorMessage != "" {
		cmd.Printf("  Error:      %s\n", j.ErrorMessage)
	}
}
