package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mitiak/raggy/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Manage ingested documents",
	Long:    `List, view, or delete ingested documents and inspect ingest jobs.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent ingest jobs",
	Args:  cobra.NoArgs,
	RunE:  runDocumentJobs,
}

var documentStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document, chunk and job counts",
	Args:  cobra.NoArgs,
	RunE:  runDocumentStats,
}

// Document flags.
var (
	documentLimit   int
	documentOffset  int
	documentChunks  bool
	documentJSON    bool
	documentJobsMax int
)

func init() {
	documentListCmd.Flags().IntVar(&documentLimit, "limit", 20, "maximum number of documents")
	documentListCmd.Flags().IntVar(&documentOffset, "offset", 0, "number of documents to skip")
	documentGetCmd.Flags().BoolVar(&documentChunks, "chunks", false, "print chunk text")
	documentJobsCmd.Flags().IntVar(&documentJobsMax, "limit", 10, "maximum number of jobs")
	documentCmd.PersistentFlags().BoolVar(&documentJSON, "json", false, "print output as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentJobsCmd)
	documentCmd.AddCommand(documentStatsCmd)
	rootCmd.AddCommand(documentCmd)
}

type documentJSONView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	SourceKind  string         `json:"source_kind"`
	Source      string         `json:"source,omitempty"`
	ContentHash string         `json:"content_hash"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	FetchedAt   time.Time      `json:"fetched_at"`
	CreatedAt   time.Time      `json:"created_at"`
	Chunks      []chunkJSON    `json:"chunks,omitempty"`
}

type chunkJSON struct {
	ID         string `json:"id"`
	Index      int    `json:"index"`
	TokenCount int    `json:"token_count"`
	Text       string `json:"text"`
}

func documentView(d *domain.Document) documentJSONView {
	v := documentJSONView{
		ID:          d.ID,
		Title:       d.Title,
		SourceKind:  string(d.SourceKind),
		Source:      d.SourceLocation,
		ContentHash: d.ContentHash,
		Metadata:    d.Metadata,
		FetchedAt:   d.FetchedAt,
		CreatedAt:   d.CreatedAt,
	}
	for _, c := range d.Chunks {
		v.Chunks = append(v.Chunks, chunkJSON{ID: c.ID, Index: c.Index, TokenCount: c.TokenCount, Text: c.Text})
	}
	return v
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context(), documentLimit, documentOffset)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentJSON {
		out := make([]documentJSONView, len(docs))
		for i := range docs {
			out[i] = documentView(&docs[i])
		}
		return printJSON(cmd, out)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	for i := range docs {
		cmd.Printf("%s  %s\n", docs[i].ID, docs[i].Title)
		if docs[i].SourceLocation != "" {
			cmd.Printf("    %s\n", docs[i].SourceLocation)
		}
	}
	cmd.Printf("\nShowing %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if documentJSON {
		return printJSON(cmd, documentView(doc))
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:    %s\n", doc.Title)
	cmd.Printf("  Kind:     %s\n", doc.SourceKind)
	if doc.SourceLocation != "" {
		cmd.Printf("  Source:   %s\n", doc.SourceLocation)
	}
	cmd.Printf("  Hash:     %s\n", doc.ContentHash)
	cmd.Printf("  Fetched:  %s\n", doc.FetchedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Chunks:   %d\n", len(doc.Chunks))

	if len(doc.Metadata) > 0 {
		cmd.Println("\n  Metadata:")
		for k, v := range doc.Metadata {
			cmd.Printf("    %s: %v\n", k, v)
		}
	}

	if documentChunks {
		for _, c := range doc.Chunks {
			cmd.Printf("\n--- chunk %d (%s, %d tokens) ---\n", c.Index, c.ID, c.TokenCount)
			cmd.Println(c.Text)
		}
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if err := documentService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Deleted document: %s\n", args[0])
	return nil
}

func runDocumentJobs(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	jobs, err := documentService.Jobs(cmd.Context(), documentJobsMax)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	if documentJSON {
		out := make([]jobJSON, len(jobs))
		for i := range jobs {
			out[i] = jobView(&jobs[i])
		}
		return printJSON(cmd, out)
	}

	if len(jobs) == 0 {
		cmd.Println("No ingest jobs found.")
		return nil
	}
	for i := range jobs {
		printJob(cmd, &jobs[i])
		cmd.Println()
	}
	return nil
}

func runDocumentStats(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	stats, err := documentService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if documentJSON {
		return printJSON(cmd, map[string]int{
			"documents": stats.Documents,
			"chunks":    stats.Chunks,
			"jobs":      stats.Jobs,
		})
	}

	cmd.Printf("Documents:  %d\n", stats.Documents)
	cmd.Printf("Chunks:     %d\n", stats.Chunks)
	cmd.Printf("Jobs:       %d\n", stats.Jobs)
	return nil
}
