package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mitiak/raggy/internal/core/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested chunks",
	Long: `Search returns the chunks most similar to the query, best first.
Filters narrow the candidates before ranking.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var (
	searchTopK    int
	searchJSON    bool
	searchFilters filterFlags
)

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
	searchFilters.register(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

type searchResultJSON struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	query := strings.Join(args, " ")
	filters, err := searchFilters.filters()
	if err != nil {
		return err
	}

	results, err := searchService.Search(cmd.Context(), query, searchTopK, filters)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		out := make([]searchResultJSON, len(results))
		for i, r := range results {
			out[i] = searchResultJSON{
				ChunkID:    r.Chunk.ID,
				DocumentID: r.Document.ID,
				Title:      r.Document.Title,
				URL:        r.Document.SourceLocation,
				Score:      r.Score,
				Content:    r.Chunk.Text,
			}
		}
		return printJSON(cmd, out)
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Found %d results for %q:\n\n", len(results), query)
	for i, r := range results {
		printCandidate(cmd, i+1, r)
	}
	return nil
}

func printCandidate(cmd *cobra.Command, rank int, c domain.Candidate) {
	cmd.Printf("%d. %s (score: %.3f)\n", rank, c.Document.Title, c.Score)
	if c.Document.SourceLocation != "" {
		cmd.Printf("   %s\n", c.Document.SourceLocation)
	}
	cmd.Printf("   %s\n", truncate(c.Chunk.Text, 160))
	cmd.Printf("   doc=%s chunk=%s\n\n", c.Document.ID, c.Chunk.ID)
}
