package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mitiak/raggy/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from ingested documents",
	Long: `Ask answers strictly from stored text and cites the chunks used.
When nothing relevant is found the answer is "I don't know".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askTopK    int
	askJSON    bool
	askFilters filterFlags
)

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "n", 5, "number of chunks to consider")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer as JSON")
	askFilters.register(askCmd)
	rootCmd.AddCommand(askCmd)
}

type citationJSON struct {
	DocID   string  `json:"doc_id"`
	ChunkID string  `json:"chunk_id"`
	Title   string  `json:"title"`
	URL     string  `json:"url,omitempty"`
	Score   float64 `json:"score"`
}

type answerJSON struct {
	Answer      string              `json:"answer"`
	Citations   []citationJSON      `json:"citations"`
	UsedFilters domain.FilterParams `json:"used_filters"`
	Confidence  float64             `json:"confidence"`
	RetrieveMs  float64             `json:"retrieve_ms"`
	GenMs       float64             `json:"gen_ms"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	query := strings.Join(args, " ")
	filters, err := askFilters.filters()
	if err != nil {
		return err
	}

	answer, err := answerService.Answer(cmd.Context(), query, askTopK, filters)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		out := answerJSON{
			Answer:      answer.Text,
			Citations:   make([]citationJSON, len(answer.Citations)),
			UsedFilters: domain.FilterParamsFrom(answer.Filters),
			Confidence:  answer.Confidence,
			RetrieveMs:  answer.RetrieveMs,
			GenMs:       answer.GenMs,
		}
		for i, c := range answer.Citations {
			out.Citations[i] = citationJSON{
				DocID:   c.DocumentID,
				ChunkID: c.ChunkID,
				Title:   c.Title,
				URL:     c.URL,
				Score:   c.Score,
			}
		}
		return printJSON(cmd, out)
	}

	cmd.Println(answer.Text)
	if answer.IsUnknown() {
		return nil
	}

	cmd.Printf("\nConfidence: %.2f\n", answer.Confidence)
	cmd.Println("Sources:")
	for i, c := range answer.Citations {
		cmd.Printf("  [%d] %s (score: %.3f)\n", i+1, c.Title, c.Score)
		if c.URL != "" {
			cmd.Printf("      %s\n", c.URL)
		}
		cmd.Printf("      doc=%s chunk=%s\n", c.DocumentID, c.ChunkID)
	}
	return nil
}
