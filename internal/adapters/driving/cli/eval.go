package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mitiak/raggy/internal/eval"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Measure answer quality",
}

var evalRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a question set and print a JSON report",
	Long: `Run asks every question in a JSONL dataset and reports retrieval hit rate,
citation correctness and the "I don't know" rate on unanswerable questions.

With --ingest-fixtures the JSONL fixture documents are ingested first.`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

var (
	evalDataset        string
	evalFixtures       string
	evalIngestFixtures bool
	evalLimit          int
	evalTopK           int
	evalConcurrency    int
)

func init() {
	evalRunCmd.Flags().StringVar(&evalDataset, "dataset", "", "questions JSONL file")
	evalRunCmd.Flags().StringVar(&evalFixtures, "fixtures", "", "fixture documents JSONL file")
	evalRunCmd.Flags().BoolVar(&evalIngestFixtures, "ingest-fixtures", false, "ingest --fixtures before asking")
	evalRunCmd.Flags().IntVar(&evalLimit, "limit", 0, "ask at most N questions (0 = all)")
	evalRunCmd.Flags().IntVar(&evalTopK, "top-k", eval.DefaultTopK, "top_k sent with every question")
	evalRunCmd.Flags().IntVar(&evalConcurrency, "concurrency", 1, "questions asked in parallel")
	_ = evalRunCmd.MarkFlagRequired("dataset")

	evalCmd.AddCommand(evalRunCmd)
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, _ []string) error {
	if ingestService == nil || answerService == nil || chunkReader == nil {
		return errors.New("services not configured")
	}
	if evalIngestFixtures && evalFixtures == "" {
		return errors.New("--ingest-fixtures requires --fixtures")
	}

	runner := eval.NewRunner(ingestService, answerService, chunkReader,
		eval.WithTopK(evalTopK),
		eval.WithConcurrency(evalConcurrency),
	)

	report, err := runner.Run(cmd.Context(), eval.Config{
		DatasetPath:    evalDataset,
		FixturePath:    evalFixtures,
		IngestFixtures: evalIngestFixtures,
		Limit:          evalLimit,
	})
	if err != nil {
		return fmt.Errorf("eval failed: %w", err)
	}
	return printJSON(cmd, report)
}
