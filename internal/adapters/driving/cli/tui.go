package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mitiak/raggy/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal interface",
	Long: `Open a full-screen interface to ask questions, run similarity searches
and browse or delete ingested documents.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if searchService == nil || answerService == nil || documentService == nil {
		return errors.New("services not configured")
	}

	app, err := tui.NewApp(&tui.Ports{
		Search:   searchService,
		Answer:   answerService,
		Document: documentService,
	})
	if err != nil {
		return err
	}
	return app.WithContext(cmd.Context()).Run()
}
