// Package cli implements the raggy command line with cobra.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mitiak/raggy/internal/core/ports/driven"
	"github.com/mitiak/raggy/internal/core/ports/driving"
	"github.com/mitiak/raggy/internal/eval"
	"github.com/mitiak/raggy/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Global flags.
var (
	configDir string
	dataDir   string
	verbose   bool
)

// Services used by commands. They are wired in PersistentPreRunE, or
// injected directly by tests.
var (
	settingsService  driving.SettingsService
	ingestService    driving.IngestService
	directoryService driving.DirectoryIngestService
	searchService    driving.SearchService
	answerService    driving.AnswerService
	documentService  driving.DocumentService
	embeddingService driven.EmbeddingService
	chunkReader      eval.ChunkReader
	storeInfo        *storeDetails

	// servicesInjected disables wiring.
	servicesInjected bool

	active *runtime
)

// storeDetails describes the open store for doctor.
type storeDetails struct {
	ConfigPath string
	DataPath   string
	Vectors    func() int
}

// wiringAnnotation is the cobra annotation key holding a wiringLevel.
const wiringAnnotation = "raggy/wiring"

var rootCmd = &cobra.Command{
	Use:   "raggy",
	Short: "Grounded question answering over your documents",
	Long: `raggy ingests text documents, splits them into overlapping chunks, embeds
them, and answers questions strictly from the stored text. Every answer cites
the chunks it came from, or says it doesn't know.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.raggy)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default <config-dir>/data)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command and releases wired resources.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	defer closeRuntime()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if servicesInjected {
		return nil
	}

	level := levelFor(cmd)
	if level == wiringNone {
		return nil
	}

	closeRuntime()
	rt, err := wire(cmd.Context(), configDir, dataDir, level)
	if err != nil {
		return err
	}
	active = rt

	settingsService = rt.settings
	storeInfo = &storeDetails{ConfigPath: rt.config.Path()}
	if rt.store == nil {
		return nil
	}

	ingestService = rt.ingest
	directoryService = rt.directory
	searchService = rt.search
	answerService = rt.answer
	documentService = rt.document
	embeddingService = rt.embedder
	chunkReader = rt.store.DocumentStore()
	storeInfo.DataPath = rt.store.Path()
	storeInfo.Vectors = rt.store.VectorCount
	return nil
}

// levelFor returns the nearest wiring annotation, defaulting to full wiring.
// Help and shell completion never wire.
func levelFor(cmd *cobra.Command) wiringLevel {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return wiringNone
		}
		if v, ok := c.Annotations[wiringAnnotation]; ok {
			return wiringLevel(v)
		}
	}
	return wiringFull
}

func closeRuntime() {
	if active == nil {
		return
	}
	if err := active.Close(); err != nil {
		logger.Warn("Failed to close store: %v", err)
	}
	active = nil
}
