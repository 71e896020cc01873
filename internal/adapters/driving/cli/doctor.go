package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
)

// doctorPingTimeout bounds the embedding connectivity check.
const doctorPingTimeout = 10 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, storage and embedding connectivity",
	Long: `Doctor reports where raggy keeps its data, what is stored, and whether
the configured embedding provider answers. It exits non-zero when a check fails.`,
	Annotations: map[string]string{wiringAnnotation: string(wiringLenient)},
	Args:        cobra.NoArgs,
	RunE:        runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	if settingsService == nil || documentService == nil || embeddingService == nil {
		return errors.New("services not configured")
	}

	var failed bool
	check := func(name string, err error) {
		if err != nil {
			failed = true
			cmd.Printf("  [FAIL] %s: %v\n", name, err)
			return
		}
		cmd.Printf("  [ OK ] %s\n", name)
	}

	if storeInfo != nil {
		cmd.Printf("Config:     %s\n", storeInfo.ConfigPath)
		if storeInfo.DataPath != "" {
			cmd.Printf("Data:       %s\n", storeInfo.DataPath)
		}
	}

	settings, err := settingsService.Get()
	if err != nil {
		return err
	}
	cmd.Printf("Embedding:  %s / %s (%d dims)\n", settings.Embedding.Provider, embeddingService.ModelName(), embeddingService.Dimensions())

	stats, statsErr := documentService.Stats(cmd.Context())
	if statsErr == nil {
		cmd.Printf("Documents:  %d\n", stats.Documents)
		cmd.Printf("Chunks:     %d\n", stats.Chunks)
		cmd.Printf("Jobs:       %d\n", stats.Jobs)
	}
	if storeInfo != nil && storeInfo.Vectors != nil {
		cmd.Printf("Vectors:    %d\n", storeInfo.Vectors())
	}

	cmd.Println("\nChecks:")
	check("settings valid", settings.Validate())
	check("store readable", statsErr)

	var dimErr error
	if embeddingService.Dimensions() != settings.Embedding.Dimensions {
		dimErr = errors.New("embedding dimensions do not match embedding.dimensions")
	}
	check("dimensions consistent", dimErr)

	ctx, cancel := context.WithTimeout(cmd.Context(), doctorPingTimeout)
	defer cancel()
	check("embedding provider reachable", embeddingService.Ping(ctx))

	if failed {
		return errors.New("one or more checks failed")
	}
	return nil
}
