package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mitiak/raggy/internal/adapters/driven/ai"
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change embedding, chunking, retrieval and server settings.

Settings are stored in config.toml inside the config directory.
RAGGY_EMBEDDING_API_KEY overrides the stored API key.`,
	Annotations: map[string]string{wiringAnnotation: string(wiringConfig)},
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key, for example:

  raggy settings set embedding.provider openai
  raggy settings set chunking.window_tokens 256

When the value of embedding.api_key is omitted it is read from the terminal
without echo. Pass --verify to check the embedding provider afterwards.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List supported setting keys",
	RunE:  runSettingsKeys,
}

var (
	settingsJSON   bool
	settingsVerify bool
)

func init() {
	settingsShowCmd.Flags().BoolVar(&settingsJSON, "json", false, "print settings as JSON")
	settingsSetCmd.Flags().BoolVar(&settingsVerify, "verify", false, "check the embedding provider after saving")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if settingsJSON {
		return printJSON(cmd, settingsView(settings))
	}

	cmd.Println("Embedding:")
	cmd.Printf("  Provider:    %s\n", settings.Embedding.Provider)
	cmd.Printf("  Model:       %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL:    %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.APIKey != "" {
		cmd.Printf("  API Key:     %s\n", maskAPIKey(settings.Embedding.APIKey))
	} else if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Println("  API Key:     (not set)")
	}
	cmd.Printf("  Dimensions:  %d\n", settings.Embedding.Dimensions)
	cmd.Println()
	cmd.Println("Chunking:")
	cmd.Printf("  Window:      %d tokens\n", settings.Chunking.WindowTokens)
	cmd.Printf("  Overlap:     %.2f\n", settings.Chunking.OverlapRatio)
	cmd.Println()
	cmd.Println("Retrieval:")
	cmd.Printf("  Lists:       %d\n", settings.Retrieval.Lists)
	cmd.Printf("  Probes:      %d\n", settings.Retrieval.Probes)
	cmd.Println()
	cmd.Println("Server:")
	cmd.Printf("  Rate limit:  %.1f req/s (burst %d)\n", settings.Server.RateLimitRPS, settings.Server.RateLimitBurst)

	if storeInfo != nil && storeInfo.ConfigPath != "" {
		cmd.Printf("\nConfig file: %s\n", storeInfo.ConfigPath)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case key == services.KeyEmbedAPIKey:
		cmd.Print("API key: ")
		value = readSecret(cmd.InOrStdin())
		cmd.Println()
	default:
		return fmt.Errorf("%w: missing value for %s", domain.ErrInvalidInput, key)
	}

	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if key == services.KeyEmbedAPIKey {
		cmd.Printf("Set %s = %s\n", key, maskAPIKey(value))
	} else {
		cmd.Printf("Set %s = %s\n", key, value)
	}
	if strings.HasPrefix(key, "embedding.") || key == services.KeyLists {
		cmd.Println("Re-ingest existing documents if vectors were built with different settings.")
	}

	if settingsVerify {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		if err := ai.ValidateEmbeddingConfig(cmd.Context(), &settings.Embedding); err != nil {
			return fmt.Errorf("embedding provider check failed: %w", err)
		}
		cmd.Printf("Embedding provider %s is reachable.\n", settings.Embedding.Provider)
	}
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

// ==================== Helper Functions ====================

// readSecret reads one line, without echo when in is a terminal.
func readSecret(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	line, _ := bufio.NewReader(in).ReadString('\n') //nolint:errcheck // partial input is still usable
	return strings.TrimSpace(line)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

type settingsJSONView struct {
	Embedding struct {
		Provider   string `json:"provider"`
		Model      string `json:"model"`
		BaseURL    string `json:"base_url,omitempty"`
		APIKey     string `json:"api_key,omitempty"`
		Dimensions int    `json:"dimensions"`
	} `json:"embedding"`
	Chunking struct {
		WindowTokens int     `json:"window_tokens"`
		OverlapRatio float64 `json:"overlap_ratio"`
	} `json:"chunking"`
	Retrieval struct {
		Probes int `json:"probes"`
		Lists  int `json:"lists"`
	} `json:"retrieval"`
	Server struct {
		RateLimitRPS   float64 `json:"rate_limit_rps"`
		RateLimitBurst int     `json:"rate_limit_burst"`
	} `json:"server"`
}

func settingsView(s *domain.Settings) settingsJSONView {
	var v settingsJSONView
	v.Embedding.Provider = string(s.Embedding.Provider)
	v.Embedding.Model = s.Embedding.Model
	v.Embedding.BaseURL = s.Embedding.BaseURL
	if s.Embedding.APIKey != "" {
		v.Embedding.APIKey = maskAPIKey(s.Embedding.APIKey)
	}
	v.Embedding.Dimensions = s.Embedding.Dimensions
	v.Chunking.WindowTokens = s.Chunking.WindowTokens
	v.Chunking.OverlapRatio = s.Chunking.OverlapRatio
	v.Retrieval.Probes = s.Retrieval.Probes
	v.Retrieval.Lists = s.Retrieval.Lists
	v.Server.RateLimitRPS = s.Server.RateLimitRPS
	v.Server.RateLimitBurst = s.Server.RateLimitBurst
	return v
}
