package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change AI providers, the vector index and pipeline parameters.

Settings are stored in ~/.bpa/config.toml. API keys may also come from
OPENAI_API_KEY, ANTHROPIC_API_KEY, PINECONE_API_KEY and QDRANT_API_KEY.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set a single setting",
	Long: `Set a setting by its dotted key, for example:

  bpa settings set llm.provider anthropic
  bpa settings set pipeline.chunk_size 800

When the value of an api_key setting is omitted it is read from the
terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(heading("Current Settings"))
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	printBaseURL(cmd, settings.Embedding.BaseURL)
	printAPIKey(cmd, settings.Embedding.Provider.RequiresAPIKey(), settings.Embedding.APIKey)
	printStatus(cmd, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	cmd.Printf("  Temperature: %g\n", settings.LLM.Temperature)
	printBaseURL(cmd, settings.LLM.BaseURL)
	printAPIKey(cmd, settings.LLM.Provider.RequiresAPIKey(), settings.LLM.APIKey)
	printStatus(cmd, settings.LLM.IsConfigured())
	cmd.Println()

	v := settings.Vector
	cmd.Println("[Vector Index]")
	cmd.Printf("  Backend: %s\n", v.Backend)
	cmd.Printf("  Namespace: %s\n", v.Namespace)
	switch v.Backend {
	case domain.VectorBackendPinecone:
		cmd.Printf("  Index: %s\n", v.Index)
		if v.Host != "" {
			cmd.Printf("  Host: %s\n", v.Host)
		}
		printAPIKey(cmd, true, v.APIKey)
	case domain.VectorBackendQdrant:
		cmd.Printf("  Host: %s:%d (tls %t)\n", v.Host, v.Port, v.UseTLS)
		if v.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(v.APIKey))
		}
	default:
		path := v.Path
		if path == "" {
			path = "(data directory)"
		}
		cmd.Printf("  Path: %s\n", path)
	}
	cmd.Printf("  Dimensions: %d\n", v.Dimensions)
	cmd.Println()

	p := settings.Pipeline
	cmd.Println("[Pipeline]")
	cmd.Printf("  Chunk size / overlap: %d / %d\n", p.ChunkSize, p.ChunkOverlap)
	cmd.Printf("  Top K: %d\n", p.TopK)
	cmd.Printf("  History window: %d\n", p.HistoryWindow)
	cmd.Printf("  Embed concurrency: %d", p.EmbedConcurrency)
	if p.EmbedRPS > 0 {
		cmd.Printf(" (%g/s)", p.EmbedRPS)
	}
	cmd.Println()
	cmd.Printf("  Compress concurrency: %d\n", p.CompressConcurrency)
	cmd.Printf("  Compress input / fallback chars: %d / %d\n", p.CompressInputChars, p.CompressFallbackChars)
	cmd.Printf("  Request timeout: %s\n", p.RequestTimeout)
	cmd.Println()

	if settings.Storage.Path != "" {
		cmd.Println("[Storage]")
		cmd.Printf("  Path: %s\n", settings.Storage.Path)
		cmd.Println()
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'bpa settings set <key> <value>' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		if !strings.HasSuffix(key, ".api_key") {
			return fmt.Errorf("a value is required for %s", key)
		}
		cmd.Printf("Enter value for %s: ", key)
		value = readPassword(cmd.InOrStdin())
		cmd.Println()
	}

	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if strings.HasSuffix(key, ".api_key") {
		cmd.Printf("Set %s = %s\n", key, maskAPIKey(value))
	} else {
		cmd.Printf("Set %s = %s\n", key, value)
	}
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func printBaseURL(cmd *cobra.Command, baseURL string) {
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
}

func printAPIKey(cmd *cobra.Command, required bool, key string) {
	if !required {
		return
	}
	if key != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(key))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
}

func printStatus(cmd *cobra.Command, configured bool) {
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	return readLine(bufio.NewReader(in))
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
