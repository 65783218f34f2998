// Package cli provides the bpa command-line interface.
package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bpa/internal/core/ports/driving"
	"github.com/custodia-labs/bpa/internal/logger"
)

// version is set by SetVersion from build flags.
var version = "dev"

// Services holds the driving ports the commands run against.
type Services struct {
	Ingest       driving.IngestService
	Answer       driving.AnswerService
	Conversation driving.ConversationService
	Document     driving.DocumentService
	Settings     driving.SettingsService
	Health       driving.HealthService

	// Metrics is served by `mcp serve --port`. Optional.
	Metrics http.Handler

	// PipelineErr records why the pipeline services could not be built.
	// Settings stay usable so the configuration can be fixed.
	PipelineErr error
}

// BootstrapFunc builds the services for the given config directory.
// The returned cleanup is called after the command finishes.
type BootstrapFunc func(configDir string) (*Services, func(), error)

var (
	ingestService       driving.IngestService
	answerService       driving.AnswerService
	conversationService driving.ConversationService
	documentService     driving.DocumentService
	settingsService     driving.SettingsService
	healthService       driving.HealthService
	metricsHandler      http.Handler
	pipelineErr         error

	bootstrap BootstrapFunc
	cleanup   func()
)

var (
	verbose   bool
	logFormat string
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "bpa",
	Short: "Business process agent for university documents",
	Long: `bpa ingests university policy documents and web pages into a vector index
and answers questions about them with citations, filtered by access role.`,
	SilenceUsage:      true,
	PersistentPreRunE: preRun,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.bpa)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx as every command's context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by `bpa version`.
func SetVersion(v string) {
	version = v
}

// SetBootstrap registers the function that builds services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs services directly.
func SetServices(s *Services) {
	ingestService = s.Ingest
	answerService = s.Answer
	conversationService = s.Conversation
	documentService = s.Document
	settingsService = s.Settings
	healthService = s.Health
	metricsHandler = s.Metrics
	pipelineErr = s.PipelineErr
}

// skipBootstrap marks commands that run without any services.
const skipBootstrap = "bpa/skip-bootstrap"

func preRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if err := logger.SetFormat(logFormat); err != nil {
		return err
	}

	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}

	services, done, err := bootstrap(configDir)
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	SetServices(services)
	cleanup = done
	return nil
}

// notConfigured reports a missing service, with the bootstrap failure when known.
func notConfigured(name string) error {
	if pipelineErr != nil {
		return fmt.Errorf("%s service not configured: %w\nRun 'bpa settings set <key> <value>' to fix it",
			name, pipelineErr)
	}
	return fmt.Errorf("%s service not configured", name)
}
