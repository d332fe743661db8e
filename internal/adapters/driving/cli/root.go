// Package cli provides the docrag command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services used by the commands. They are set by main before Execute.
var (
	ragService      driving.RagService
	documentService driving.DocumentService
	settingsService driving.SettingsService
)

// verbose enables debug logging.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Ask questions about your documents",
	Long: `docrag ingests documents, indexes them as embedded chunks and answers
questions with citations to the excerpts it used.

Get started:
  docrag ingest report.pdf notes.md
  docrag query "What were the Q3 findings?"
  docrag ask`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Services bundles the driving ports the commands call into.
type Services struct {
	Rag      driving.RagService
	Document driving.DocumentService
	Settings driving.SettingsService
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	ragService = s.Rag
	documentService = s.Document
	settingsService = s.Settings
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
