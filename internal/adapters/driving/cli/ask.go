package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui"
)

var (
	askUser     string
	askDocument string
	askTopK     int
	askMenu     bool
)

var askCmd = &cobra.Command{
	Use:     "ask",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for docrag.

Type a question and press Enter. The answer is shown with the excerpts it
was built from; select one to read it in its document.

Controls:
  Enter    - Ask / Open source
  ↑/k, ↓/j - Navigate sources
  n        - New question
  Esc      - Back / Menu
  ?        - Toggle help
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askUser, "user", "u", "", "ask about this user's documents (default guest)")
	askCmd.Flags().StringVarP(&askDocument, "document", "d", "", "ask about a single document")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of excerpts per question (default 5)")
	askCmd.Flags().BoolVar(&askMenu, "menu", false, "start at the main menu")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, _ []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = errors.New("terminal UI crashed")
		}
	}()

	if ragService == nil {
		return errors.New("rag service not configured")
	}

	app, err := tui.NewApp(tui.NewPorts(ragService, documentService), tui.Options{
		UserID:     askUser,
		DocumentID: askDocument,
		TopK:       askTopK,
		StartInAsk: !askMenu,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
