package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/adapters/driving/watch"
)

var (
	watchUser     string
	watchDebounce time.Duration
	watchExisting bool
	watchPatterns []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Ingest files as they are added or changed",
	Long: `Watches a directory tree and ingests every file that is created or
modified. Hidden files and directories are skipped. Each change creates a
new document; removing a file does not remove its indexed chunks.

Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchUser, "user", "u", "", "owner of the documents (default guest)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a changed file is ingested")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "ingest files already in the directory first")
	watchCmd.Flags().StringSliceVarP(&watchPatterns, "pattern", "p", nil, "only ingest files matching these globs (e.g. *.md,*.pdf)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ragService == nil {
		return errors.New("rag service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watch.New(ragService, args[0], watch.Options{
		UserID:   watchUser,
		Debounce: watchDebounce,
		Existing: watchExisting,
		Patterns: watchPatterns,
	})
	defer w.Close()

	results, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", args[0], err)
	}

	cmd.Printf("Watching %s for changes...\n", w.Root())

	ingested, failed := 0, 0
	for r := range results {
		if r.Err != nil {
			failed++
			cmd.Printf("Failed %s: %v\n", r.Path, r.Err)
			continue
		}
		ingested++
		cmd.Printf("Ingested %s as %s (%d chunks)\n", r.Path, r.DocumentID, r.ChunksIndexed)
		for _, warning := range r.Warnings {
			cmd.Printf("  Warning: %s\n", warning)
		}
	}

	cmd.Printf("Stopped watching: %d ingested, %d failed.\n", ingested, failed)
	return nil
}
