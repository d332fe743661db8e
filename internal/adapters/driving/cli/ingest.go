package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/adapters/driving/watch"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

var (
	ingestUser         string
	ingestContentType  string
	ingestChunkSize    int
	ingestChunkOverlap int
	ingestJSON         bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest documents",
	Long: `Parses, chunks, embeds and indexes each file.

Every run creates a new document, even for a file ingested before.
A file that yields no text is kept with zero chunks and a warning.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestUser, "user", "u", "", "owner of the documents (default guest)")
	ingestCmd.Flags().StringVarP(&ingestContentType, "content-type", "t", "", "MIME type; detected from the extension when empty")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "chunk window in characters (default from settings)")
	ingestCmd.Flags().IntVar(&ingestChunkOverlap, "chunk-overlap", 0, "characters shared by consecutive chunks; 0 for disjoint chunks (default from settings)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

// ingestOutcome is the per-file result of an ingest run.
type ingestOutcome struct {
	File          string   `json:"file"`
	DocumentID    string   `json:"document_id,omitempty"`
	ChunksIndexed int      `json:"chunks_indexed"`
	Warnings      []string `json:"warnings,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ragService == nil {
		return errors.New("rag service not configured")
	}

	chunking, err := chunkingFromFlags(cmd)
	if err != nil {
		return err
	}

	outcomes := make([]ingestOutcome, 0, len(args))
	failed := 0
	for _, path := range args {
		outcome := ingestFile(cmd, path, chunking)
		if outcome.Error != "" {
			failed++
		}
		outcomes = append(outcomes, outcome)

		if !ingestJSON {
			printIngestOutcome(cmd, &outcome)
		}
	}

	if ingestJSON {
		data, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(args))
	}
	return nil
}

// chunkingFromFlags builds a per-document window override from the flags
// that were set explicitly. It returns nil when neither was given.
func chunkingFromFlags(cmd *cobra.Command) (*domain.ChunkingOptions, error) {
	sizeSet := cmd.Flags().Changed("chunk-size")
	overlapSet := cmd.Flags().Changed("chunk-overlap")
	if !sizeSet && !overlapSet {
		return nil, nil
	}

	opts := &domain.ChunkingOptions{}
	if sizeSet {
		if ingestChunkSize <= 0 {
			return nil, fmt.Errorf("--chunk-size must be positive, got %d", ingestChunkSize)
		}
		opts.Size = ingestChunkSize
	}
	if overlapSet {
		if ingestChunkOverlap < 0 {
			return nil, fmt.Errorf("--chunk-overlap must not be negative, got %d", ingestChunkOverlap)
		}
		overlap := ingestChunkOverlap
		opts.Overlap = &overlap
	}
	return opts, nil
}

func ingestFile(cmd *cobra.Command, path string, chunking *domain.ChunkingOptions) ingestOutcome {
	outcome := ingestOutcome{File: path}

	info, err := os.Stat(path)
	if err != nil {
		outcome.Error = fmt.Sprintf("cannot read %s", filepath.Base(path))
		return outcome
	}
	if info.IsDir() {
		outcome.Error = fmt.Sprintf("%s is a directory; use 'docrag watch --existing %s'", path, path)
		return outcome
	}

	content, err := os.ReadFile(path)
	if err != nil {
		outcome.Error = fmt.Sprintf("cannot read %s", filepath.Base(path))
		return outcome
	}

	contentType := ingestContentType
	if contentType == "" {
		contentType = watch.DetectContentType(path)
	}

	result, err := ragService.Ingest(cmd.Context(), domain.IngestRequest{
		Filename:    filepath.Base(path),
		Content:     content,
		ContentType: contentType,
		UserID:      ingestUser,
		Chunking:    chunking,
	})
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	outcome.DocumentID = result.DocumentID
	outcome.ChunksIndexed = result.ChunksIndexed
	outcome.Warnings = result.Warnings
	return outcome
}

func printIngestOutcome(cmd *cobra.Command, outcome *ingestOutcome) {
	if outcome.Error != "" {
		cmd.Printf("Failed %s: %s\n", outcome.File, outcome.Error)
		return
	}

	cmd.Printf("Ingested %s as %s (%d chunks)\n", outcome.File, outcome.DocumentID, outcome.ChunksIndexed)
	for _, w := range outcome.Warnings {
		cmd.Printf("  Warning: %s\n", w)
	}
}
