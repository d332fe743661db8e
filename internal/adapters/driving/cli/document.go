package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"documents", "doc"},
	Short:   "Manage ingested documents",
	Long:    `List, inspect, summarise, reprocess or delete ingested documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "List the indexed chunks of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

var documentSummariseCmd = &cobra.Command{
	Use:     "summarise [doc-id]",
	Aliases: []string{"summarize"},
	Short:   "Summarise a document",
	Args:    cobra.ExactArgs(1),
	RunE:    runDocumentSummarise,
}

var documentReprocessCmd = &cobra.Command{
	Use:   "reprocess [doc-id]",
	Short: "Ingest a document's stored bytes again",
	Long: `Deletes the document's chunks and runs parsing, chunking and embedding
again on the stored upload, keeping the same document id.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentReprocess,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

// documentUser filters the list command.
var documentUser string

func init() {
	documentListCmd.Flags().StringVarP(&documentUser, "user", "u", "", "only list this user's documents")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentChunksCmd)
	documentCmd.AddCommand(documentSummariseCmd)
	documentCmd.AddCommand(documentReprocessCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

var errDocumentServiceNotConfigured = errors.New("document service not configured")

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errDocumentServiceNotConfigured
	}

	docs, err := documentService.List(cmd.Context(), documentUser)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested yet.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		doc := &docs[i]
		cmd.Printf("  %s\n", doc.ID)
		cmd.Printf("    File:    %s\n", doc.Filename)
		cmd.Printf("    Status:  %s (%d chunks)\n", doc.Status, doc.ChunkCount)
		cmd.Printf("    Owner:   %s\n", doc.Owner())
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentServiceNotConfigured
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  File:     %s\n", doc.Filename)
	cmd.Printf("  Type:     %s\n", doc.ContentType)
	cmd.Printf("  Size:     %d bytes\n", doc.SizeBytes)
	cmd.Printf("  Owner:    %s\n", doc.Owner())
	cmd.Printf("  Status:   %s\n", doc.Status)
	if doc.StatusError != "" {
		cmd.Printf("  Error:    %s\n", doc.StatusError)
	}
	cmd.Printf("  Chunks:   %d\n", doc.ChunkCount)
	if doc.Chunking != nil {
		size, overlap := "default", "default"
		if doc.Chunking.Size > 0 {
			size = strconv.Itoa(doc.Chunking.Size)
		}
		if doc.Chunking.Overlap != nil {
			overlap = strconv.Itoa(*doc.Chunking.Overlap)
		}
		cmd.Printf("  Window:   %s / %s overlap\n", size, overlap)
	}
	if doc.StoragePath != "" {
		cmd.Printf("  Stored:   %s\n", doc.StoragePath)
	}
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))

	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentServiceNotConfigured
	}

	content, err := documentService.GetContent(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}

	cmd.Println(content)
	return nil
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentServiceNotConfigured
	}

	chunks, err := documentService.Chunks(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	if len(chunks) == 0 {
		cmd.Println("Document has no chunks.")
		return nil
	}

	for i := range chunks {
		c := &chunks[i]
		cmd.Printf("  #%d [%d:%d] %s\n", c.Index, c.Start, c.End, snippet(c.Text, snippetLength))
	}
	cmd.Printf("\nTotal: %d chunks\n", len(chunks))
	return nil
}

func runDocumentSummarise(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentServiceNotConfigured
	}

	summary, err := documentService.Summarise(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to summarise document: %w", err)
	}

	cmd.Println(summary)
	return nil
}

func runDocumentReprocess(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentServiceNotConfigured
	}

	docID := args[0]
	cmd.Printf("Reprocessing document %s...\n", docID)

	result, err := documentService.Reprocess(cmd.Context(), docID)
	if err != nil {
		return fmt.Errorf("failed to reprocess document: %w", err)
	}

	cmd.Printf("Document %s reprocessed: %d chunks indexed.\n", docID, result.ChunksIndexed)
	for _, w := range result.Warnings {
		cmd.Printf("  Warning: %s\n", w)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentServiceNotConfigured
	}

	docID := args[0]
	if err := documentService.Delete(cmd.Context(), docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}
