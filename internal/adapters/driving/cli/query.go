package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

var (
	queryTopK     int
	queryUser     string
	queryDocument string
	queryJSON     bool
)

// snippetLength is the number of runes of each source shown after an answer.
const snippetLength = 160

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about your documents",
	Long: `Retrieves the chunks most similar to the question and generates an
answer grounded in them. Every source shown was part of the prompt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve (default 5)")
	queryCmd.Flags().StringVarP(&queryUser, "user", "u", "", "only search this user's documents (default guest)")
	queryCmd.Flags().StringVarP(&queryDocument, "document", "d", "", "only search this document")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if ragService == nil {
		return errors.New("rag service not configured")
	}

	record, err := ragService.Query(cmd.Context(), domain.QueryRequest{
		Text:       strings.Join(args, " "),
		TopK:       queryTopK,
		UserID:     queryUser,
		DocumentID: queryDocument,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputAnswerJSON(cmd, record)
	}
	outputAnswer(cmd, record)
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, record *domain.AnswerRecord) error {
	out := *record
	if out.Sources == nil {
		out.Sources = []domain.SourceChunk{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswer(cmd *cobra.Command, record *domain.AnswerRecord) {
	cmd.Println(record.Answer)

	if len(record.Sources) == 0 {
		return
	}

	cmd.Println()
	cmd.Println("Sources:")
	for i := range record.Sources {
		src := &record.Sources[i]
		name := src.Filename
		if name == "" {
			name = src.DocumentID
		}
		cmd.Printf("  [%d] %s #%d (%.2f)\n", i+1, name, src.ChunkID, src.Score)
		if snippet := snippet(src.Text, snippetLength); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
	}
}

// snippet collapses whitespace and truncates s to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
